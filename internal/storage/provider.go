// Package storage defines the backup-directory file-system abstraction.
package storage

import "github.com/starford/raido/internal/models"

// Provider is the interface for backup directory operations. The backup
// directory is append-mostly: files are created and read, never deleted
// or overwritten through this interface.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the
	// backup root), recursively.
	List(dir string) ([]models.BackupFileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// WriteNew atomically writes content to path (relative to root) and
	// fails with an error if the file already exists.
	WriteNew(path string, content []byte) error
	// Exists reports whether a file exists at path.
	Exists(path string) bool
	// Root returns the absolute backup root directory.
	Root() string
}
