// Package testutil provides shared test helpers for setting up document
// stores and backup directories.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// TestStore creates a temporary SQLite document store that is
// automatically cleaned up.
func TestStore(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBackupDir creates a temporary backup directory with a
// storage.Provider.
func TestBackupDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}
