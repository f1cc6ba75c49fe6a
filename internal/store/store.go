// Package store provides SQLite-backed persistence for documents.
package store

import (
	"context"

	"github.com/starford/raido/internal/models"
)

// AuthorizeFunc reports whether the acting caller may see a document.
// The store and the matcher apply it as given; authorization policy lives
// with the caller.
type AuthorizeFunc func(*models.Document) bool

// DocumentStore defines the document persistence operations the
// reconciliation engine consumes. Consumers should depend on this
// interface rather than the concrete *SQLite type to facilitate testing.
type DocumentStore interface {
	// GetByID returns the document with the given id, or apperr.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	// FindByTitle returns up to limit documents whose title exactly
	// equals title, most recently updated first.
	FindByTitle(ctx context.Context, title string, limit int) ([]*models.Document, error)
	// ScanAuthorized iterates authorized documents in batches of
	// batchSize, visiting at most maxScan of them; maxScan <= 0 means
	// no cap. fn returns false to stop early.
	ScanAuthorized(ctx context.Context, authorize AuthorizeFunc, batchSize, maxScan int, fn func(*models.Document) bool) error
	// Save overwrites an existing document and its tag set in one
	// transaction.
	Save(ctx context.Context, doc *models.Document) error
	// Create inserts a new document and returns it with its assigned id.
	Create(ctx context.Context, draft *models.Draft) (*models.Document, error)
	Close() error
}

// Verify *SQLite satisfies DocumentStore at compile time.
var _ DocumentStore = (*SQLite)(nil)
