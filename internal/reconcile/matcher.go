package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/backup"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// Matcher defaults; all are tunables carried in Options.
const (
	DefaultTitleMatchLimit  = 10
	DefaultContentPrefixLen = 500
	DefaultScanLimit        = 1000
	DefaultScanBatchSize    = 100
)

// Matcher finds the stored document a backup file belongs to, via an
// ordered cascade: embedded id, exact title, content-prefix hash. Every
// candidate must pass the caller-supplied authorize predicate; the
// matcher never bypasses it.
type Matcher struct {
	store  store.DocumentStore
	logger *slog.Logger

	titleLimit int
	prefixLen  int
	scanLimit  int
	batchSize  int
}

// NewMatcher creates a Matcher. Zero-valued tunables fall back to the
// package defaults.
func NewMatcher(st store.DocumentStore, logger *slog.Logger, titleLimit, prefixLen, scanLimit, batchSize int) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if titleLimit <= 0 {
		titleLimit = DefaultTitleMatchLimit
	}
	if prefixLen <= 0 {
		prefixLen = DefaultContentPrefixLen
	}
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	if batchSize <= 0 {
		batchSize = DefaultScanBatchSize
	}
	return &Matcher{
		store:      st,
		logger:     logger,
		titleLimit: titleLimit,
		prefixLen:  prefixLen,
		scanLimit:  scanLimit,
		batchSize:  batchSize,
	}
}

// Find returns the best-matching authorized document for a backup file,
// or nil when no strategy produces a match.
func (m *Matcher) Find(ctx context.Context, info *backup.FileInfo, authorize store.AuthorizeFunc) (*models.Document, error) {
	if doc, err := m.byEmbeddedID(ctx, info, authorize); err != nil {
		return nil, err
	} else if doc != nil {
		return doc, nil
	}

	if doc, err := m.byExactTitle(ctx, info, authorize); err != nil {
		return nil, err
	} else if doc != nil {
		return doc, nil
	}

	return m.byContentPrefix(ctx, info, authorize)
}

// byEmbeddedID resolves the header's Document ID reference. An id that
// does not exist or fails authorization falls through to the next
// strategy rather than erroring.
func (m *Matcher) byEmbeddedID(ctx context.Context, info *backup.FileInfo, authorize store.AuthorizeFunc) (*models.Document, error) {
	if info.OriginalDocID == 0 {
		return nil, nil
	}
	doc, err := m.store.GetByID(ctx, info.OriginalDocID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			m.logger.Debug("matcher: embedded id not found",
				slog.Int64("id", info.OriginalDocID), slog.String("file", info.FilePath))
			return nil, nil
		}
		return nil, fmt.Errorf("reconcile: match by id: %w", err)
	}
	if authorize != nil && !authorize(doc) {
		m.logger.Debug("matcher: embedded id not authorized",
			slog.Int64("id", info.OriginalDocID), slog.String("file", info.FilePath))
		return nil, nil
	}
	return doc, nil
}

// byExactTitle queries same-titled documents, bounded, and breaks ties by
// most recent update.
func (m *Matcher) byExactTitle(ctx context.Context, info *backup.FileInfo, authorize store.AuthorizeFunc) (*models.Document, error) {
	if info.Title == "" || info.Title == "Untitled" {
		return nil, nil
	}
	candidates, err := m.store.FindByTitle(ctx, info.Title, m.titleLimit)
	if err != nil {
		return nil, fmt.Errorf("reconcile: match by title: %w", err)
	}

	var best *models.Document
	for _, doc := range candidates {
		if authorize != nil && !authorize(doc) {
			continue
		}
		if best == nil || doc.EffectiveUpdatedAt().After(best.EffectiveUpdatedAt()) {
			best = doc
		}
	}
	return best, nil
}

// byContentPrefix hashes the first prefixLen characters of the backup
// body and scans authorized documents for the same digest, verifying raw
// prefix equality before accepting (hash-collision defense).
func (m *Matcher) byContentPrefix(ctx context.Context, info *backup.FileInfo, authorize store.AuthorizeFunc) (*models.Document, error) {
	prefix := checksum.Prefix(info.Content, m.prefixLen)
	if prefix == "" {
		return nil, nil
	}
	want := checksum.SumString(prefix)

	var match *models.Document
	err := m.store.ScanAuthorized(ctx, authorize, m.batchSize, m.scanLimit, func(doc *models.Document) bool {
		candidate := checksum.Prefix(doc.Content, m.prefixLen)
		if checksum.SumString(candidate) != want {
			return true
		}
		if candidate != prefix {
			return true
		}
		match = doc
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile: match by content: %w", err)
	}
	return match, nil
}
