package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id   INTEGER NOT NULL DEFAULT 0,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	author     TEXT NOT NULL DEFAULT '',
	is_public  INTEGER NOT NULL DEFAULT 0,
	metadata   TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_tags (
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	UNIQUE(document_id, name)
);

CREATE INDEX IF NOT EXISTS idx_documents_title ON documents(title);
CREATE INDEX IF NOT EXISTS idx_document_tags_doc ON document_tags(document_id);
`

// SQLite implements DocumentStore on a local SQLite database.
type SQLite struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

const docColumns = `id, owner_id, title, content, author, is_public, metadata, created_at, updated_at`

// GetByID returns a single document with its tags.
func (s *SQLite) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get by id: %w", err)
	}
	if err := s.loadTags(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FindByTitle returns documents whose title exactly equals title, most
// recently updated first, capped at limit.
func (s *SQLite) FindByTitle(ctx context.Context, title string, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+docColumns+`
		FROM documents
		WHERE title = ?
		ORDER BY updated_at DESC, created_at DESC
		LIMIT ?
	`, title, limit)
	if err != nil {
		return nil, fmt.Errorf("store: find by title: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, doc := range out {
		if err := s.loadTags(ctx, doc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ScanAuthorized walks documents in id order, batchSize at a time,
// visiting at most maxScan authorized documents; maxScan <= 0 removes
// the cap.
func (s *SQLite) ScanAuthorized(ctx context.Context, authorize AuthorizeFunc, batchSize, maxScan int, fn func(*models.Document) bool) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	var lastID int64
	visited := 0
	for maxScan <= 0 || visited < maxScan {
		batch, err := s.scanBatch(ctx, lastID, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, doc := range batch {
			lastID = doc.ID
			if authorize != nil && !authorize(doc) {
				continue
			}
			visited++
			if !fn(doc) {
				return nil
			}
			if maxScan > 0 && visited >= maxScan {
				return nil
			}
		}
	}
	return nil
}

func (s *SQLite) scanBatch(ctx context.Context, afterID int64, limit int) ([]*models.Document, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+docColumns+`
		FROM documents
		WHERE id > ?
		ORDER BY id
		LIMIT ?
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: scan batch: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, doc := range out {
		if err := s.loadTags(ctx, doc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Save overwrites a document and replaces its tag set within a transaction.
func (s *SQLite) Save(ctx context.Context, doc *models.Document) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	metaJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now()

	res, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET title = ?, content = ?, author = ?, is_public = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, doc.Title, doc.Content, doc.Author, doc.IsPublic, metaJSON, doc.UpdatedAt, doc.ID)
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}

	if err := replaceTags(ctx, tx, doc.ID, doc.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// Create inserts a new document with its tags and returns the stored row.
func (s *SQLite) Create(ctx context.Context, draft *models.Draft) (*models.Document, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	metaJSON, err := marshalMetadata(draft.Metadata)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (owner_id, title, content, author, is_public, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, draft.OwnerID, draft.Title, draft.Content, draft.Author, draft.IsPublic, metaJSON, now, now)
	if err != nil {
		return nil, fmt.Errorf("store: create: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: last insert id: %w", err)
	}

	if err := replaceTags(ctx, tx, id, draft.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Document{
		ID:        id,
		OwnerID:   draft.OwnerID,
		Title:     draft.Title,
		Content:   draft.Content,
		Author:    draft.Author,
		IsPublic:  draft.IsPublic,
		Tags:      draft.Tags,
		Metadata:  draft.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, docID int64, tagNames []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("store: clear tags: %w", err)
	}
	if len(tagNames) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO document_tags (document_id, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare tag insert: %w", err)
	}
	defer stmt.Close()
	for _, name := range tagNames {
		if _, err := stmt.ExecContext(ctx, docID, name); err != nil {
			return fmt.Errorf("store: insert tag: %w", err)
		}
	}
	return nil
}

func (s *SQLite) loadTags(ctx context.Context, doc *models.Document) error {
	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM document_tags WHERE document_id = ? ORDER BY rowid`, doc.ID)
	if err != nil {
		return fmt.Errorf("store: load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		doc.Tags = append(doc.Tags, name)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var metaJSON sql.NullString
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Content, &doc.Author,
		&doc.IsPublic, &metaJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if metaJSON.Valid && metaJSON.String != "" {
		var meta models.Metadata
		if jsonErr := json.Unmarshal([]byte(metaJSON.String), &meta); jsonErr == nil {
			doc.Metadata = &meta
		}
	}
	return &doc, nil
}

func marshalMetadata(meta *models.Metadata) (any, error) {
	if meta == nil {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("store: marshal metadata: %w", err)
	}
	return string(raw), nil
}
