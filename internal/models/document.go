// Package models defines the domain types for Raido.
package models

import "time"

// Document represents a record in the canonical document store.
type Document struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"markdown_content"`
	Author    string    `json:"author,omitempty"`
	IsPublic  bool      `json:"is_public"`
	Tags      []string  `json:"tags,omitempty"`
	Metadata  *Metadata `json:"document_metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft is the payload for creating a new document.
type Draft struct {
	OwnerID  int64
	Title    string
	Content  string
	Author   string
	IsPublic bool
	Tags     []string
	Metadata *Metadata
}

// Metadata holds structure extracted from a backup file at import time.
type Metadata struct {
	Frontmatter   map[string]any `json:"frontmatter,omitempty"`
	InternalLinks []string       `json:"internal_links,omitempty"`
	Hashtags      []string       `json:"hashtags,omitempty"`
}

// EffectiveUpdatedAt is the timestamp used for freshness comparisons:
// updated_at when set, otherwise created_at.
func (d *Document) EffectiveUpdatedAt() time.Time {
	if !d.UpdatedAt.IsZero() {
		return d.UpdatedAt
	}
	return d.CreatedAt
}

// BackupFileMetadata is a lightweight representation returned by backup
// directory listings.
type BackupFileMetadata struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}
