// Package reconcile implements the backup/import reconciliation engine:
// matching backup files to stored documents, classifying version drift,
// and driving the per-file sync state machine.
package reconcile

import (
	"strings"
	"time"

	"github.com/starford/raido/internal/backup"
	"github.com/starford/raido/internal/models"
)

// DefaultConflictWindow is the time span within which db and file edits
// are treated as simultaneous.
const DefaultConflictWindow = 60 * time.Second

// Action classifies the outcome of reconciling one backup file.
type Action string

const (
	ActionNoChange   Action = "no_change"
	ActionUpdateDB   Action = "update_db"
	ActionUpdateFile Action = "update_file"
	ActionConflict   Action = "conflict"
	ActionCreate     Action = "create"
	ActionError      Action = "error"
)

// Comparison relates a matched document to a backup file.
type Comparison struct {
	DBNewer          bool      `json:"db_newer"`
	FileNewer        bool      `json:"file_newer"`
	ContentDifferent bool      `json:"content_different"`
	TitleDifferent   bool      `json:"title_different"`
	DBUpdatedAt      time.Time `json:"db_updated_at"`
	FileModTime      time.Time `json:"file_mtime"`
	Recommendation   Action    `json:"recommendation"`
}

// Compare classifies the relationship between a stored document and a
// backup file. Identical content is always no_change regardless of
// timestamps; differing content inside the conflict window is too close
// to call and flagged for manual resolution.
func Compare(doc *models.Document, info *backup.FileInfo, conflictWindow time.Duration) *Comparison {
	if conflictWindow <= 0 {
		conflictWindow = DefaultConflictWindow
	}

	dbTime := doc.EffectiveUpdatedAt()
	fileTime := info.FileModTime

	c := &Comparison{
		DBNewer:          dbTime.After(fileTime),
		FileNewer:        fileTime.After(dbTime),
		ContentDifferent: strings.TrimSpace(doc.Content) != strings.TrimSpace(info.Content),
		TitleDifferent:   doc.Title != info.Title,
		DBUpdatedAt:      dbTime,
		FileModTime:      fileTime,
	}

	switch {
	case !c.ContentDifferent:
		c.Recommendation = ActionNoChange
	case absDuration(dbTime.Sub(fileTime)) < conflictWindow:
		c.Recommendation = ActionConflict
	case c.FileNewer:
		c.Recommendation = ActionUpdateDB
	default:
		c.Recommendation = ActionUpdateFile
	}
	return c
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
