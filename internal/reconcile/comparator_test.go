package reconcile

import (
	"testing"
	"time"

	"github.com/starford/raido/internal/backup"
	"github.com/starford/raido/internal/models"
)

var compareBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func compareCase(dbContent, fileContent string, dbTime, fileTime time.Time) *Comparison {
	doc := &models.Document{ID: 1, Content: dbContent, UpdatedAt: dbTime}
	info := &backup.FileInfo{Content: fileContent, FileModTime: fileTime}
	return Compare(doc, info, DefaultConflictWindow)
}

func TestCompare_IdenticalContentIsNoChange(t *testing.T) {
	// Identical content short-circuits even when timestamps differ wildly.
	c := compareCase("same body\n", "same body", compareBase, compareBase.Add(48*time.Hour))
	if c.Recommendation != ActionNoChange {
		t.Errorf("recommendation = %q, want %q", c.Recommendation, ActionNoChange)
	}
	if c.ContentDifferent {
		t.Error("trailing whitespace must not count as a content difference")
	}
}

func TestCompare_InsideWindowIsConflict(t *testing.T) {
	c := compareCase("old", "new", compareBase, compareBase.Add(30*time.Second))
	if c.Recommendation != ActionConflict {
		t.Errorf("recommendation = %q, want %q", c.Recommendation, ActionConflict)
	}
}

func TestCompare_FileNewerOutsideWindow(t *testing.T) {
	c := compareCase("old", "new", compareBase, compareBase.Add(90*time.Second))
	if c.Recommendation != ActionUpdateDB {
		t.Errorf("recommendation = %q, want %q", c.Recommendation, ActionUpdateDB)
	}
	if !c.FileNewer || c.DBNewer {
		t.Errorf("direction flags = db:%v file:%v", c.DBNewer, c.FileNewer)
	}
}

func TestCompare_DBNewerOutsideWindow(t *testing.T) {
	c := compareCase("new", "old", compareBase.Add(90*time.Second), compareBase)
	if c.Recommendation != ActionUpdateFile {
		t.Errorf("recommendation = %q, want %q", c.Recommendation, ActionUpdateFile)
	}
}

func TestCompare_ExactWindowBoundaryIsDecisive(t *testing.T) {
	// A gap of exactly the window is outside it.
	c := compareCase("old", "new", compareBase, compareBase.Add(DefaultConflictWindow))
	if c.Recommendation != ActionUpdateDB {
		t.Errorf("recommendation = %q, want %q", c.Recommendation, ActionUpdateDB)
	}
}

func TestCompare_FallsBackToCreatedAt(t *testing.T) {
	doc := &models.Document{ID: 1, Content: "old", CreatedAt: compareBase}
	info := &backup.FileInfo{Content: "new", FileModTime: compareBase.Add(5 * time.Minute)}
	c := Compare(doc, info, DefaultConflictWindow)
	if !c.DBUpdatedAt.Equal(compareBase) {
		t.Errorf("db time = %v, want created_at fallback %v", c.DBUpdatedAt, compareBase)
	}
	if c.Recommendation != ActionUpdateDB {
		t.Errorf("recommendation = %q, want %q", c.Recommendation, ActionUpdateDB)
	}
}
