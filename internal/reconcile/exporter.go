package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/backup"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
)

// ExportDetail records the outcome for one document during a bulk export.
type ExportDetail struct {
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	Status     string `json:"status"` // exported, skipped_filename, skipped_content, error
	BackupFile string `json:"backup_file,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ExportReport aggregates one bulk export run.
type ExportReport struct {
	RunID           string         `json:"run_id"`
	Exported        int            `json:"exported"`
	SkippedFilename int            `json:"skipped_filename"`
	SkippedContent  int            `json:"skipped_content"`
	Errors          int            `json:"errors"`
	Details         []ExportDetail `json:"details"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

// ExportAll writes a backup file for every document visible to userID,
// skipping documents that already have a same-named file or byte-identical
// content (ignoring the generation-timestamp line) on disk. Re-running
// against an unchanged store produces zero new files.
func (e *Engine) ExportAll(ctx context.Context, userID int64) *ExportReport {
	report := &ExportReport{RunID: uuid.NewString(), StartedAt: time.Now()}

	existing, err := e.existingContentHashes()
	if err != nil {
		e.logger.Error("export: scan backup dir failed", slog.String("error", err.Error()))
		report.Errors++
		report.Details = append(report.Details, ExportDetail{Status: "error", Message: err.Error()})
		report.FinishedAt = time.Now()
		return report
	}

	scanErr := e.store.ScanAuthorized(ctx, AuthorizeFor(userID), e.matcher.batchSize, 0, func(doc *models.Document) bool {
		report.Details = append(report.Details, e.exportOne(doc, existing, report))
		return true
	})
	if scanErr != nil {
		e.logger.Error("export: store scan failed", slog.String("error", scanErr.Error()))
		report.Errors++
		report.Details = append(report.Details, ExportDetail{Status: "error", Message: scanErr.Error()})
	}

	report.FinishedAt = time.Now()
	e.logger.Info("export finished",
		slog.String("run_id", report.RunID),
		slog.Int("exported", report.Exported),
		slog.Int("skipped_filename", report.SkippedFilename),
		slog.Int("skipped_content", report.SkippedContent),
		slog.Int("errors", report.Errors))
	return report
}

func (e *Engine) exportOne(doc *models.Document, existing map[string]struct{}, report *ExportReport) ExportDetail {
	name := backup.GenerateFilename(doc)
	detail := ExportDetail{DocumentID: doc.ID, Title: doc.Title, BackupFile: name}

	if e.files.Exists(name) {
		report.SkippedFilename++
		detail.Status = "skipped_filename"
		return detail
	}

	stable := backup.Render(doc, false)
	digest := checksum.SumString(stable)
	if _, dup := existing[digest]; dup {
		report.SkippedContent++
		detail.Status = "skipped_content"
		return detail
	}

	if err := e.files.WriteNew(name, []byte(backup.Render(doc, true))); err != nil {
		e.logger.Warn("export: write failed", slog.String("file", name), slog.String("error", err.Error()))
		report.Errors++
		detail.Status = "error"
		detail.Message = err.Error()
		return detail
	}

	existing[digest] = struct{}{}
	report.Exported++
	detail.Status = "exported"
	return detail
}

// existingContentHashes digests every backup file on disk with its
// Generated line removed, for content-level duplicate suppression.
func (e *Engine) existingContentHashes() (map[string]struct{}, error) {
	metas, err := e.files.List("")
	if err != nil {
		return nil, fmt.Errorf("reconcile: list backups: %w", err)
	}
	out := make(map[string]struct{}, len(metas))
	for _, meta := range metas {
		data, err := e.files.Read(meta.Path)
		if err != nil {
			e.logger.Warn("export: read failed", slog.String("path", meta.Path), slog.String("error", err.Error()))
			continue
		}
		out[checksum.SumString(backup.StripGeneratedLine(string(data)))] = struct{}{}
	}
	return out, nil
}
