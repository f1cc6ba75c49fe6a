package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/backup"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/images"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/tags"
)

// Options carries the engine tunables.
type Options struct {
	ConflictWindow   time.Duration
	TitleMatchLimit  int
	ContentPrefixLen int
	ScanLimit        int
	ScanBatchSize    int
	// ImageDir, when set, materialises externally-hosted images into this
	// directory during non-dry-run sweeps.
	ImageDir string
}

// Result is the per-file outcome of a reconciliation.
type Result struct {
	Action       Action      `json:"action"`
	DocumentID   int64       `json:"document_id,omitempty"`
	BackupFile   string      `json:"backup_file"` // filename only, never the server path
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	ConflictInfo *Comparison `json:"conflict_info,omitempty"`
	NewBackup    string      `json:"new_backup,omitempty"`
}

// Report aggregates one full sweep.
type Report struct {
	RunID      string    `json:"run_id"`
	DryRun     bool      `json:"dry_run"`
	Processed  int       `json:"processed"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Conflicts  int       `json:"conflicts"`
	Errors     int       `json:"errors"`
	Skipped    int       `json:"skipped"`
	Results    []Result  `json:"results"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// EventFunc receives each per-file result as it is produced.
type EventFunc func(Result)

// Engine drives the reconciliation of a backup directory against the
// document store.
type Engine struct {
	store   store.DocumentStore
	files   storage.Provider
	matcher *Matcher
	fetcher *images.Fetcher
	opts    Options
	logger  *slog.Logger
	events  EventFunc
}

// NewEngine creates an Engine. events may be nil.
func NewEngine(st store.DocumentStore, files storage.Provider, logger *slog.Logger, opts Options, events EventFunc) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   st,
		files:   files,
		matcher: NewMatcher(st, logger, opts.TitleMatchLimit, opts.ContentPrefixLen, opts.ScanLimit, opts.ScanBatchSize),
		fetcher: images.NewFetcher(logger),
		opts:    opts,
		logger:  logger,
		events:  events,
	}
}

// AuthorizeFor is the default visibility predicate: public documents plus
// the acting user's own.
func AuthorizeFor(userID int64) store.AuthorizeFunc {
	return func(doc *models.Document) bool {
		return doc.IsPublic || (userID > 0 && doc.OwnerID == userID)
	}
}

func canEdit(doc *models.Document, userID int64) bool {
	return userID > 0 && doc.OwnerID == userID
}

// Sweep reconciles every .md file under the backup root. Per-file
// failures are recorded as error results; the sweep always runs to
// completion and returns a complete report.
func (e *Engine) Sweep(ctx context.Context, userID int64, dryRun bool) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}

	metas, err := e.files.List("")
	if err != nil {
		e.logger.Error("sweep: list backup dir failed", slog.String("error", err.Error()))
		report.Errors++
		report.Results = append(report.Results, Result{
			Action:  ActionError,
			Success: false,
			Message: fmt.Sprintf("list backup directory: %v", err),
		})
		report.FinishedAt = time.Now()
		return report
	}

	for _, meta := range metas {
		res := e.SyncFile(ctx, meta, userID, dryRun, "")
		report.add(res)
		if e.events != nil {
			e.events(res)
		}
	}

	report.FinishedAt = time.Now()
	e.logger.Info("sweep finished",
		slog.String("run_id", report.RunID),
		slog.Bool("dry_run", dryRun),
		slog.Int("processed", report.Processed),
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("conflicts", report.Conflicts),
		slog.Int("errors", report.Errors),
		slog.Int("skipped", report.Skipped))
	return report
}

func (r *Report) add(res Result) {
	r.Processed++
	r.Results = append(r.Results, res)
	switch res.Action {
	case ActionCreate:
		r.Created++
	case ActionUpdateDB, ActionUpdateFile:
		r.Updated++
	case ActionConflict:
		r.Conflicts++
	case ActionError:
		r.Errors++
	default:
		r.Skipped++
	}
}

// SyncFile reconciles one backup file. mode is normally empty (auto,
// driven by the comparator's recommendation); ActionUpdateDB or
// ActionUpdateFile force a direction for manual conflict resolution.
func (e *Engine) SyncFile(ctx context.Context, meta models.BackupFileMetadata, userID int64, dryRun bool, mode Action) Result {
	name := filepath.Base(meta.Path)

	info, res := e.loadInfo(ctx, meta, dryRun)
	if res != nil {
		return *res
	}

	authorize := AuthorizeFor(userID)
	doc, err := e.matcher.Find(ctx, info, authorize)
	if err != nil {
		e.logger.Warn("sync: match failed", slog.String("file", name), slog.String("error", err.Error()))
		return Result{Action: ActionError, BackupFile: name, Message: fmt.Sprintf("match failed: %v", err)}
	}

	if doc == nil {
		return e.createDocument(ctx, info, name, userID, dryRun)
	}

	cmp := Compare(doc, info, e.opts.ConflictWindow)
	action := cmp.Recommendation
	if mode == ActionUpdateDB || mode == ActionUpdateFile {
		action = mode
	}

	switch action {
	case ActionNoChange:
		return Result{Action: ActionNoChange, DocumentID: doc.ID, BackupFile: name, Success: true, Message: "content identical"}
	case ActionConflict:
		return Result{
			Action: ActionConflict, DocumentID: doc.ID, BackupFile: name, Success: true,
			Message:      "db and file changed within the conflict window; manual resolution required",
			ConflictInfo: cmp,
		}
	case ActionUpdateDB:
		return e.updateDocument(ctx, doc, info, name, userID, dryRun)
	case ActionUpdateFile:
		return e.writeBackup(doc, name, dryRun)
	default:
		return Result{Action: ActionError, BackupFile: name, Message: fmt.Sprintf("unknown action %q", action)}
	}
}

// Preview classifies one backup file without mutating anything and
// without an acting user. Used by the directory watcher to publish
// predicted actions.
func (e *Engine) Preview(ctx context.Context, meta models.BackupFileMetadata) Result {
	name := filepath.Base(meta.Path)

	info, res := e.loadInfo(ctx, meta, true)
	if res != nil {
		return *res
	}

	doc, err := e.matcher.Find(ctx, info, nil)
	if err != nil {
		return Result{Action: ActionError, BackupFile: name, Message: fmt.Sprintf("match failed: %v", err)}
	}
	if doc == nil {
		return Result{Action: ActionCreate, BackupFile: name, Success: true, Message: "no matching document; sync would create one"}
	}
	cmp := Compare(doc, info, e.opts.ConflictWindow)
	return Result{
		Action: cmp.Recommendation, DocumentID: doc.ID, BackupFile: name, Success: true,
		Message:      "predicted action",
		ConflictInfo: cmp,
	}
}

// loadInfo parses filename and content for one file. A non-nil Result is
// a terminal error outcome for that file.
func (e *Engine) loadInfo(ctx context.Context, meta models.BackupFileMetadata, dryRun bool) (*backup.FileInfo, *Result) {
	name := filepath.Base(meta.Path)

	if _, err := backup.ParseFilename(name, meta.ModTime); err != nil {
		e.logger.Warn("sync: unparseable filename", slog.String("file", name), slog.String("error", err.Error()))
		return nil, &Result{Action: ActionError, BackupFile: name, Message: fmt.Sprintf("parse filename: %v", err)}
	}

	data, err := e.files.Read(meta.Path)
	if err != nil {
		e.logger.Warn("sync: read failed", slog.String("file", name), slog.String("error", err.Error()))
		return nil, &Result{Action: ActionError, BackupFile: name, Message: fmt.Sprintf("read file: %v", err)}
	}

	raw := string(data)
	if e.opts.ImageDir != "" && !dryRun {
		raw = e.fetcher.Materialize(ctx, raw, e.opts.ImageDir)
	}

	info, err := backup.LoadFileInfo(meta.Path, []byte(raw), meta.ModTime)
	if err != nil {
		e.logger.Warn("sync: parse failed", slog.String("file", name), slog.String("error", err.Error()))
		return nil, &Result{Action: ActionError, BackupFile: name, Message: fmt.Sprintf("parse content: %v", err)}
	}
	return info, nil
}

func (e *Engine) createDocument(ctx context.Context, info *backup.FileInfo, name string, userID int64, dryRun bool) Result {
	if userID <= 0 {
		return Result{Action: ActionError, BackupFile: name, Message: "document creation requires an authenticated user"}
	}
	tagSet := tags.Merge(info.Tags, tags.AutoDetect(info.Content))
	if dryRun {
		return Result{Action: ActionCreate, BackupFile: name, Success: true, Message: fmt.Sprintf("would create document %q", info.Title)}
	}

	doc, err := e.store.Create(ctx, &models.Draft{
		OwnerID:  userID,
		Title:    info.Title,
		Content:  info.Content,
		Author:   info.Author,
		IsPublic: info.IsPublic,
		Tags:     tagSet,
		Metadata: infoMetadata(info),
	})
	if err != nil {
		e.logger.Warn("sync: create failed", slog.String("file", name), slog.String("error", err.Error()))
		return Result{Action: ActionError, BackupFile: name, Message: fmt.Sprintf("create document: %v", err)}
	}
	return Result{Action: ActionCreate, DocumentID: doc.ID, BackupFile: name, Success: true, Message: fmt.Sprintf("created document %d", doc.ID)}
}

func (e *Engine) updateDocument(ctx context.Context, doc *models.Document, info *backup.FileInfo, name string, userID int64, dryRun bool) Result {
	if !canEdit(doc, userID) {
		return Result{Action: ActionError, DocumentID: doc.ID, BackupFile: name, Message: "not authorized to edit the matched document"}
	}
	if dryRun {
		return Result{Action: ActionUpdateDB, DocumentID: doc.ID, BackupFile: name, Success: true, Message: fmt.Sprintf("would update document %d from backup", doc.ID)}
	}

	detected := tags.Merge(info.Tags, tags.AutoDetect(info.Content))
	doc.Title = info.Title
	doc.Content = info.Content
	if info.Author != "" {
		doc.Author = info.Author
	}
	doc.Metadata = infoMetadata(info)
	doc.Tags = tags.Reconcile(doc.Tags, detected)

	if err := e.store.Save(ctx, doc); err != nil {
		e.logger.Warn("sync: save failed", slog.String("file", name), slog.String("error", err.Error()))
		return Result{Action: ActionError, DocumentID: doc.ID, BackupFile: name, Message: fmt.Sprintf("save document: %v", err)}
	}
	return Result{Action: ActionUpdateDB, DocumentID: doc.ID, BackupFile: name, Success: true, Message: fmt.Sprintf("updated document %d from backup", doc.ID)}
}

// writeBackup renders the document's disk-write variant into a new file.
// Existing backups are never overwritten; when the current backup is
// already on disk (same generated name, or the same content under another
// name) the file is reported as up to date so repeated sweeps converge.
func (e *Engine) writeBackup(doc *models.Document, name string, dryRun bool) Result {
	newName := backup.GenerateFilename(doc)
	if e.files.Exists(newName) {
		return Result{Action: ActionNoChange, DocumentID: doc.ID, BackupFile: name, Success: true, Message: fmt.Sprintf("current backup %s already on disk", newName), NewBackup: newName}
	}
	if existing, err := e.existingContentHashes(); err != nil {
		e.logger.Warn("sync: scan backup dir failed", slog.String("error", err.Error()))
	} else if _, dup := existing[checksum.SumString(backup.Render(doc, false))]; dup {
		return Result{Action: ActionNoChange, DocumentID: doc.ID, BackupFile: name, Success: true, Message: "current backup content already on disk"}
	}
	if dryRun {
		return Result{Action: ActionUpdateFile, DocumentID: doc.ID, BackupFile: name, Success: true, Message: fmt.Sprintf("would write new backup %s", newName), NewBackup: newName}
	}
	content := backup.Render(doc, true)
	if err := e.files.WriteNew(newName, []byte(content)); err != nil {
		e.logger.Warn("sync: write backup failed", slog.String("file", newName), slog.String("error", err.Error()))
		return Result{Action: ActionError, DocumentID: doc.ID, BackupFile: name, Message: fmt.Sprintf("write backup: %v", err)}
	}
	return Result{Action: ActionUpdateFile, DocumentID: doc.ID, BackupFile: name, Success: true, Message: fmt.Sprintf("wrote new backup %s", newName), NewBackup: newName}
}

func infoMetadata(info *backup.FileInfo) *models.Metadata {
	return &models.Metadata{
		Frontmatter:   info.Parsed.Frontmatter,
		InternalLinks: info.InternalLinkTargets(),
		Hashtags:      info.HashtagValues(),
	}
}
