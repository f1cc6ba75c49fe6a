package api

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/reconcile"
	"github.com/starford/raido/internal/storage"
)

// Service coordinates the reconciliation engine for the API layer and
// retains the most recent reports.
type Service struct {
	engine *reconcile.Engine
	files  storage.Provider

	mu         sync.Mutex
	lastSync   *reconcile.Report
	lastExport *reconcile.ExportReport
}

// NewService creates a new API service.
func NewService(engine *reconcile.Engine, files storage.Provider) *Service {
	return &Service{engine: engine, files: files}
}

// Sync runs a full reconciliation sweep and retains the report.
func (s *Service) Sync(ctx context.Context, userID int64, dryRun bool) *reconcile.Report {
	report := s.engine.Sweep(ctx, userID, dryRun)
	s.mu.Lock()
	s.lastSync = report
	s.mu.Unlock()
	return report
}

// SyncFile reconciles a single backup file, optionally forcing a
// direction for manual conflict resolution.
func (s *Service) SyncFile(ctx context.Context, path string, userID int64, dryRun bool, mode reconcile.Action) (reconcile.Result, error) {
	metas, err := s.files.List("")
	if err != nil {
		return reconcile.Result{}, err
	}
	var meta *models.BackupFileMetadata
	for i := range metas {
		if metas[i].Path == path {
			meta = &metas[i]
			break
		}
	}
	if meta == nil {
		return reconcile.Result{}, os.ErrNotExist
	}
	switch mode {
	case "", reconcile.ActionUpdateDB, reconcile.ActionUpdateFile:
	default:
		return reconcile.Result{}, fmt.Errorf("invalid mode %q", mode)
	}
	return s.engine.SyncFile(ctx, *meta, userID, dryRun, mode), nil
}

// Export runs a bulk export and retains the report.
func (s *Service) Export(ctx context.Context, userID int64) *reconcile.ExportReport {
	report := s.engine.ExportAll(ctx, userID)
	s.mu.Lock()
	s.lastExport = report
	s.mu.Unlock()
	return report
}

// LatestReports returns the most recent sync and export reports, either
// of which may be nil.
func (s *Service) LatestReports() (*reconcile.Report, *reconcile.ExportReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync, s.lastExport
}
