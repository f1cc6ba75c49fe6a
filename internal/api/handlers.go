package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/starford/raido/internal/reconcile"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Sync handles POST /api/sync: one full reconciliation sweep.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		UserID int64 `json:"user_id"`
		DryRun bool  `json:"dry_run"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	report := h.svc.Sync(r.Context(), req.UserID, req.DryRun)
	writeJSON(w, http.StatusOK, report)
}

// SyncFile handles POST /api/sync/file: reconcile one backup file, with
// an optional explicit direction for manual conflict resolution.
func (h *Handler) SyncFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Path   string `json:"path"`
		UserID int64  `json:"user_id"`
		DryRun bool   `json:"dry_run"`
		Mode   string `json:"mode"` // "", "update_db", "update_file"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.SyncFile(r.Context(), req.Path, req.UserID, req.DryRun, reconcile.Action(req.Mode))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody("backup file not found"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Export handles POST /api/export: one bulk export run.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	report := h.svc.Export(r.Context(), req.UserID)
	writeJSON(w, http.StatusOK, report)
}

// LatestReports handles GET /api/reports/latest.
func (h *Handler) LatestReports(w http.ResponseWriter, _ *http.Request) {
	syncReport, exportReport := h.svc.LatestReports()
	writeJSON(w, http.StatusOK, map[string]any{
		"sync":   syncReport,
		"export": exportReport,
	})
}
