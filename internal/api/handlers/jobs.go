package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/backup"
	"github.com/dvloznov/financas-voz/internal/jobs"
)

// DefaultSnapshotListLimit is used when GET /api/backups has no limit.
const DefaultSnapshotListLimit = 20

// BackupTargets reports which job types have a configured destination.
type BackupTargets interface {
	Enabled(t jobs.JobType) bool
}

// SnapshotLister lists stored snapshots, newest first.
type SnapshotLister interface {
	List(ctx context.Context, limit int) ([]backup.SnapshotInfo, error)
}

// BackupsHandler handles /api/backups.
type BackupsHandler struct {
	publisher jobs.Publisher
	targets   BackupTargets
	snapshots SnapshotLister
	log       zerolog.Logger
}

// NewBackupsHandler creates a new backups handler. snapshots may be nil.
func NewBackupsHandler(publisher jobs.Publisher, targets BackupTargets, snapshots SnapshotLister, log zerolog.Logger) *BackupsHandler {
	return &BackupsHandler{publisher: publisher, targets: targets, snapshots: snapshots, log: log}
}

// ListBackups handles GET /api/backups.
func (h *BackupsHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backup target not configured")
		return
	}

	limit := DefaultSnapshotListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	snapshots, err := h.snapshots.List(r.Context(), limit)
	if errors.Is(err, backup.ErrNotConfigured) {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backup target not configured")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list snapshots")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// EnqueueBackup handles POST /api/backups. The type defaults to snapshot.
func (h *BackupsHandler) EnqueueBackup(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Type jobs.JobType `json:"type"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type == "" {
		req.Type = jobs.JobTypeSnapshot
	}
	if !req.Type.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "type must be snapshot or export")
		return
	}
	if !h.targets.Enabled(req.Type) {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backup target not configured")
		return
	}

	job := &jobs.Job{Type: req.Type}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue backup job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue backup job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("job_type", string(job.Type)).Msg("Backup job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"type":   string(job.Type),
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
