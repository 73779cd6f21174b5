package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/proofpick/proofpick/internal/api/response"
	"github.com/proofpick/proofpick/internal/archive"
	"github.com/proofpick/proofpick/internal/downloads"
	"github.com/proofpick/proofpick/internal/jobstore"
	"github.com/proofpick/proofpick/internal/store"
	"github.com/proofpick/proofpick/pkg/models"
)

// Starter kicks off an archive-build job.
type Starter interface {
	Start(ctx context.Context, projectID uuid.UUID, mode string) (*models.Job, error)
}

// Archiver streams a complete archive synchronously.
type Archiver interface {
	WriteArchive(ctx context.Context, w io.Writer, project *models.SelectionProject, mode string) error
}

// jobResponse is the job view returned to clients. The archive's filesystem
// path stays server-side.
type jobResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
	Current  int    `json:"current"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`
}

func toJobResponse(job *models.Job) jobResponse {
	return jobResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Total:    job.Total,
		Current:  job.Current,
		Filename: job.Filename,
		Message:  job.Message,
	}
}

// NewStartDownloadHandler returns the handler for
// POST /api/v1/selections/{selectionID}/download?mode=selected|commented.
// Responds 202 with the job to poll.
func NewStartDownloadHandler(starter Starter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "selectionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "selectionID must be a valid UUID", nil)
			return
		}
		mode := r.URL.Query().Get("mode")

		job, err := starter.Start(r.Context(), id, mode)
		if err != nil {
			switch {
			case errors.Is(err, downloads.ErrInvalidMode):
				response.Error(w, http.StatusBadRequest, "INVALID_MODE",
					"mode must be selected or commented", nil)
			case errors.Is(err, downloads.ErrNoPhotos):
				response.Error(w, http.StatusBadRequest, "EMPTY_SELECTION",
					"No photos match the requested mode", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Selection not found", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Failed to start download", nil)
			}
			return
		}

		response.Accepted(w, toJobResponse(job))
	}
}

// NewJobStatusHandler returns the handler for GET /api/v1/downloads/{jobID}.
func NewJobStatusHandler(jobs jobstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
		if errors.Is(err, jobstore.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Download job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		response.JSON(w, toJobResponse(job))
	}
}

// NewServeArchiveHandler returns the handler for
// GET /api/v1/downloads/{jobID}/archive. Only completed jobs whose archive
// still exists on disk are servable; everything else is a 404.
func NewServeArchiveHandler(jobs jobstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
		if errors.Is(err, jobstore.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Download job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		if job.Status != models.JobStatusCompleted || job.ArchivePath == "" {
			response.Error(w, http.StatusNotFound, "ARCHIVE_NOT_READY",
				"Archive is not available for this job", nil)
			return
		}

		f, err := os.Open(job.ArchivePath)
		if err != nil {
			response.Error(w, http.StatusNotFound, "ARCHIVE_EXPIRED",
				"Archive has expired, start a new download", nil)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read archive", nil)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Filename))
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
		io.Copy(w, f)
	}
}

// NewSyncDownloadHandler returns the handler for
// GET /api/v1/selections/{selectionID}/download/archive?mode=. The archive is
// built and streamed on the request itself; small selections only, nothing to
// poll.
func NewSyncDownloadHandler(s store.Store, archiver Archiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "selectionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "selectionID must be a valid UUID", nil)
			return
		}
		mode := r.URL.Query().Get("mode")

		project, err := s.GetProject(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Selection not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load selection", nil)
			return
		}

		// Validate before writing headers; once streaming starts the status
		// code is committed.
		if !archive.ValidMode(mode) {
			response.Error(w, http.StatusBadRequest, "INVALID_MODE",
				"mode must be selected or commented", nil)
			return
		}
		if len(archive.FilterPhotos(project.Photos, mode)) == 0 {
			response.Error(w, http.StatusBadRequest, "EMPTY_SELECTION",
				"No photos match the requested mode", nil)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", archive.Filename(project.Title, mode)))
		if err := archiver.WriteArchive(r.Context(), w, project, mode); err != nil {
			// Mid-stream failure; the truncated archive tells the client.
			return
		}
	}
}
