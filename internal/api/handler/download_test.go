package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofpick/proofpick/internal/api/handler"
	"github.com/proofpick/proofpick/internal/archive"
	"github.com/proofpick/proofpick/internal/downloads"
	"github.com/proofpick/proofpick/internal/jobstore"
	"github.com/proofpick/proofpick/internal/store"
	"github.com/proofpick/proofpick/pkg/models"
)

// fakeStarter records Start calls and returns a canned job or error.
type fakeStarter struct {
	job     *models.Job
	err     error
	gotID   uuid.UUID
	gotMode string
}

func (f *fakeStarter) Start(_ context.Context, projectID uuid.UUID, mode string) (*models.Job, error) {
	f.gotID = projectID
	f.gotMode = mode
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

// fakeArchiver writes fixed bytes instead of building a real archive.
type fakeArchiver struct {
	payload []byte
	err     error
}

func (f *fakeArchiver) WriteArchive(_ context.Context, w io.Writer, _ *models.SelectionProject, _ string) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write(f.payload)
	return err
}

// --- start download ---

func TestStartDownload(t *testing.T) {
	id := uuid.New()
	starter := &fakeStarter{job: &models.Job{
		ID:          "job-abc",
		Status:      models.JobStatusStarting,
		Total:       3,
		ArchivePath: "/var/tmp/job-abc.zip",
	}}

	r := chi.NewRouter()
	r.Post("/api/v1/selections/{selectionID}/download", handler.NewStartDownloadHandler(starter))

	req := httptest.NewRequest("POST", "/api/v1/selections/"+id.String()+"/download?mode=selected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, id, starter.gotID)
	assert.Equal(t, "selected", starter.gotMode)

	data := dataField(t, w)
	assert.Equal(t, "job-abc", data["job_id"])
	assert.Equal(t, models.JobStatusStarting, data["status"])
	assert.NotContains(t, w.Body.String(), "archive_path", "filesystem paths never leak to clients")
}

func TestStartDownload_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"invalid mode", downloads.ErrInvalidMode, http.StatusBadRequest, "INVALID_MODE"},
		{"empty selection", downloads.ErrNoPhotos, http.StatusBadRequest, "EMPTY_SELECTION"},
		{"missing project", store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"store failure", assert.AnError, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/api/v1/selections/{selectionID}/download",
				handler.NewStartDownloadHandler(&fakeStarter{err: tc.err}))

			req := httptest.NewRequest("POST",
				"/api/v1/selections/"+uuid.NewString()+"/download?mode=selected", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestStartDownload_BadProjectID(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/selections/{selectionID}/download",
		handler.NewStartDownloadHandler(&fakeStarter{}))

	req := httptest.NewRequest("POST", "/api/v1/selections/not-a-uuid/download", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- job status ---

func TestJobStatus(t *testing.T) {
	jobs := jobstore.NewMemoryStore(time.Hour)
	require.NoError(t, jobs.Put(context.Background(), &models.Job{
		ID:          "job-1",
		Status:      models.JobStatusProcessing,
		Progress:    40,
		Total:       5,
		Current:     2,
		ArchivePath: "/var/tmp/job-1.zip",
	}))

	r := chi.NewRouter()
	r.Get("/api/v1/downloads/{jobID}", handler.NewJobStatusHandler(jobs))

	req := httptest.NewRequest("GET", "/api/v1/downloads/job-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, models.JobStatusProcessing, data["status"])
	assert.Equal(t, float64(40), data["progress"])
	assert.Equal(t, float64(2), data["current"])
	assert.NotContains(t, w.Body.String(), "archive_path")
}

func TestJobStatus_NotFound(t *testing.T) {
	jobs := jobstore.NewMemoryStore(time.Hour)

	r := chi.NewRouter()
	r.Get("/api/v1/downloads/{jobID}", handler.NewJobStatusHandler(jobs))

	req := httptest.NewRequest("GET", "/api/v1/downloads/ghost", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- serve archive ---

func serveArchiveRouter(jobs jobstore.Store) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/downloads/{jobID}/archive", handler.NewServeArchiveHandler(jobs))
	return r
}

func TestServeArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job-done.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip bytes"), 0o644))

	jobs := jobstore.NewMemoryStore(time.Hour)
	require.NoError(t, jobs.Put(context.Background(), &models.Job{
		ID:          "job-done",
		Status:      models.JobStatusCompleted,
		Filename:    "Amit_weds_Riya_selected.zip",
		ArchivePath: path,
	}))

	req := httptest.NewRequest("GET", "/api/v1/downloads/job-done/archive", nil)
	w := httptest.NewRecorder()
	serveArchiveRouter(jobs).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Amit_weds_Riya_selected.zip"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "9", w.Header().Get("Content-Length"))
	assert.Equal(t, "zip bytes", w.Body.String())
}

func TestServeArchive_NotTerminal(t *testing.T) {
	jobs := jobstore.NewMemoryStore(time.Hour)
	require.NoError(t, jobs.Put(context.Background(), &models.Job{
		ID:     "job-running",
		Status: models.JobStatusProcessing,
	}))

	req := httptest.NewRequest("GET", "/api/v1/downloads/job-running/archive", nil)
	w := httptest.NewRecorder()
	serveArchiveRouter(jobs).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ARCHIVE_NOT_READY")
}

func TestServeArchive_FileSweptAway(t *testing.T) {
	jobs := jobstore.NewMemoryStore(time.Hour)
	require.NoError(t, jobs.Put(context.Background(), &models.Job{
		ID:          "job-expired",
		Status:      models.JobStatusCompleted,
		Filename:    "gone.zip",
		ArchivePath: filepath.Join(t.TempDir(), "job-expired.zip"),
	}))

	req := httptest.NewRequest("GET", "/api/v1/downloads/job-expired/archive", nil)
	w := httptest.NewRecorder()
	serveArchiveRouter(jobs).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ARCHIVE_EXPIRED")
}

func TestServeArchive_UnknownJob(t *testing.T) {
	jobs := jobstore.NewMemoryStore(time.Hour)

	req := httptest.NewRequest("GET", "/api/v1/downloads/ghost/archive", nil)
	w := httptest.NewRecorder()
	serveArchiveRouter(jobs).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- sync download ---

func syncDownloadRouter(s store.Store, a handler.Archiver) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/selections/{selectionID}/download/archive", handler.NewSyncDownloadHandler(s, a))
	return r
}

func TestSyncDownload(t *testing.T) {
	s := newMemProjects()
	p := seedProject(t, s)
	router := syncDownloadRouter(s, &fakeArchiver{payload: []byte("streamed zip")})

	req := httptest.NewRequest("GET",
		"/api/v1/selections/"+p.ID.String()+"/download/archive?mode="+archive.ModeSelected, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Amit_weds_Riya_selected.zip"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "streamed zip", w.Body.String())
}

func TestSyncDownload_InvalidMode(t *testing.T) {
	s := newMemProjects()
	p := seedProject(t, s)
	router := syncDownloadRouter(s, &fakeArchiver{})

	req := httptest.NewRequest("GET",
		"/api/v1/selections/"+p.ID.String()+"/download/archive?mode=everything", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_MODE")
}

func TestSyncDownload_EmptySelection(t *testing.T) {
	s := newMemProjects()
	p := seedProject(t, s)
	router := syncDownloadRouter(s, &fakeArchiver{})

	// No photo in the seeded project carries a comment.
	req := httptest.NewRequest("GET",
		"/api/v1/selections/"+p.ID.String()+"/download/archive?mode="+archive.ModeCommented, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EMPTY_SELECTION")
}

func TestSyncDownload_ProjectNotFound(t *testing.T) {
	s := newMemProjects()
	router := syncDownloadRouter(s, &fakeArchiver{})

	req := httptest.NewRequest("GET",
		"/api/v1/selections/"+uuid.NewString()+"/download/archive?mode=selected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
