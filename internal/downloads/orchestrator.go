// Package downloads runs archive-build jobs in the background and serves
// synchronous archive streams. A job is started per download request, bounded
// by a weighted semaphore, and reports progress through the job store.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/proofpick/proofpick/internal/archive"
	"github.com/proofpick/proofpick/internal/drive"
	"github.com/proofpick/proofpick/internal/jobstore"
	"github.com/proofpick/proofpick/internal/store"
	"github.com/proofpick/proofpick/pkg/models"
)

var (
	// ErrInvalidMode is returned when the requested download mode is not
	// "selected" or "commented".
	ErrInvalidMode = errors.New("invalid download mode")
	// ErrNoPhotos is returned when no photos in the project match the
	// requested mode.
	ErrNoPhotos = errors.New("no photos match the requested mode")
)

// Config carries the orchestrator's tunables.
type Config struct {
	ArchiveDir        string
	MaxConcurrentJobs int
	FetchTimeout      time.Duration
}

// Orchestrator owns the lifecycle of archive-build jobs. Builds run on their
// own goroutines against the orchestrator's root context, so an HTTP request
// finishing does not cancel the build it started.
type Orchestrator struct {
	ctx    context.Context
	cancel context.CancelFunc

	projects store.Store
	jobs     jobstore.Store
	drive    drive.Client
	cfg      Config
	logger   *slog.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New creates an Orchestrator. Call Shutdown to drain in-flight builds.
func New(projects store.Store, jobs jobstore.Store, client drive.Client, cfg Config, logger *slog.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		ctx:      ctx,
		cancel:   cancel,
		projects: projects,
		jobs:     jobs,
		drive:    client,
		cfg:      cfg,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
	}
}

// Start validates the request, records a job in the starting state, and kicks
// off the build goroutine. It returns a snapshot of the job so the handler
// can hand the client its job_id immediately; the build goroutine exclusively
// owns the mutable record, and callers poll the job store for updates.
//
// Validation happens here, synchronously: an unknown mode, a missing project,
// or an empty selection never produce a job at all.
func (o *Orchestrator) Start(ctx context.Context, projectID uuid.UUID, mode string) (*models.Job, error) {
	if !archive.ValidMode(mode) {
		return nil, ErrInvalidMode
	}

	project, err := o.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	photos := archive.FilterPhotos(project.Photos, mode)
	if len(photos) == 0 {
		return nil, ErrNoPhotos
	}

	job := &models.Job{
		ID:        uuid.NewString(),
		Status:    models.JobStatusStarting,
		Total:     len(photos),
		CreatedAt: time.Now().UTC(),
	}
	if err := o.jobs.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}

	snapshot := *job
	o.wg.Add(1)
	go o.run(job, project.Title, photos, mode)

	return &snapshot, nil
}

// run waits for a build slot, builds the archive, and settles the job into a
// terminal state. The job stays in "starting" while queued behind the
// semaphore.
func (o *Orchestrator) run(job *models.Job, title string, photos []models.Photo, mode string) {
	defer o.wg.Done()

	if err := o.sem.Acquire(o.ctx, 1); err != nil {
		o.fail(job, "server shutting down")
		return
	}
	defer o.sem.Release(1)

	if err := o.build(job, title, photos, mode); err != nil {
		o.logger.Error("archive build failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
		o.fail(job, err.Error())
	}
}

func (o *Orchestrator) build(job *models.Job, title string, photos []models.Photo, mode string) error {
	path := filepath.Join(o.cfg.ArchiveDir, "job-"+job.ID+".zip")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	job.ArchivePath = path
	job.Status = models.JobStatusProcessing
	if err := o.jobs.Put(o.ctx, job); err != nil {
		f.Close()
		return fmt.Errorf("record job progress: %w", err)
	}

	b := archive.NewBuilder(f)
	err = o.writePhotos(o.ctx, b, photos, mode, func(current int) {
		job.SetProgress(current)
		if perr := o.jobs.Put(o.ctx, job); perr != nil {
			o.logger.Warn("job progress update failed",
				slog.String("job_id", job.ID),
				slog.String("error", perr.Error()))
		}
	})
	if err != nil {
		b.Close()
		f.Close()
		return err
	}
	if err := b.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("flush archive file: %w", err)
	}

	job.Status = models.JobStatusCompleted
	job.Filename = archive.Filename(title, mode)
	if err := o.jobs.Put(context.Background(), job); err != nil {
		return fmt.Errorf("record job completion: %w", err)
	}

	o.logger.Info("archive build completed",
		slog.String("job_id", job.ID),
		slog.String("filename", job.Filename),
		slog.Int("photos", job.Total))
	return nil
}

// writePhotos streams every photo into the builder in input order. Fetch
// failures become error placeholder entries; stream errors abort the build.
// Progress counts every photo, including skipped ones, so current always
// reaches total.
func (o *Orchestrator) writePhotos(ctx context.Context, b *archive.Builder, photos []models.Photo, mode string, onProgress func(int)) error {
	for i, photo := range photos {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("build aborted: %w", err)
		}
		index := i + 1

		fileID, ok := drive.ExtractFileID(photo.URL)
		if !ok {
			o.logger.Warn("skipping photo with unresolvable URL",
				slog.Int("index", index),
				slog.String("url", photo.URL))
			onProgress(index)
			continue
		}

		if err := o.appendPhoto(ctx, b, index, fileID, photo, mode); err != nil {
			return err
		}
		onProgress(index)
	}
	return nil
}

// appendPhoto fetches one photo and writes its entry, its comment sidecar in
// commented mode, or an error placeholder when the fetch fails on both paths.
func (o *Orchestrator) appendPhoto(ctx context.Context, b *archive.Builder, index int, fileID string, photo models.Photo, mode string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()

	rc, err := o.drive.Fetch(fetchCtx, fileID)
	if err != nil {
		return b.AddError(index, "Error downloading file: "+err.Error())
	}
	defer rc.Close()

	if err := b.AddPhoto(index, rc); err != nil {
		return err
	}
	if mode == archive.ModeCommented && strings.TrimSpace(photo.Comment) != "" {
		return b.AddComment(index, photo.Comment)
	}
	return nil
}

// WriteArchive streams a complete archive for the project directly to w.
// Used by the synchronous download endpoint, where the client waits on the
// response instead of polling a job.
func (o *Orchestrator) WriteArchive(ctx context.Context, w io.Writer, project *models.SelectionProject, mode string) error {
	if !archive.ValidMode(mode) {
		return ErrInvalidMode
	}
	photos := archive.FilterPhotos(project.Photos, mode)
	if len(photos) == 0 {
		return ErrNoPhotos
	}

	b := archive.NewBuilder(w)
	if err := o.writePhotos(ctx, b, photos, mode, func(int) {}); err != nil {
		b.Close()
		return err
	}
	return b.Close()
}

// fail settles the job into the error state and removes any partial archive.
// Uses a background context so terminal writes survive shutdown.
func (o *Orchestrator) fail(job *models.Job, message string) {
	if job.ArchivePath != "" {
		if err := os.Remove(job.ArchivePath); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("partial archive cleanup failed",
				slog.String("path", job.ArchivePath),
				slog.String("error", err.Error()))
		}
		job.ArchivePath = ""
	}
	job.Status = models.JobStatusError
	job.Message = message
	if err := o.jobs.Put(context.Background(), job); err != nil {
		o.logger.Error("job failure update failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	}
}

// Shutdown waits up to timeout for in-flight builds to finish, then cancels
// the remainder. Canceled builds settle as errored jobs before returning.
func (o *Orchestrator) Shutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		o.cancel()
		<-done
	}
	o.cancel()
}
