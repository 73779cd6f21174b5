package downloads

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Janitor removes archive files whose jobs have aged out. Job records expire
// through the store's own TTL; the janitor handles the files they leave on
// disk.
type Janitor struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	stop chan struct{}
	done chan struct{}
}

// NewJanitor creates a Janitor sweeping dir every interval, removing
// job-*.zip files older than retention.
func NewJanitor(dir string, retention, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		dir:       dir,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop on its own goroutine.
func (j *Janitor) Start() {
	go j.run()
}

// Stop halts the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}

func (j *Janitor) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

// sweep removes expired archive files. Only files matching the job archive
// naming pattern are touched; anything else in the directory is left alone.
func (j *Janitor) sweep() int {
	matches, err := filepath.Glob(filepath.Join(j.dir, "job-*.zip"))
	if err != nil {
		j.logger.Warn("archive sweep failed", slog.String("error", err.Error()))
		return 0
	}

	removed := 0
	cutoff := j.now().Add(-j.retention)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			j.logger.Warn("expired archive removal failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	if removed > 0 {
		j.logger.Info("expired archives removed", slog.Int("count", removed))
	}
	return removed
}
