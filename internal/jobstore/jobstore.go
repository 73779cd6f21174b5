// Package jobstore holds archive-build job state. Records are whole-document:
// Put always replaces the full job, Get returns a copy. Each job has exactly
// one writer (its build goroutine), so last-write-wins is enough.
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/proofpick/proofpick/pkg/models"
)

// ErrNotFound is returned by Get for unknown or expired job IDs.
var ErrNotFound = errors.New("job not found")

// Store is the job-state interface. Implementations must be safe for
// concurrent use: build goroutines write while pollers read.
type Store interface {
	Put(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	Ping(ctx context.Context) error

	// IncrWithExpiry backs the download-start rate limiter.
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// JobKey is the storage key for a job record.
func JobKey(id string) string {
	return "job:" + id
}

// RateLimitKey is the storage key for a rate-limit counter window.
func RateLimitKey(bucket string) string {
	return "ratelimit:" + bucket
}
