package models

import (
	"math"
	"time"
)

const (
	JobStatusStarting   = "starting"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// Job tracks one async archive build. The API returns a job_id on
// POST /api/v1/selections/{id}/download; the client polls
// GET /api/v1/downloads/{job_id} until status is completed or error, then
// fetches the archive from /api/v1/downloads/{job_id}/archive.
//
// Once a job reaches completed or error it is terminal: no field changes
// again until the record expires.
type Job struct {
	ID       string `json:"job_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
	Current  int    `json:"current"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`

	// ArchivePath is where the build writes the zip. Internal bookkeeping;
	// handlers must not expose it to clients.
	ArchivePath string    `json:"archive_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

// SetProgress records one more processed photo and recomputes the percentage.
func (j *Job) SetProgress(current int) {
	j.Current = current
	if j.Total > 0 {
		j.Progress = int(math.Round(float64(current) / float64(j.Total) * 100))
	}
}
