package jobstore

import (
	"context"
	"sync"
	"time"

	"github.com/proofpick/proofpick/pkg/models"
)

type memoryEntry struct {
	job       models.Job
	expiresAt time.Time
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore implements Store with a mutex-guarded map. Default for
// single-instance deployments and the test double for the orchestrator.
// Expired records are dropped lazily on access.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]memoryEntry
	counters  map[string]counterEntry
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore creates a MemoryStore with the given record retention.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]memoryEntry),
		counters:  make(map[string]counterEntry),
		retention: retention,
		now:       time.Now,
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Put(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = memoryEntry{
		job:       *job,
		expiresAt: s.now().Add(s.retention),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(e.expiresAt) {
		delete(s.jobs, id)
		return nil, ErrNotFound
	}
	job := e.job
	return &job, nil
}

func (s *MemoryStore) IncrWithExpiry(_ context.Context, key string, expiry time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = counterEntry{count: 0, expiresAt: now.Add(expiry)}
	}
	c.count++
	s.counters[key] = c
	return c.count, nil
}

var _ Store = (*MemoryStore)(nil)
