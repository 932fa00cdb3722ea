package blogflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend keeps jobs in process memory. It is used by tests and the local CLI.
type MemoryBackend struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Lister  = (*MemoryBackend)(nil)
)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{jobs: make(map[string]*Job)}
}

func (b *MemoryBackend) Insert(ctx context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	b.jobs[job.ID] = job.Clone()
	return nil
}

func (b *MemoryBackend) Fetch(ctx context.Context, id string) (*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	job, ok := b.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

func (b *MemoryBackend) Replace(ctx context.Context, job *Job, baseRevision int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}
	if current.Revision != baseRevision {
		return ErrRevisionConflict
	}
	b.jobs[job.ID] = job.Clone()
	return nil
}

func (b *MemoryBackend) ListByStatus(ctx context.Context, status Status, limit int) ([]*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var jobs []*Job
	for _, job := range b.jobs {
		if job.Status == status {
			jobs = append(jobs, job.Clone())
		}
	}
	sortByUpdatedDesc(jobs)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func sortByUpdatedDesc(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].UpdatedAt.Equal(jobs[j].UpdatedAt) {
			return jobs[i].UpdatedAt.After(jobs[j].UpdatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
}
