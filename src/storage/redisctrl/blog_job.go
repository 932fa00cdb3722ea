package redisctrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"blogforge/src/core/blogflow"
)

const DefaultTTL = 7 * 24 * time.Hour

// BlogJobStore keeps each job as one JSON document under blog_job:<id>
type BlogJobStore struct {
	redis *redis.Client
	ttl   time.Duration
}

type Option func(s *BlogJobStore)

// WithTTL sets how long a job document is kept after its last write
func WithTTL(ttl time.Duration) Option {
	return func(s *BlogJobStore) {
		s.ttl = ttl
	}
}

func NewBlogJobStore(redisClient *redis.Client, opts ...Option) *BlogJobStore {
	s := &BlogJobStore{
		redis: redisClient,
		ttl:   DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ blogflow.Backend = (*BlogJobStore)(nil)
	_ blogflow.Lister  = (*BlogJobStore)(nil)
)

func jobKey(id string) string {
	return fmt.Sprintf("blog_job:%s", id)
}

func (s *BlogJobStore) Insert(ctx context.Context, job *blogflow.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ok, err := s.redis.SetNX(ctx, jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	return nil
}

func (s *BlogJobStore) Fetch(ctx context.Context, id string) (*blogflow.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, blogflow.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return decodeJob(data)
}

// Replace writes the job inside a WATCH transaction so a concurrent writer
// between the revision check and the SET aborts this write.
func (s *BlogJobStore) Replace(ctx context.Context, job *blogflow.Job, baseRevision int64) error {
	key := jobKey(job.ID)
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return blogflow.ErrJobNotFound
			}
			return err
		}
		current, err := decodeJob(raw)
		if err != nil {
			return err
		}
		if current.Revision != baseRevision {
			return blogflow.ErrRevisionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	err = s.redis.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return blogflow.ErrRevisionConflict
	case errors.Is(err, blogflow.ErrRevisionConflict), errors.Is(err, blogflow.ErrJobNotFound):
		return err
	default:
		return fmt.Errorf("failed to save job: %w", err)
	}
}

// ListByStatus scans every job document and keeps those in status. Keys expire
// with their TTL, so the scan only ever sees jobs written within it.
func (s *BlogJobStore) ListByStatus(ctx context.Context, status blogflow.Status, limit int) ([]*blogflow.Job, error) {
	var jobs []*blogflow.Job
	iter := s.redis.Scan(ctx, 0, jobKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.redis.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get job: %w", err)
		}
		job, err := decodeJob(data)
		if err != nil {
			return nil, err
		}
		if job.Status == status {
			jobs = append(jobs, job)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].UpdatedAt.Equal(jobs[j].UpdatedAt) {
			return jobs[i].UpdatedAt.After(jobs[j].UpdatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func decodeJob(data []byte) (*blogflow.Job, error) {
	var job blogflow.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
