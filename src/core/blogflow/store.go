package blogflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultMaxWriteAttempts = 3

// Backend is the document store holding job state. Replace must only succeed when the
// stored revision still equals baseRevision.
type Backend interface {
	Insert(ctx context.Context, job *Job) error
	Fetch(ctx context.Context, id string) (*Job, error)
	Replace(ctx context.Context, job *Job, baseRevision int64) error
}

// Lister is implemented by backends that can list jobs by status, most recently
// updated first.
type Lister interface {
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Job, error)
}

// Patch is a partial update of the generated fields of a job. Nil fields are left unchanged.
type Patch struct {
	Outline       *string
	ResetSections bool
	FullMarkdown  *string
	SEOMetadata   *SEOMetadata
}

// Store implements the job operations on top of a Backend. Every operation reads the
// current document, applies one change and writes it back conditioned on the revision
// it read, retrying a bounded number of times on conflict.
type Store struct {
	backend     Backend
	newID       func() string
	now         func() time.Time
	maxAttempts int
}

type StoreOption func(s *Store)

// WithIDGenerator sets the function used to assign job IDs.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithClock sets the time source for timestamps and log entries.
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = fn
	}
}

func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:     backend,
		newID:       uuid.NewString,
		now:         time.Now,
		maxAttempts: defaultMaxWriteAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create inserts a new pending job for the brief.
func (s *Store) Create(ctx context.Context, brief Brief) (*Job, error) {
	now := s.now().UTC()
	job := &Job{
		ID:          s.newID(),
		Status:      StatusPending,
		CurrentStep: "Queued",
		Brief:       brief.clone(),
		Sections:    []string{},
		Logs:        []string{s.logEntry(now, "Job created")},
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.backend.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job.Clone(), nil
}

// Get returns the job or ErrJobNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	job, err := s.backend.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns up to limit jobs in status, most recently updated first.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Job, error) {
	lister, ok := s.backend.(Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown job status %q", status)
	}
	return lister.ListByStatus(ctx, status, limit)
}

// SetStatus moves the job to a later status.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) (*Job, error) {
	return s.mutate(ctx, id, func(job *Job) error {
		if status == StatusCompleted || status == StatusFailed {
			return fmt.Errorf("%w: use Complete or Fail for %s", ErrInvalidTransition, status)
		}
		if !job.Status.CanAdvanceTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
		}
		job.Status = status
		return nil
	})
}

// SetProgress records progress and the current step. Progress never decreases.
func (s *Store) SetProgress(ctx context.Context, id string, progress int, currentStep string) (*Job, error) {
	return s.mutate(ctx, id, func(job *Job) error {
		job.Progress = clampProgress(max(job.Progress, progress))
		job.CurrentStep = currentStep
		return nil
	})
}

// Advance sets status, progress and current step in one write.
func (s *Store) Advance(ctx context.Context, id string, status Status, progress int, currentStep string) (*Job, error) {
	return s.mutate(ctx, id, func(job *Job) error {
		if status == StatusCompleted || status == StatusFailed || !job.Status.CanAdvanceTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
		}
		job.Status = status
		job.Progress = clampProgress(max(job.Progress, progress))
		job.CurrentStep = currentStep
		return nil
	})
}

// SetFields applies a partial update of generated content. The outline is written once,
// while the job is generating its outline. Full markdown and SEO metadata are written
// while the job is generating SEO and before metadata exists. Anything else returns
// ErrStepConflict and leaves the job unchanged.
func (s *Store) SetFields(ctx context.Context, id string, patch Patch) (*Job, error) {
	return s.mutate(ctx, id, func(job *Job) error {
		if patch.Outline != nil || patch.ResetSections {
			if job.Status != StatusGeneratingOutline || job.Outline != "" {
				return fmt.Errorf("%w: outline write in status %s", ErrStepConflict, job.Status)
			}
		}
		if patch.FullMarkdown != nil || patch.SEOMetadata != nil {
			if job.Status != StatusGeneratingSEO || job.SEOMetadata != nil {
				return fmt.Errorf("%w: seo write in status %s", ErrStepConflict, job.Status)
			}
		}

		if patch.Outline != nil {
			job.Outline = *patch.Outline
		}
		if patch.ResetSections {
			job.Sections = []string{}
		}
		if patch.FullMarkdown != nil {
			job.FullMarkdown = *patch.FullMarkdown
		}
		if patch.SEOMetadata != nil {
			if job.FullMarkdown == "" {
				return errors.New("seo metadata requires full markdown")
			}
			meta := *patch.SEOMetadata
			meta.Tags = cloneStrings(patch.SEOMetadata.Tags)
			job.SEOMetadata = &meta
		}
		return nil
	})
}

// AppendSection appends a section only when exactly index sections exist already.
// Otherwise it returns ErrSectionConflict and leaves the job unchanged.
func (s *Store) AppendSection(ctx context.Context, id string, index int, section string) (*Job, error) {
	return s.mutate(ctx, id, func(job *Job) error {
		if len(job.Sections) != index {
			return fmt.Errorf("%w: have %d sections, appending index %d", ErrSectionConflict, len(job.Sections), index)
		}
		if total := len(ParseSectionTitles(job.Outline)); index >= total {
			return fmt.Errorf("%w: outline has %d sections, appending index %d", ErrSectionConflict, total, index)
		}
		job.Sections = append(job.Sections, section)
		return nil
	})
}

// AppendLog adds a timestamped diagnostic line.
func (s *Store) AppendLog(ctx context.Context, id string, message string) (*Job, error) {
	return s.mutate(ctx, id, func(job *Job) error {
		job.Logs = append(job.Logs, s.logEntry(s.now(), message))
		return nil
	})
}

// Fail marks the job failed with message. Failing a job that is already terminal is a no-op.
func (s *Store) Fail(ctx context.Context, id string, message string) (*Job, error) {
	job, err := s.mutate(ctx, id, func(job *Job) error {
		job.Status = StatusFailed
		job.Error = message
		job.CurrentStep = "Failed"
		job.Logs = append(job.Logs, s.logEntry(s.now(), "Error: "+message))
		return nil
	})
	if errors.Is(err, ErrJobTerminal) {
		return s.Get(ctx, id)
	}
	return job, err
}

// Complete stores the draft result and marks the job completed.
func (s *Store) Complete(ctx context.Context, id string, result Result) (*Job, error) {
	return s.mutate(ctx, id, func(job *Job) error {
		if job.SEOMetadata == nil || job.FullMarkdown == "" {
			return fmt.Errorf("%w: result requires full markdown and seo metadata", ErrInvalidTransition)
		}
		job.Status = StatusCompleted
		job.Progress = 100
		job.CurrentStep = "Completed"
		job.Result = &result
		job.Logs = append(job.Logs, s.logEntry(s.now(), "Draft created: "+result.DocumentID))
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, id string, apply func(job *Job) error) (*Job, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		job, err := s.backend.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return nil, ErrJobTerminal
		}

		base := job.Revision
		if err := apply(job); err != nil {
			return nil, err
		}
		job.Revision = base + 1
		job.UpdatedAt = s.now().UTC()

		err = s.backend.Replace(ctx, job, base)
		if err == nil {
			return job.Clone(), nil
		}
		if !errors.Is(err, ErrRevisionConflict) {
			return nil, fmt.Errorf("failed to write job %s: %w", id, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to write job %s after %d attempts: %w", id, s.maxAttempts, lastErr)
}

func (s *Store) logEntry(t time.Time, message string) string {
	return fmt.Sprintf("[%s] %s", t.UTC().Format(time.RFC3339), message)
}

func clampProgress(p int) int {
	return min(max(p, 0), 100)
}
