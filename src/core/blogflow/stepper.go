package blogflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blogforge/src/log"
)

// MinSectionLength is the smallest trimmed section length accepted from the model.
const MinSectionLength = 50

const (
	progressOutlineStarted = 5
	progressOutlineDone    = 15
	progressSectionsStart  = 20
	progressSectionsBand   = 50
	progressSectionsDone   = 75
	progressSEODone        = 90
)

// DraftInput is what the draft publisher needs to create the CMS document.
type DraftInput struct {
	Title       string
	Slug        string
	Excerpt     string
	Description string
	Tags        []string
	Markdown    string
}

// DraftPublisher creates the final draft document in the CMS.
type DraftPublisher interface {
	CreateDraft(ctx context.Context, input DraftInput) (*Result, error)
}

// Stepper advances a job by exactly one bounded unit of work per Step call.
type Stepper struct {
	store            *Store
	generator        *Generator
	publisher        DraftPublisher
	sampler          Sampler
	minSectionLength int
}

type StepperOption func(s *Stepper)

// WithSampler sets the decision function for the reformat phase.
func WithSampler(sampler Sampler) StepperOption {
	return func(s *Stepper) {
		s.sampler = sampler
	}
}

// WithMinSectionLength overrides MinSectionLength.
func WithMinSectionLength(n int) StepperOption {
	return func(s *Stepper) {
		s.minSectionLength = n
	}
}

func NewStepper(store *Store, generator *Generator, publisher DraftPublisher, opts ...StepperOption) *Stepper {
	s := &Stepper{
		store:            store,
		generator:        generator,
		publisher:        publisher,
		sampler:          RandomSampler{Probability: DefaultReformatProbability},
		minSectionLength: MinSectionLength,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateJob validates the brief and inserts a pending job.
func (s *Stepper) CreateJob(ctx context.Context, brief Brief) (*Job, error) {
	if err := brief.Validate(); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, brief)
}

// Get returns the current state of a job.
func (s *Stepper) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// List returns up to limit jobs in status, most recently updated first.
func (s *Stepper) List(ctx context.Context, status Status, limit int) ([]*Job, error) {
	return s.store.List(ctx, status, limit)
}

// Step performs one transition of the job and returns its new state. Failures of the
// transition are recorded on the job, which is returned with status failed and a nil error.
// An error is returned only for an unknown job, a canceled context, or when the failure
// itself cannot be recorded.
func (s *Stepper) Step(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	logger := log.WithValues("job_id", id, "status", job.Status)
	logger.V(1).Info("step started", "progress", job.Progress, "sections", len(job.Sections))

	next, stepErr := s.advance(ctx, job)
	if stepErr == nil {
		logger.Info("step finished", "next_status", next.Status, "progress", next.Progress)
		return next, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(stepErr, ctxErr) {
		logger.Info("step interrupted, job left for retry", "reason", ctxErr.Error())
		return nil, stepErr
	}

	logger.Error(stepErr, "step failed")
	failed, err := s.store.Fail(ctx, id, stepErr.Error())
	if err != nil {
		return nil, fmt.Errorf("failed to record job failure (%v): %w", stepErr, err)
	}
	return failed, nil
}

func (s *Stepper) advance(ctx context.Context, job *Job) (next *Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error while %s: %v", job.Status, r)
		}
	}()

	switch job.Status {
	case StatusPending:
		return s.start(ctx, job)
	case StatusGeneratingOutline:
		return s.generateOutline(ctx, job)
	case StatusGeneratingSections:
		return s.generateSection(ctx, job)
	case StatusGeneratingSEO:
		return s.generateSEO(ctx, job)
	case StatusCreatingDraft:
		return s.createDraft(ctx, job)
	default:
		return nil, fmt.Errorf("unknown job status %q", job.Status)
	}
}

// start only advances status so the first progress update reaches the caller before
// the outline call begins.
func (s *Stepper) start(ctx context.Context, job *Job) (*Job, error) {
	if _, err := s.store.AppendLog(ctx, job.ID, fmt.Sprintf("Starting generation of %q", job.Brief.Title)); err != nil {
		return nil, err
	}
	return s.store.Advance(ctx, job.ID, StatusGeneratingOutline, progressOutlineStarted, "Generating outline")
}

func (s *Stepper) generateOutline(ctx context.Context, job *Job) (*Job, error) {
	// An earlier attempt may have stored the outline and stopped before advancing.
	outline := job.Outline
	if outline == "" {
		generated, err := s.generator.Outline(ctx, job.Brief)
		if err != nil {
			return nil, err
		}
		if len(ParseSectionTitles(generated)) == 0 {
			return nil, ErrEmptyOutline
		}

		if _, err := s.store.SetFields(ctx, job.ID, Patch{Outline: &generated, ResetSections: true}); err != nil {
			if errors.Is(err, ErrStepConflict) {
				return s.discard(ctx, job.ID, "outline")
			}
			return nil, err
		}
		outline = generated
	}

	titles := ParseSectionTitles(outline)
	if len(titles) == 0 {
		return nil, ErrEmptyOutline
	}
	if _, err := s.store.AppendLog(ctx, job.ID, fmt.Sprintf("Outline generated with %d sections: %s",
		len(titles), strings.Join(titles, " | "))); err != nil {
		return nil, err
	}
	return s.store.Advance(ctx, job.ID, StatusGeneratingSections, progressOutlineDone,
		fmt.Sprintf("Writing section 1 of %d", len(titles)))
}

// discard drops work that another caller already stored and returns the job as that
// caller left it.
func (s *Stepper) discard(ctx context.Context, id, what string) (*Job, error) {
	log.Info("step finished concurrently, discarding result", "job_id", id, "result", what)
	return s.store.Get(ctx, id)
}

func (s *Stepper) generateSection(ctx context.Context, job *Job) (*Job, error) {
	titles := ParseSectionTitles(job.Outline)
	if len(titles) == 0 {
		return nil, ErrEmptyOutline
	}

	index := len(job.Sections)
	total := len(titles)
	if index >= total {
		return s.finishSections(ctx, job.ID, total)
	}

	title := titles[index]
	text, err := s.generator.Section(ctx, job.Outline, job.Brief, index, total)
	if err != nil {
		return nil, err
	}
	if n := len([]rune(strings.TrimSpace(text))); n < s.minSectionLength {
		return nil, &EmptySectionError{Section: title, Length: n, Minimum: s.minSectionLength}
	}

	reformatted := false
	if s.sampler.ShouldReformat(index) {
		restyled, err := s.generator.Reformat(ctx, text)
		if err != nil {
			return nil, err
		}
		if len([]rune(strings.TrimSpace(restyled))) >= s.minSectionLength {
			text = restyled
			reformatted = true
		} else {
			log.Info("discarding short reformat result", "job_id", job.ID, "section", index)
		}
	}
	section := composeSection(title, text)

	// Another caller may have finished this section while we were generating.
	fresh, err := s.store.Get(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if len(fresh.Sections) > index || fresh.Status != StatusGeneratingSections {
		log.Info("discarding duplicate section", "job_id", job.ID, "section", index, "sections", len(fresh.Sections))
		return fresh, nil
	}

	if _, err := s.store.AppendSection(ctx, job.ID, index, section); err != nil {
		if errors.Is(err, ErrSectionConflict) || errors.Is(err, ErrJobTerminal) {
			return s.discard(ctx, job.ID, fmt.Sprintf("section %d", index))
		}
		return nil, err
	}

	message := fmt.Sprintf("Section %d of %d generated: %s", index+1, total, title)
	if reformatted {
		message += " (reformatted)"
	}
	if _, err := s.store.AppendLog(ctx, job.ID, message); err != nil {
		return nil, err
	}

	if index+1 < total {
		return s.store.SetProgress(ctx, job.ID, SectionProgress(index, total),
			fmt.Sprintf("Writing section %d of %d", index+2, total))
	}
	return s.finishSections(ctx, job.ID, total)
}

func (s *Stepper) finishSections(ctx context.Context, id string, total int) (*Job, error) {
	if _, err := s.store.AppendLog(ctx, id, fmt.Sprintf("All %d sections generated", total)); err != nil {
		return nil, err
	}
	return s.store.Advance(ctx, id, StatusGeneratingSEO, progressSectionsDone, "Generating SEO metadata")
}

func (s *Stepper) generateSEO(ctx context.Context, job *Job) (*Job, error) {
	if job.SEOMetadata != nil {
		// Stored by an earlier attempt that stopped before advancing.
		return s.store.Advance(ctx, job.ID, StatusCreatingDraft, progressSEODone, "Creating draft")
	}

	total := len(ParseSectionTitles(job.Outline))
	if len(job.Sections) != total {
		return nil, fmt.Errorf("cannot assemble article: %d of %d sections generated", len(job.Sections), total)
	}

	fullMarkdown := assembleMarkdown(job.Brief.Title, job.Sections)
	if _, err := s.store.SetFields(ctx, job.ID, Patch{FullMarkdown: &fullMarkdown}); err != nil {
		if errors.Is(err, ErrStepConflict) {
			return s.discard(ctx, job.ID, "full markdown")
		}
		return nil, err
	}

	meta, err := s.generator.SEOMetadata(ctx, fullMarkdown, job.Brief)
	if err != nil {
		return nil, err
	}
	meta.Slug = Slugify(meta.Slug)
	if err := ValidateMetadata(meta); err != nil {
		return nil, err
	}

	if _, err := s.store.SetFields(ctx, job.ID, Patch{SEOMetadata: meta}); err != nil {
		if errors.Is(err, ErrStepConflict) {
			return s.discard(ctx, job.ID, "seo metadata")
		}
		return nil, err
	}
	if _, err := s.store.AppendLog(ctx, job.ID, fmt.Sprintf("SEO metadata generated (slug %q)", meta.Slug)); err != nil {
		return nil, err
	}
	return s.store.Advance(ctx, job.ID, StatusCreatingDraft, progressSEODone, "Creating draft")
}

func (s *Stepper) createDraft(ctx context.Context, job *Job) (*Job, error) {
	if job.SEOMetadata == nil || job.FullMarkdown == "" {
		return nil, errors.New("cannot create draft without full markdown and seo metadata")
	}

	meta := job.SEOMetadata
	result, err := s.publisher.CreateDraft(ctx, DraftInput{
		Title:       meta.Title,
		Slug:        meta.Slug,
		Excerpt:     meta.Excerpt,
		Description: meta.Description,
		Tags:        meta.Tags,
		Markdown:    job.FullMarkdown,
	})
	if err != nil {
		return nil, &DraftError{Err: err}
	}
	if result == nil || result.DocumentID == "" {
		return nil, &DraftError{Err: errors.New("draft publisher returned no document id")}
	}

	return s.store.Complete(ctx, job.ID, *result)
}

// SectionProgress is the progress after the section at index has been appended.
func SectionProgress(index, total int) int {
	if total <= 0 {
		return progressSectionsStart
	}
	return progressSectionsStart + progressSectionsBand*(index+1)/total
}
