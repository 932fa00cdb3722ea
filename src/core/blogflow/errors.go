package blogflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobTerminal       = errors.New("job is already completed or failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRevisionConflict  = errors.New("job was modified concurrently")
	ErrSectionConflict   = errors.New("section already appended")
	ErrEmptyOutline      = errors.New("outline contains no sections")
	// ErrStepConflict means the job already moved past the step a write belongs to.
	ErrStepConflict    = errors.New("job already moved past this step")
	ErrListUnsupported = errors.New("job store cannot list jobs")
)

// GenerationServiceError is returned when the text generation call itself fails.
type GenerationServiceError struct {
	Phase Phase
	Err   error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service failed during %s: %v", e.Phase, e.Err)
}

func (e *GenerationServiceError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a response was received but no JSON could be extracted.
type MalformedResponseError struct {
	Preview string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %v (response: %q)", e.Err, e.Preview)
	}
	return fmt.Sprintf("malformed response: %q", e.Preview)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// EmptySectionError is the quality gate for implausibly short section content.
type EmptySectionError struct {
	Section string
	Length  int
	Minimum int
}

func (e *EmptySectionError) Error() string {
	return fmt.Sprintf("generated content for section %q is too short: content length %d, minimum %d",
		e.Section, e.Length, e.Minimum)
}

// InvalidMetadataError is returned when parsed SEO metadata lacks a required field.
type InvalidMetadataError struct {
	Present []string
	Missing []string
}

func (e *InvalidMetadataError) Error() string {
	present := "none"
	if len(e.Present) > 0 {
		present = strings.Join(e.Present, ", ")
	}
	return fmt.Sprintf("invalid SEO metadata: missing %s (present: %s)", strings.Join(e.Missing, ", "), present)
}

// DraftError wraps a failure reported by the draft publisher. Its message is the
// publisher's message, unchanged, so the CMS validation text reaches the job error.
type DraftError struct {
	Err error
}

func (e *DraftError) Error() string {
	return e.Err.Error()
}

func (e *DraftError) Unwrap() error {
	return e.Err
}
