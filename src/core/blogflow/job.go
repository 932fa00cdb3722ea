package blogflow

import (
	"time"
)

// Status defines the lifecycle position of a blog generation job
type Status string

const (
	StatusPending            Status = "pending"
	StatusGeneratingOutline  Status = "generating-outline"
	StatusGeneratingSections Status = "generating-sections"
	StatusGeneratingSEO      Status = "generating-seo"
	StatusCreatingDraft      Status = "creating-draft"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

var statusOrder = map[Status]int{
	StatusPending:            0,
	StatusGeneratingOutline:  1,
	StatusGeneratingSections: 2,
	StatusGeneratingSEO:      3,
	StatusCreatingDraft:      4,
	StatusCompleted:          5,
	StatusFailed:             6,
}

// Terminal reports whether no further work can happen for a job in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// CanAdvanceTo reports whether moving from s to next keeps the linear order.
// Any non-terminal status may move to failed.
func (s Status) CanAdvanceTo(next Status) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return statusOrder[next] >= statusOrder[s]
}

// SEOMetadata is the structured search metadata generated from the full article.
type SEOMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Excerpt     string   `json:"excerpt"`
	Slug        string   `json:"slug"`
	Tags        []string `json:"tags"`
}

// Result points at the draft created in the CMS.
type Result struct {
	DocumentID   string `json:"documentId"`
	StudioURL    string `json:"studioUrl"`
	PublishedURL string `json:"publishedUrl"`
}

// Job is one resumable blog generation task and everything it has produced so far.
type Job struct {
	ID           string       `json:"id"`
	Status       Status       `json:"status"`
	Progress     int          `json:"progress"`
	CurrentStep  string       `json:"currentStep"`
	Brief        Brief        `json:"brief"`
	Outline      string       `json:"outline,omitempty"`
	Sections     []string     `json:"sections"`
	FullMarkdown string       `json:"fullMarkdown,omitempty"`
	SEOMetadata  *SEOMetadata `json:"seoMetadata,omitempty"`
	Logs         []string     `json:"logs"`
	Error        string       `json:"error,omitempty"`
	Result       *Result      `json:"result,omitempty"`
	Revision     int64        `json:"revision"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Stale reports whether a non-terminal job has not been written for longer than after.
// Nothing fails such a job; it is simply no longer being stepped.
func (j *Job) Stale(now time.Time, after time.Duration) bool {
	return !j.Status.Terminal() && now.Sub(j.UpdatedAt) > after
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Brief = j.Brief.clone()
	c.Sections = cloneStrings(j.Sections)
	c.Logs = cloneStrings(j.Logs)
	if j.SEOMetadata != nil {
		meta := *j.SEOMetadata
		meta.Tags = cloneStrings(j.SEOMetadata.Tags)
		c.SEOMetadata = &meta
	}
	if j.Result != nil {
		res := *j.Result
		c.Result = &res
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
