package blogjobctrl_test

import (
	"testing"
	"time"

	"blogforge/src/core/blogflow"
	"blogforge/src/storage/postgres/blogjobctrl"
)

func TestRowConversion(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	job := &blogflow.Job{
		ID:          "42",
		Status:      blogflow.StatusGeneratingSections,
		Progress:    36,
		CurrentStep: "Writing section 3 of 6",
		Brief:       blogflow.Brief{Title: "X", WordCount: 1500, PrimaryKeyword: "ai"},
		Outline:     "## A\n## B",
		Sections:    []string{"## A\n\nbody"},
		Logs:        []string{"[2026-10-19T12:00:00Z] Job created"},
		Revision:    7,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	row, err := blogjobctrl.ToRow(job)
	if err != nil {
		t.Fatalf("ToRow() error = %v", err)
	}
	if row.ID != "42" || row.Status != "generating-sections" || row.Revision != 7 {
		t.Errorf("row = %+v", row)
	}

	got, err := blogjobctrl.FromRow(row)
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}
	if got.Status != job.Status || got.Progress != 36 || got.Revision != 7 {
		t.Errorf("job = %+v", got)
	}
	if len(got.Sections) != 1 || got.Sections[0] != job.Sections[0] {
		t.Errorf("sections = %v", got.Sections)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created at = %v", got.CreatedAt)
	}
}

func TestFromRow_RevisionColumnWins(t *testing.T) {
	row := &blogjobctrl.BlogJob{ID: "1", Revision: 9, Document: `{"id":"1","status":"pending","revision":3}`}
	job, err := blogjobctrl.FromRow(row)
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}
	if job.Revision != 9 {
		t.Errorf("revision = %d, want 9", job.Revision)
	}
}

func TestFromRow_InvalidDocument(t *testing.T) {
	if _, err := blogjobctrl.FromRow(&blogjobctrl.BlogJob{ID: "1", Document: "{"}); err == nil {
		t.Error("FromRow() accepted a broken document")
	}
}

func TestNewSnowflakeIDGenerator(t *testing.T) {
	next, err := blogjobctrl.NewSnowflakeIDGenerator(3)
	if err != nil {
		t.Fatalf("NewSnowflakeIDGenerator() error = %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := next()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}

	if _, err := blogjobctrl.NewSnowflakeIDGenerator(5000); err == nil {
		t.Error("node number out of range was accepted")
	}
}
