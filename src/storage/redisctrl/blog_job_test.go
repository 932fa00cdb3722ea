package redisctrl_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"blogforge/src/core/blogflow"
	"blogforge/src/storage/redisctrl"
)

func newStore(t *testing.T, opts ...redisctrl.Option) (*redisctrl.BlogJobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisctrl.NewBlogJobStore(client, opts...), mr
}

func TestBlogJobStore_InsertFetch(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, redisctrl.WithTTL(time.Hour))

	job := &blogflow.Job{ID: "a1", Status: blogflow.StatusPending, Sections: []string{}, Revision: 1}
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(ctx, job); err == nil {
		t.Error("second Insert() succeeded")
	}

	if ttl := mr.TTL("blog_job:a1"); ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}

	got, err := store.Fetch(ctx, "a1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.ID != "a1" || got.Status != blogflow.StatusPending || got.Revision != 1 {
		t.Errorf("Fetch() = %+v", got)
	}

	if _, err := store.Fetch(ctx, "missing"); !errors.Is(err, blogflow.ErrJobNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestBlogJobStore_Replace(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	job := &blogflow.Job{ID: "a1", Status: blogflow.StatusPending, Revision: 1}
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	next := job.Clone()
	next.Status = blogflow.StatusGeneratingOutline
	next.Revision = 2
	if err := store.Replace(ctx, next, 1); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	stale := job.Clone()
	stale.Progress = 99
	stale.Revision = 2
	if err := store.Replace(ctx, stale, 1); !errors.Is(err, blogflow.ErrRevisionConflict) {
		t.Errorf("stale Replace() error = %v, want ErrRevisionConflict", err)
	}

	got, _ := store.Fetch(ctx, "a1")
	if got.Status != blogflow.StatusGeneratingOutline || got.Progress != 0 {
		t.Errorf("job after stale write = %+v", got)
	}

	ghost := &blogflow.Job{ID: "ghost", Revision: 2}
	if err := store.Replace(ctx, ghost, 1); !errors.Is(err, blogflow.ErrJobNotFound) {
		t.Errorf("Replace(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestBlogJobStore_ConcurrentAppendSection(t *testing.T) {
	ctx := context.Background()
	backend, _ := newStore(t)
	store := blogflow.NewStore(backend)

	job, err := store.Create(ctx, blogflow.Brief{Title: "X", WordCount: 100, PrimaryKeyword: "k"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Advance(ctx, job.ID, blogflow.StatusGeneratingOutline, 5, "Generating outline"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	outline := "## One\n## Two"
	if _, err := store.SetFields(ctx, job.ID, blogflow.Patch{Outline: &outline}); err != nil {
		t.Fatalf("SetFields() error = %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AppendSection(ctx, job.ID, 0, "## One\n\nbody"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("%d concurrent appends succeeded, want 1", succeeded)
	}
	got, _ := store.Get(ctx, job.ID)
	if len(got.Sections) != 1 {
		t.Errorf("sections = %d, want 1", len(got.Sections))
	}
}

func TestBlogJobStore_ListByStatus(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	jobs := []*blogflow.Job{
		{ID: "a", Status: blogflow.StatusPending, UpdatedAt: base},
		{ID: "b", Status: blogflow.StatusGeneratingSections, UpdatedAt: base.Add(time.Minute)},
		{ID: "c", Status: blogflow.StatusPending, UpdatedAt: base.Add(2 * time.Minute)},
		{ID: "d", Status: blogflow.StatusPending, UpdatedAt: base.Add(3 * time.Minute)},
	}
	for _, job := range jobs {
		job.Sections = []string{}
		job.Revision = 1
		if err := store.Insert(ctx, job); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := mr.Set("unrelated", "value"); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListByStatus(ctx, blogflow.StatusPending, 0)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(got) != 3 || got[0].ID != "d" || got[1].ID != "c" || got[2].ID != "a" {
		t.Errorf("ListByStatus() = %v, want d, c, a", ids(got))
	}

	got, err = store.ListByStatus(ctx, blogflow.StatusPending, 1)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "d" {
		t.Errorf("ListByStatus(limit 1) = %v, want d", ids(got))
	}

	got, err = store.ListByStatus(ctx, blogflow.StatusFailed, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("ListByStatus(failed) = %v, %v, want none", ids(got), err)
	}
}

func ids(jobs []*blogflow.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.ID)
	}
	return out
}
