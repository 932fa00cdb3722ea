package blogflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"blogforge/src/core/blogflow"
)

const testOutline = `## Introduction
- why teams automate
## What Is AI Automation
### Definitions
- terms
## Benefits for Small Teams
## Common Use Cases
## Getting Started
## Conclusion`

const testSEOResponse = "```json\n" + `{
  "title": "AI Automation: A Practical Guide for Growing Teams",
  "description": "Learn how ai automation helps small teams save time, cut costs and scale operations with practical workflows, tools and real examples you can apply.",
  "excerpt": "A practical guide to ai automation for small teams, covering benefits, use cases and the first steps to automate everyday workflows with confidence.",
  "slug": "AI Automation Guide",
  "tags": ["ai automation", "workflows", "small business"]
}` + "\n```"

var sectionBody = strings.Repeat("Automation removes repetitive work from busy teams. ", 4)

func testBrief() blogflow.Brief {
	return blogflow.Brief{
		Title:             "X",
		WordCount:         1500,
		PrimaryKeyword:    "ai automation",
		SecondaryKeywords: []string{},
		InternalLinks:     []string{},
		ExternalLinks:     []string{},
	}
}

// fakeCompleter answers each phase from a function and counts calls.
type fakeCompleter struct {
	mu       sync.Mutex
	calls    map[blogflow.Phase]int
	requests []blogflow.CompletionRequest
	respond  func(req blogflow.CompletionRequest) (string, error)
}

func newFakeCompleter() *fakeCompleter {
	f := &fakeCompleter{calls: make(map[blogflow.Phase]int)}
	f.respond = func(req blogflow.CompletionRequest) (string, error) {
		switch req.Phase {
		case blogflow.PhaseOutline:
			return testOutline, nil
		case blogflow.PhaseSection:
			return sectionBody, nil
		case blogflow.PhaseReformat:
			return "**Reformatted.** " + sectionBody, nil
		case blogflow.PhaseSEOMetadata:
			return testSEOResponse, nil
		}
		return "", errors.New("unexpected phase")
	}
	return f
}

func (f *fakeCompleter) Complete(ctx context.Context, req blogflow.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls[req.Phase]++
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func (f *fakeCompleter) count(phase blogflow.Phase) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[phase]
}

type fakePublisher struct {
	mu     sync.Mutex
	inputs []blogflow.DraftInput
	err    error
}

func (p *fakePublisher) CreateDraft(ctx context.Context, input blogflow.DraftInput) (*blogflow.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputs = append(p.inputs, input)
	if p.err != nil {
		return nil, p.err
	}
	return &blogflow.Result{
		DocumentID:   "drafts.post-1",
		StudioURL:    "https://studio.example.com/structure/post;drafts.post-1",
		PublishedURL: "https://example.com/blog/" + input.Slug,
	}, nil
}

type harness struct {
	store     *blogflow.Store
	completer *fakeCompleter
	publisher *fakePublisher
	stepper   *blogflow.Stepper
}

func newHarness(opts ...blogflow.StepperOption) *harness {
	clock := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store := blogflow.NewStore(blogflow.NewMemoryBackend(), blogflow.WithClock(func() time.Time { return clock }))
	completer := newFakeCompleter()
	publisher := &fakePublisher{}
	opts = append([]blogflow.StepperOption{blogflow.WithSampler(blogflow.Never)}, opts...)
	return &harness{
		store:     store,
		completer: completer,
		publisher: publisher,
		stepper:   blogflow.NewStepper(store, blogflow.NewGenerator(completer), publisher, opts...),
	}
}
