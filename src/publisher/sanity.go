package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"blogforge/src/core/blogflow"
	"blogforge/src/log"
)

// DocumentCreator submits a new document to the CMS and returns its id
type DocumentCreator interface {
	Create(ctx context.Context, doc any) (string, error)
}

// PostDocument is the Sanity "post" document created as a draft
type PostDocument struct {
	ID      string   `json:"_id"`
	Type    string   `json:"_type"`
	Title   string   `json:"title"`
	Slug    Slug     `json:"slug"`
	Excerpt string   `json:"excerpt,omitempty"`
	SEO     SEO      `json:"seo"`
	Tags    []string `json:"tags"`
	Body    []Block  `json:"body"`
}

type Slug struct {
	Type    string `json:"_type"`
	Current string `json:"current"`
}

type SEO struct {
	Type            string `json:"_type"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
}

// SanityPublisher creates blog drafts in a Sanity dataset
type SanityPublisher struct {
	client    DocumentCreator
	studioURL string
	siteURL   string
	newID     func() string
}

type SanityOption func(p *SanityPublisher)

// WithDraftIDGenerator sets the id generator for new drafts
func WithDraftIDGenerator(fn func() string) SanityOption {
	return func(p *SanityPublisher) {
		p.newID = fn
	}
}

func NewSanityPublisher(client DocumentCreator, studioURL, siteURL string, opts ...SanityOption) *SanityPublisher {
	p := &SanityPublisher{
		client:    client,
		studioURL: strings.TrimSuffix(studioURL, "/"),
		siteURL:   strings.TrimSuffix(siteURL, "/"),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ blogflow.DraftPublisher = (*SanityPublisher)(nil)

// CreateDraft converts the article body to Portable Text and creates the draft document.
// CMS errors are returned unchanged.
func (p *SanityPublisher) CreateDraft(ctx context.Context, input blogflow.DraftInput) (*blogflow.Result, error) {
	doc := BuildPostDocument("drafts."+p.newID(), input)

	id, err := p.client.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	log.Info("draft created", "document_id", id, "slug", input.Slug, "blocks", len(doc.Body))
	return &blogflow.Result{
		DocumentID:   id,
		StudioURL:    fmt.Sprintf("%s/structure/post;%s", p.studioURL, id),
		PublishedURL: fmt.Sprintf("%s/blog/%s", p.siteURL, input.Slug),
	}, nil
}

// BuildPostDocument maps a draft input to the post document. The leading "# title"
// heading is dropped from the body because the title is its own field.
func BuildPostDocument(id string, input blogflow.DraftInput) PostDocument {
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostDocument{
		ID:      id,
		Type:    "post",
		Title:   input.Title,
		Slug:    Slug{Type: "slug", Current: input.Slug},
		Excerpt: input.Excerpt,
		SEO:     SEO{Type: "seo", MetaTitle: input.Title, MetaDescription: input.Description},
		Tags:    tags,
		Body:    MarkdownToBlocks(stripTitle(input.Markdown)),
	}
}

func stripTitle(md string) string {
	trimmed := strings.TrimLeft(md, " \t\r\n")
	if !strings.HasPrefix(trimmed, "# ") {
		return md
	}
	_, rest, _ := strings.Cut(trimmed, "\n")
	return rest
}
