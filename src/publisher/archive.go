package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"blogforge/src/core/blogflow"
	"blogforge/src/log"
)

// ObjectStore is the subset of the object storage service the archive needs
type ObjectStore interface {
	EnsureBucketExists(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
}

// ObjectReader reads archived objects back.
type ObjectReader interface {
	GetObject(ctx context.Context, bucketName, objectName string) ([]byte, error)
}

// ArchiveError reports a draft that exists in the CMS but could not be archived.
// The message names the document so it can be found and removed or archived by hand.
type ArchiveError struct {
	DocumentID string
	StudioURL  string
	Err        error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("draft %s was created (%s) but could not be archived: %v", e.DocumentID, e.StudioURL, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// ArchiveRecord is stored next to the markdown of every published draft
type ArchiveRecord struct {
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Excerpt     string           `json:"excerpt"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags"`
	Result      *blogflow.Result `json:"result"`
	ArchivedAt  time.Time        `json:"archivedAt"`
}

// ArchivingPublisher wraps another publisher and copies each created draft to object
// storage as <slug>.md and <slug>.json. A failed upload fails the draft creation
// with an *ArchiveError naming the draft that was already created.
type ArchivingPublisher struct {
	next   blogflow.DraftPublisher
	store  ObjectStore
	bucket string
	now    func() time.Time
}

func NewArchivingPublisher(next blogflow.DraftPublisher, store ObjectStore, bucket string) *ArchivingPublisher {
	return &ArchivingPublisher{
		next:   next,
		store:  store,
		bucket: bucket,
		now:    time.Now,
	}
}

var _ blogflow.DraftPublisher = (*ArchivingPublisher)(nil)

func (p *ArchivingPublisher) CreateDraft(ctx context.Context, input blogflow.DraftInput) (*blogflow.Result, error) {
	result, err := p.next.CreateDraft(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := p.archive(ctx, input, result); err != nil {
		log.Error(err, "draft left unarchived", "document_id", result.DocumentID, "slug", input.Slug)
		return nil, &ArchiveError{DocumentID: result.DocumentID, StudioURL: result.StudioURL, Err: err}
	}

	log.Info("draft archived", "bucket", p.bucket, "slug", input.Slug)
	return result, nil
}

func (p *ArchivingPublisher) archive(ctx context.Context, input blogflow.DraftInput, result *blogflow.Result) error {
	if err := p.store.EnsureBucketExists(ctx, p.bucket); err != nil {
		return err
	}

	if err := p.store.PutObject(ctx, p.bucket, input.Slug+".md", []byte(input.Markdown), "text/markdown; charset=utf-8"); err != nil {
		return err
	}

	record, err := json.MarshalIndent(ArchiveRecord{
		Title:       input.Title,
		Slug:        input.Slug,
		Excerpt:     input.Excerpt,
		Description: input.Description,
		Tags:        input.Tags,
		Result:      result,
		ArchivedAt:  p.now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive record: %w", err)
	}
	return p.store.PutObject(ctx, p.bucket, input.Slug+".json", record, "application/json")
}

// ReadArchive loads the markdown and record archived for slug.
func ReadArchive(ctx context.Context, store ObjectReader, bucket, slug string) (string, *ArchiveRecord, error) {
	markdown, err := store.GetObject(ctx, bucket, slug+".md")
	if err != nil {
		return "", nil, fmt.Errorf("failed to read archived markdown for %s: %w", slug, err)
	}

	data, err := store.GetObject(ctx, bucket, slug+".json")
	if err != nil {
		return "", nil, fmt.Errorf("failed to read archive record for %s: %w", slug, err)
	}
	var record ArchiveRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", nil, fmt.Errorf("failed to parse archive record for %s: %w", slug, err)
	}
	return string(markdown), &record, nil
}
