package blogjobctrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"blogforge/src/core/blogflow"
)

// BlogJob is the row holding one job. The full job document lives in Document;
// Status and Revision are copied out for filtering and the conditional update.
type BlogJob struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Status    string    `gorm:"not null;index" json:"status"`
	Revision  int64     `gorm:"not null" json:"revision"`
	Document  string    `gorm:"not null;type:jsonb" json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BlogJobService struct {
	db *gorm.DB
}

func NewBlogJobService(db *gorm.DB) *BlogJobService {
	return &BlogJobService{db: db}
}

var (
	_ blogflow.Backend = (*BlogJobService)(nil)
	_ blogflow.Lister  = (*BlogJobService)(nil)
)

// Migrate creates or updates the blog_jobs table
func (s *BlogJobService) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&BlogJob{}); err != nil {
		return fmt.Errorf("failed to migrate blog jobs: %w", err)
	}
	return nil
}

func (s *BlogJobService) Insert(ctx context.Context, job *blogflow.Job) error {
	row, err := ToRow(job)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to create blog job: %w", result.Error)
	}
	return nil
}

// GetByID returns nil when the job does not exist
func (s *BlogJobService) GetByID(ctx context.Context, id string) (*BlogJob, error) {
	var row BlogJob
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get blog job: %w", result.Error)
	}
	return &row, nil
}

func (s *BlogJobService) Fetch(ctx context.Context, id string) (*blogflow.Job, error) {
	row, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, blogflow.ErrJobNotFound
	}
	return FromRow(row)
}

// Replace overwrites the job only if the stored revision is still baseRevision
func (s *BlogJobService) Replace(ctx context.Context, job *blogflow.Job, baseRevision int64) error {
	row, err := ToRow(job)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Model(&BlogJob{}).
		Where("id = ? AND revision = ?", job.ID, baseRevision).
		Updates(map[string]interface{}{
			"status":     row.Status,
			"revision":   row.Revision,
			"document":   row.Document,
			"updated_at": row.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update blog job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		existing, err := s.GetByID(ctx, job.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return blogflow.ErrJobNotFound
		}
		return blogflow.ErrRevisionConflict
	}
	return nil
}

// ListByStatus returns the most recently updated jobs in a status. A limit of zero
// or less returns all of them.
func (s *BlogJobService) ListByStatus(ctx context.Context, status blogflow.Status, limit int) ([]*blogflow.Job, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []BlogJob
	result := s.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list blog jobs: %w", result.Error)
	}

	jobs := make([]*blogflow.Job, 0, len(rows))
	for i := range rows {
		job, err := FromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func ToRow(job *blogflow.Job) (*BlogJob, error) {
	doc, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blog job %s: %w", job.ID, err)
	}
	return &BlogJob{
		ID:        job.ID,
		Status:    string(job.Status),
		Revision:  job.Revision,
		Document:  string(doc),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}, nil
}

func FromRow(row *BlogJob) (*blogflow.Job, error) {
	var job blogflow.Job
	if err := json.Unmarshal([]byte(row.Document), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blog job %s: %w", row.ID, err)
	}
	job.Revision = row.Revision
	return &job, nil
}

// NewSnowflakeIDGenerator returns a job id generator backed by a snowflake node
func NewSnowflakeIDGenerator(node int64) (func() string, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return func() string {
		return n.Generate().String()
	}, nil
}
