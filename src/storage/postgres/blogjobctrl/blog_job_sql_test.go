package blogjobctrl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"blogforge/src/core/blogflow"
	"blogforge/src/storage/postgres/blogjobctrl"
)

func newMockService(t *testing.T) (*blogjobctrl.BlogJobService, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	return blogjobctrl.NewBlogJobService(db), mock
}

var jobColumns = []string{"id", "status", "revision", "document", "created_at", "updated_at"}

const (
	replaceSQL = `UPDATE "blog_jobs" SET "document"=\$1,"revision"=\$2,"status"=\$3,"updated_at"=\$4 WHERE id = \$5 AND revision = \$6`
	getSQL     = `SELECT \* FROM "blog_jobs" WHERE id = \$1`
	listSQL    = `SELECT \* FROM "blog_jobs" WHERE status = \$1 ORDER BY updated_at DESC`
)

func replacedJob() *blogflow.Job {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return &blogflow.Job{
		ID:        "42",
		Status:    blogflow.StatusGeneratingSections,
		Progress:  15,
		Sections:  []string{},
		Revision:  8,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBlogJobService_Replace(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		existing bool
		wantErr  error
	}{
		{name: "revision matches", affected: 1},
		{name: "revision moved on", affected: 0, existing: true, wantErr: blogflow.ErrRevisionConflict},
		{name: "job gone", affected: 0, existing: false, wantErr: blogflow.ErrJobNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mock := newMockService(t)

			mock.ExpectExec(replaceSQL).
				WithArgs(sqlmock.AnyArg(), int64(8), "generating-sections", sqlmock.AnyArg(), "42", int64(7)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			if tt.affected == 0 {
				rows := sqlmock.NewRows(jobColumns)
				if tt.existing {
					rows.AddRow("42", "generating-sections", int64(9), `{"id":"42"}`, time.Now(), time.Now())
				}
				mock.ExpectQuery(getSQL).WillReturnRows(rows)
			}

			err := service.Replace(context.Background(), replacedJob(), 7)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("Replace() error = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestBlogJobService_ReplaceDatabaseError(t *testing.T) {
	service, mock := newMockService(t)
	mock.ExpectExec(replaceSQL).WillReturnError(errors.New("connection reset"))

	err := service.Replace(context.Background(), replacedJob(), 7)
	if err == nil || errors.Is(err, blogflow.ErrRevisionConflict) || errors.Is(err, blogflow.ErrJobNotFound) {
		t.Errorf("Replace() error = %v, want a plain database error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBlogJobService_ListByStatus(t *testing.T) {
	service, mock := newMockService(t)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(listSQL).
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("2", "pending", int64(3), `{"id":"2","status":"pending"}`, now, now).
			AddRow("1", "pending", int64(1), `{"id":"1","status":"pending"}`, now, now.Add(-time.Hour)))

	jobs, err := service.ListByStatus(context.Background(), blogflow.StatusPending, 0)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "2" || jobs[0].Revision != 3 || jobs[1].ID != "1" {
		t.Errorf("ListByStatus() = %+v", jobs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
