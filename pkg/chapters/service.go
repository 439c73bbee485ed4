package chapters

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveChapterOptions struct {
	ID        *int
	ContentID *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBatch inserts a content's chapters in one statement. The scanner
// builds the batch with dense sort orders already assigned.
func (svc *Service) CreateBatch(ctx context.Context, chapters []*models.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}

	now := time.Now()
	for _, chapter := range chapters {
		if chapter.CreatedAt.IsZero() {
			chapter.CreatedAt = now
		}
		chapter.UpdatedAt = chapter.CreatedAt
	}

	_, err := svc.db.
		NewInsert().
		Model(&chapters).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveChapter(ctx context.Context, opts RetrieveChapterOptions) (*models.Chapter, error) {
	chapter := &models.Chapter{}

	q := svc.db.
		NewSelect().
		Model(chapter).
		Column("ch.*")

	if opts.ID != nil {
		q = q.Where("ch.id = ?", *opts.ID)
	}
	if opts.ContentID != nil {
		q = q.Where("ch.content_id = ?", *opts.ContentID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Chapter")
		}
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

// ListByContent returns the content's chapters in reading order.
func (svc *Service) ListByContent(ctx context.Context, contentID int) ([]*models.Chapter, error) {
	chapters := []*models.Chapter{}

	err := svc.db.
		NewSelect().
		Model(&chapters).
		Where("content_id = ?", contentID).
		Order("sort_order ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return chapters, nil
}
