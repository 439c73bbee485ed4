package progress

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/uptrace/bun"
)

// Service handles reading progress operations.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// UpsertOptions contains options for recording progress.
type UpsertOptions struct {
	UserID    int
	ChapterID int
	Position  int
	// Percentage is only honored when the chapter has no page count to
	// derive one from.
	Percentage float64
}

// Upsert records a user's position in a chapter, inserting or updating the
// row for the (user, chapter) pair. The stored percentage is derived from
// the position when the chapter's page count is known.
func (s *Service) Upsert(ctx context.Context, opts UpsertOptions) (*models.ReadingProgress, error) {
	if opts.Position < 0 {
		return nil, errcodes.ValidationError("Position must not be negative")
	}

	chapter := &models.Chapter{}
	err := s.db.NewSelect().
		Model(chapter).
		Where("ch.id = ?", opts.ChapterID).
		Scan(ctx)
	if err != nil {
		return nil, errcodes.NotFound("Chapter")
	}

	percentage := opts.Percentage
	if chapter.PageCount != nil && *chapter.PageCount > 0 {
		if opts.Position >= *chapter.PageCount {
			return nil, errcodes.ValidationError("Position is past the end of the chapter")
		}
		percentage = float64(opts.Position+1) / float64(*chapter.PageCount) * 100
	}
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	now := time.Now()
	rp := &models.ReadingProgress{
		CreatedAt:  now,
		UpdatedAt:  now,
		UserID:     opts.UserID,
		ChapterID:  opts.ChapterID,
		Position:   opts.Position,
		Percentage: percentage,
	}

	_, err = s.db.NewInsert().
		Model(rp).
		On("CONFLICT (user_id, chapter_id) DO UPDATE").
		Set("position = EXCLUDED.position").
		Set("percentage = EXCLUDED.percentage").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return rp, nil
}

// Retrieve gets a user's progress for a chapter, or nil when the user has
// not started it.
func (s *Service) Retrieve(ctx context.Context, userID, chapterID int) (*models.ReadingProgress, error) {
	rp := &models.ReadingProgress{}
	err := s.db.NewSelect().
		Model(rp).
		Where("rp.user_id = ?", userID).
		Where("rp.chapter_id = ?", chapterID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return rp, nil
}

// ListByContent returns the user's progress for every chapter of a content.
func (s *Service) ListByContent(ctx context.Context, userID, contentID int) ([]*models.ReadingProgress, error) {
	rows := []*models.ReadingProgress{}
	err := s.db.NewSelect().
		Model(&rows).
		Join("JOIN chapters AS ch ON ch.id = rp.chapter_id").
		Where("rp.user_id = ?", userID).
		Where("ch.content_id = ?", contentID).
		Order("ch.sort_order ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return rows, nil
}
