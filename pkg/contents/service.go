package contents

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveContentOptions struct {
	ID         *int
	LibraryID  *int
	FolderPath *string
}

type ListContentsOptions struct {
	LibraryID  *int
	ScanPathID *int
	Type       *string
	Limit      *int
	Offset     *int

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateContent(ctx context.Context, content *models.Content) error {
	now := time.Now()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = content.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(content).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveContent(ctx context.Context, opts RetrieveContentOptions) (*models.Content, error) {
	content := &models.Content{}

	q := svc.db.
		NewSelect().
		Model(content).
		Column("c.*")

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("c.library_id = ?", *opts.LibraryID)
	}
	if opts.FolderPath != nil {
		q = q.Where("c.folder_path = ?", *opts.FolderPath)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Content")
		}
		return nil, errors.WithStack(err)
	}

	return content, nil
}

func (svc *Service) ListContents(ctx context.Context, opts ListContentsOptions) ([]*models.Content, error) {
	c, _, err := svc.listContentsWithTotal(ctx, opts)
	return c, errors.WithStack(err)
}

func (svc *Service) ListContentsWithTotal(ctx context.Context, opts ListContentsOptions) ([]*models.Content, int, error) {
	opts.includeTotal = true
	return svc.listContentsWithTotal(ctx, opts)
}

func (svc *Service) listContentsWithTotal(ctx context.Context, opts ListContentsOptions) ([]*models.Content, int, error) {
	contents := []*models.Content{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&contents).
		// The thumbnail blob is heavy; list responses link to the thumbnail
		// endpoint instead.
		ExcludeColumn("thumbnail").
		Order("c.title ASC")

	if opts.LibraryID != nil {
		q = q.Where("c.library_id = ?", *opts.LibraryID)
	}
	if opts.ScanPathID != nil {
		q = q.Where("c.scan_path_id = ?", *opts.ScanPathID)
	}
	if opts.Type != nil {
		q = q.Where("c.type = ?", *opts.Type)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return contents, total, nil
}

// ListFolderPathsByScanPath returns the folder paths of every content
// imported through the scan path. The scanner diffs this against disk.
func (svc *Service) ListFolderPathsByScanPath(ctx context.Context, scanPathID int) ([]string, error) {
	paths := []string{}

	err := svc.db.
		NewSelect().
		Model((*models.Content)(nil)).
		Column("folder_path").
		Where("scan_path_id = ?", scanPathID).
		Order("folder_path ASC").
		Scan(ctx, &paths)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return paths, nil
}

func (svc *Service) UpdateThumbnail(ctx context.Context, contentID int, thumbnail []byte) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Content)(nil)).
		Set("thumbnail = ?", thumbnail).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", contentID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) UpdateMetadata(ctx context.Context, contentID int, metadata json.RawMessage) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Content)(nil)).
		Set("metadata = ?", string(metadata)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", contentID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) UpdateChapterCount(ctx context.Context, contentID, count int) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Content)(nil)).
		Set("chapter_count = ?", count).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", contentID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteContent removes a content together with its chapters and any
// reading progress on them.
func (svc *Service) DeleteContent(ctx context.Context, id int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.ReadingProgress)(nil)).
			Where("chapter_id IN (SELECT id FROM chapters WHERE content_id = ?)", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.Chapter)(nil)).
			Where("content_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.
			NewDelete().
			Model((*models.Content)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if affected == 0 {
			return errcodes.NotFound("Content")
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteContentByFolderPath removes the content whose folder disappeared
// from disk. Returns the deleted content's id, or NotFound.
func (svc *Service) DeleteContentByFolderPath(ctx context.Context, scanPathID int, folderPath string) (int, error) {
	content := &models.Content{}

	err := svc.db.
		NewSelect().
		Model(content).
		Column("c.id").
		Where("c.scan_path_id = ?", scanPathID).
		Where("c.folder_path = ?", folderPath).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errcodes.NotFound("Content")
		}
		return 0, errors.WithStack(err)
	}

	if err := svc.DeleteContent(ctx, content.ID); err != nil {
		return 0, errors.WithStack(err)
	}

	return content.ID, nil
}
