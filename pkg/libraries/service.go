package libraries

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveLibraryOptions struct {
	ID *int
}

type ListLibrariesOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateLibraryOptions struct {
	Columns         []string
	UpdateScanPaths bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateLibrary(ctx context.Context, library *models.Library) error {
	now := time.Now()
	if library.CreatedAt.IsZero() {
		library.CreatedAt = now
	}
	library.UpdatedAt = library.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(library).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		for _, path := range library.ScanPaths {
			path.LibraryID = library.ID
			path.CreatedAt = library.CreatedAt
		}

		if len(library.ScanPaths) > 0 {
			_, err := tx.
				NewInsert().
				Model(&library.ScanPaths).
				Returning("*").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveLibrary(ctx context.Context, opts RetrieveLibraryOptions) (*models.Library, error) {
	library := &models.Library{}

	q := svc.db.
		NewSelect().
		Model(library).
		Column("l.*").
		Relation("ScanPaths", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("path ASC")
		}).
		Group("l.id")

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library")
		}
		return nil, errors.WithStack(err)
	}

	return library, nil
}

func (svc *Service) ListLibraries(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, error) {
	l, _, err := svc.listLibrariesWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	opts.includeTotal = true
	return svc.listLibrariesWithTotal(ctx, opts)
}

func (svc *Service) listLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	libraries := []*models.Library{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&libraries).
		Column("l.*").
		Relation("ScanPaths", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("path ASC")
		}).
		Group("l.id").
		Order("l.name ASC")

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

	return libraries, total, nil
}

func (svc *Service) UpdateLibrary(ctx context.Context, library *models.Library, opts UpdateLibraryOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateScanPaths {
		return nil
	}

	now := time.Now()
	library.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(library).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Library")
			}
			return errors.WithStack(err)
		}

		if opts.UpdateScanPaths {
			// Replacing the scan paths cascades away any contents imported
			// through the removed ones.
			err := deleteContentsWhereTx(ctx, tx, "scan_path_id IN (SELECT id FROM scan_paths WHERE library_id = ?)", library.ID)
			if err != nil {
				return errors.WithStack(err)
			}

			_, err = tx.
				NewDelete().
				Model((*models.ScanPath)(nil)).
				Where("library_id = ?", library.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			for _, path := range library.ScanPaths {
				path.ID = 0
				path.LibraryID = library.ID
				path.CreatedAt = now
			}

			if len(library.ScanPaths) > 0 {
				_, err := tx.
					NewInsert().
					Model(&library.ScanPaths).
					Returning("*").
					Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteLibrary removes the library and everything under it: scan paths,
// contents, chapters, and reading progress.
func (svc *Service) DeleteLibrary(ctx context.Context, id int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := deleteContentsWhereTx(ctx, tx, "library_id = ?", id); err != nil {
			return errors.WithStack(err)
		}

		_, err := tx.
			NewDelete().
			Model((*models.ScanPath)(nil)).
			Where("library_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.
			NewDelete().
			Model((*models.Library)(nil)).
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
			return errcodes.NotFound("Library")
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// deleteContentsWhereTx removes the contents matching the condition along
// with their chapters and reading progress.
func deleteContentsWhereTx(ctx context.Context, tx bun.Tx, condition string, args ...any) error {
	contentFilter := "(SELECT id FROM contents WHERE " + condition + ")"

	_, err := tx.
		NewDelete().
		Model((*models.ReadingProgress)(nil)).
		Where("chapter_id IN (SELECT id FROM chapters WHERE content_id IN "+contentFilter+")", args...).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = tx.
		NewDelete().
		Model((*models.Chapter)(nil)).
		Where("content_id IN "+contentFilter, args...).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = tx.
		NewDelete().
		Model((*models.Content)(nil)).
		Where(condition, args...).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) ListScanPaths(ctx context.Context, libraryID int) ([]*models.ScanPath, error) {
	paths := []*models.ScanPath{}

	err := svc.db.
		NewSelect().
		Model(&paths).
		Where("library_id = ?", libraryID).
		Order("path ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return paths, nil
}

func (svc *Service) CreateScanPath(ctx context.Context, scanPath *models.ScanPath) error {
	if scanPath.CreatedAt.IsZero() {
		scanPath.CreatedAt = time.Now()
	}

	_, err := svc.db.
		NewInsert().
		Model(scanPath).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteScanPath removes a scan path and cascades to the contents imported
// through it.
func (svc *Service) DeleteScanPath(ctx context.Context, libraryID, scanPathID int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := deleteContentsWhereTx(ctx, tx, "scan_path_id = ?", scanPathID); err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.
			NewDelete().
			Model((*models.ScanPath)(nil)).
			Where("id = ? AND library_id = ?", scanPathID, libraryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if affected == 0 {
			return errcodes.NotFound("Scan path")
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
