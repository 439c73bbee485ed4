// Package scanner reconciles the on-disk state of a library's scan paths
// with the persisted contents and chapters.
package scanner

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/chapters"
	"github.com/shishobooks/yomu/pkg/contents"
	"github.com/shishobooks/yomu/pkg/libraries"
	"github.com/shishobooks/yomu/pkg/metadata"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/shishobooks/yomu/pkg/scanqueue"
)

// ScrapeFailure records a content whose metadata enrichment failed. The
// content itself is still persisted.
type ScrapeFailure struct {
	Content *models.Content
	Reason  string
}

// Result aggregates one pipeline run.
type Result struct {
	Added        []*models.Content
	Removed      []int
	FailedScrape []ScrapeFailure
}

type Pipeline struct {
	libraryService *libraries.Service
	contentService *contents.Service
	chapterService *chapters.Service
	metadataClient *metadata.Client
}

// New wires the pipeline. metadataClient may be nil, which disables
// enrichment entirely.
func New(libraryService *libraries.Service, contentService *contents.Service, chapterService *chapters.Service, metadataClient *metadata.Client) *Pipeline {
	return &Pipeline{
		libraryService: libraryService,
		contentService: contentService,
		chapterService: chapterService,
		metadataClient: metadataClient,
	}
}

// ScanFunc adapts the pipeline to the queue's worker contract, collapsing
// the detailed result to counts.
func (p *Pipeline) ScanFunc() scanqueue.ScanFunc {
	return func(ctx context.Context, libraryID int, checkpoint scanqueue.Checkpoint) (*scanqueue.Result, error) {
		result, err := p.Scan(ctx, libraryID, checkpoint)
		if result == nil {
			return nil, err
		}
		return &scanqueue.Result{
			Added:        len(result.Added),
			Removed:      len(result.Removed),
			FailedScrape: len(result.FailedScrape),
		}, err
	}
}

// Scan runs one reconciliation pass over every scan path of the library.
// A missing scan path or a failing folder import is logged and skipped; the
// pass carries on. Cancellation is observed between scan paths and between
// folder imports; on cancellation the partial result is returned alongside
// scanqueue.ErrCancelled.
func (p *Pipeline) Scan(ctx context.Context, libraryID int, checkpoint scanqueue.Checkpoint) (*Result, error) {
	log := logger.FromContext(ctx)

	library, err := p.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: &libraryID})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	result := &Result{}
	scanned := 0
	total := 0

	for _, scanPath := range library.ScanPaths {
		if cancelled(checkpoint) {
			return result, errors.WithStack(scanqueue.ErrCancelled)
		}

		log := log.Data(logger.Data{"scan_path_id": scanPath.ID, "scan_path": scanPath.Path})

		info, err := os.Stat(scanPath.Path)
		if err != nil || !info.IsDir() {
			log.Warn("scan path missing, skipping")
			continue
		}

		candidates, err := candidateFolders(scanPath.Path)
		if err != nil {
			log.Err(err).Error("enumerate candidate folders")
			continue
		}
		total += len(candidates)
		reportProgress(checkpoint, scanned, total)

		known, err := p.contentService.ListFolderPathsByScanPath(ctx, scanPath.ID)
		if err != nil {
			return result, errors.WithStack(err)
		}

		candidateSet := map[string]struct{}{}
		for _, folder := range candidates {
			candidateSet[folder] = struct{}{}
		}

		// Removal pass: contents whose folders are gone from disk.
		knownSet := map[string]struct{}{}
		for _, folderPath := range known {
			knownSet[folderPath] = struct{}{}
			if _, ok := candidateSet[folderPath]; ok {
				continue
			}
			id, err := p.contentService.DeleteContentByFolderPath(ctx, scanPath.ID, folderPath)
			if err != nil {
				log.Err(err).Data(logger.Data{"folder_path": folderPath}).Error("delete removed content")
				continue
			}
			log.Info("removed content", logger.Data{"folder_path": folderPath, "content_id": id})
			result.Removed = append(result.Removed, id)
		}

		// Addition pass: candidate folders not yet imported.
		for _, folder := range candidates {
			if cancelled(checkpoint) {
				return result, errors.WithStack(scanqueue.ErrCancelled)
			}

			if _, ok := knownSet[folder]; ok {
				scanned++
				reportProgress(checkpoint, scanned, total)
				continue
			}

			content, scrapeReason, err := p.importFolder(ctx, library, scanPath, folder)
			scanned++
			reportProgress(checkpoint, scanned, total)
			if err != nil {
				log.Err(err).Data(logger.Data{"folder_path": folder}).Error("folder import failed, skipping")
				continue
			}

			log.Info("imported content", logger.Data{
				"folder_path":   folder,
				"content_id":    content.ID,
				"type":          content.Type,
				"chapter_count": content.ChapterCount,
			})
			result.Added = append(result.Added, content)
			if scrapeReason != "" {
				result.FailedScrape = append(result.FailedScrape, ScrapeFailure{Content: content, Reason: scrapeReason})
			}
		}
	}

	return result, nil
}

func cancelled(checkpoint scanqueue.Checkpoint) bool {
	return checkpoint.Cancelled != nil && checkpoint.Cancelled()
}

func reportProgress(checkpoint scanqueue.Checkpoint, scanned, total int) {
	if checkpoint.Progress != nil {
		checkpoint.Progress(scanned, total)
	}
}
