package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/archive"
	"github.com/shishobooks/yomu/pkg/epub"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/shishobooks/yomu/pkg/naturalsort"
	"github.com/shishobooks/yomu/pkg/thumbnail"
)

var coverNames = map[string]struct{}{
	"cover.jpg": {}, "cover.jpeg": {}, "cover.png": {}, "cover.webp": {},
}

// candidateFolders returns the immediate subdirectories of root that hold at
// least one supported archive, sorted by natural order of their basename.
func candidateFolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	folders := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(folder)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !f.IsDir() && archive.IsSupported(f.Name()) {
				folders = append(folders, folder)
				break
			}
		}
	}

	sort.Slice(folders, func(i, j int) bool {
		return naturalsort.Less(filepath.Base(folders[i]), filepath.Base(folders[j]))
	})

	return folders, nil
}

// importFolder turns one candidate folder into a persisted Content with its
// chapter batch, thumbnail, and best-effort metadata. The returned reason is
// non-empty when enrichment failed; enrichment never fails the import.
func (p *Pipeline) importFolder(ctx context.Context, library *models.Library, scanPath *models.ScanPath, folder string) (*models.Content, string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	comicFiles := []string{}
	novelFiles := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := archive.ComicExtensions[ext]; ok {
			comicFiles = append(comicFiles, entry.Name())
		}
		if _, ok := archive.NovelExtensions[ext]; ok {
			novelFiles = append(novelFiles, entry.Name())
		}
	}

	var contentType string
	var files []string
	switch {
	case len(comicFiles) >= len(novelFiles) && len(comicFiles) > 0:
		contentType = models.ContentTypeComic
		files = comicFiles
	case len(novelFiles) > 0:
		contentType = models.ContentTypeNovel
		files = novelFiles
	default:
		return nil, "", errors.Errorf("no supported archives in %s", folder)
	}
	naturalsort.Strings(files)

	content := &models.Content{
		LibraryID:    library.ID,
		ScanPathID:   scanPath.ID,
		Type:         contentType,
		Title:        filepath.Base(folder),
		FolderPath:   folder,
		ChapterCount: len(files),
	}
	if err := p.contentService.CreateContent(ctx, content); err != nil {
		return nil, "", errors.WithStack(err)
	}

	batch := make([]*models.Chapter, 0, len(files))
	for i, name := range files {
		path := filepath.Join(folder, name)
		chapter := &models.Chapter{
			ContentID: content.ID,
			Title:     strings.TrimSuffix(name, filepath.Ext(name)),
			FilePath:  path,
			SortOrder: i,
		}
		if info, err := os.Stat(path); err == nil {
			chapter.FilesizeBytes = info.Size()
		}
		if count, err := archive.PageCount(path); err == nil {
			chapter.PageCount = &count
		}
		batch = append(batch, chapter)
	}
	if err := p.chapterService.CreateBatch(ctx, batch); err != nil {
		return nil, "", errors.WithStack(err)
	}
	content.Chapters = batch

	if thumb := p.buildThumbnail(ctx, contentType, folder, batch); len(thumb) > 0 {
		if err := p.contentService.UpdateThumbnail(ctx, content.ID, thumb); err != nil {
			return nil, "", errors.WithStack(err)
		}
		content.Thumbnail = thumb
	}

	scrapeReason := p.enrich(ctx, content)

	return content, scrapeReason, nil
}

// buildThumbnail produces the 300x450 JPEG cover. Comics use the first page
// of the first chapter; novels prefer a sibling cover image, then any
// embedded EPUB cover. An empty return means no thumbnail.
func (p *Pipeline) buildThumbnail(ctx context.Context, contentType, folder string, batch []*models.Chapter) []byte {
	log := logger.FromContext(ctx).Data(logger.Data{"folder_path": folder})

	var raw []byte
	switch contentType {
	case models.ContentTypeComic:
		if len(batch) == 0 {
			return nil
		}
		data, err := archive.FirstPageBytes(batch[0].FilePath)
		if err != nil {
			log.Warn("first page extraction failed", logger.Data{"err": err.Error()})
			return nil
		}
		raw = data
	case models.ContentTypeNovel:
		raw = novelCoverBytes(folder, batch)
		if raw == nil {
			return nil
		}
	}

	thumb, err := thumbnail.FromImageBytes(raw)
	if err != nil {
		log.Warn("thumbnail encoding failed", logger.Data{"err": err.Error()})
		return nil
	}
	return thumb
}

func novelCoverBytes(folder string, batch []*models.Chapter) []byte {
	entries, err := os.ReadDir(folder)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if _, ok := coverNames[strings.ToLower(entry.Name())]; ok {
				if data, err := os.ReadFile(filepath.Join(folder, entry.Name())); err == nil {
					return data
				}
			}
		}
	}

	for _, chapter := range batch {
		book, err := epub.Open(chapter.FilePath)
		if err != nil {
			continue
		}
		cover, _, err := book.Cover()
		book.Close()
		if err == nil && len(cover) > 0 {
			return cover
		}
	}

	return nil
}

// enrich attaches the scraped catalog document to the content. Returns the
// failure reason, or empty on success. No metadata client means enrichment
// is disabled and is not a failure.
func (p *Pipeline) enrich(ctx context.Context, content *models.Content) string {
	if p.metadataClient == nil {
		return ""
	}

	doc, err := p.metadataClient.AutoScrape(ctx, content.Title)
	if err != nil {
		return err.Error()
	}
	if err := p.contentService.UpdateMetadata(ctx, content.ID, doc); err != nil {
		return err.Error()
	}
	content.Metadata = doc

	return ""
}
