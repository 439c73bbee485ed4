// Package archive presents one contract across the container formats we
// serve: given an archive file path, list the ordered inner resources and
// extract any named resource as bytes. ZIP/CBZ and RAR/CBR hold page images,
// EPUB holds spine documents, PDF pages are rendered on demand.
package archive

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/naturalsort"
)

// Sentinel error kinds. Callers match with errors.Is; messages carry the
// detail.
var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrArchiveOpen       = errors.New("archive could not be opened")
	ErrEntryNotFound     = errors.New("entry not found in archive")
	ErrReadFailure       = errors.New("archive read failure")
)

// ComicExtensions are the archive formats that can hold a comic chapter.
var ComicExtensions = map[string]struct{}{
	".zip": {},
	".cbz": {},
	".cbr": {},
	".rar": {},
}

// NovelExtensions are the formats that can hold a novel chapter.
var NovelExtensions = map[string]struct{}{
	".epub": {},
}

var pageArchiveExtensions = map[string]struct{}{
	".zip": {}, ".cbz": {}, ".cbr": {}, ".rar": {}, ".epub": {}, ".pdf": {},
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {},
}

// IsSupported reports whether the file's extension names a container we can
// list and extract from.
func IsSupported(path string) bool {
	_, ok := pageArchiveExtensions[ext(path)]
	return ok
}

// IsImage reports whether the name has a page-image extension.
func IsImage(name string) bool {
	_, ok := imageExtensions[ext(name)]
	return ok
}

// ListPages returns the reading-order resource identifiers of the archive.
// Identifiers are opaque: entry paths for ZIP/RAR, spine idrefs for EPUB,
// synthetic "page_NNN" names for PDF. They round-trip through Extract.
func ListPages(path string) ([]string, error) {
	switch ext(path) {
	case ".zip", ".cbz":
		return listZipPages(path)
	case ".rar", ".cbr":
		return listRarPages(path)
	case ".epub":
		return listEpubPages(path)
	case ".pdf":
		return listPdfPages(path)
	default:
		return nil, errors.Wrap(ErrUnsupportedFormat, ext(path))
	}
}

// Extract returns the raw bytes of the named resource. For PDF the resource
// is rendered to a PNG at 2x scale.
func Extract(path, id string) ([]byte, error) {
	switch ext(path) {
	case ".zip", ".cbz":
		return extractZipEntry(path, id)
	case ".rar", ".cbr":
		return extractRarEntry(path, id)
	case ".epub":
		return extractEpubItem(path, id)
	case ".pdf":
		return renderPdfPage(path, id)
	default:
		return nil, errors.Wrap(ErrUnsupportedFormat, ext(path))
	}
}

// ExtractText resolves an EPUB spine idref and returns the chapter's plain
// text, with markup stripped and entities decoded.
func ExtractText(path, id string) (string, error) {
	if ext(path) != ".epub" {
		return "", errors.Wrap(ErrUnsupportedFormat, "text extraction requires an epub")
	}
	return extractEpubText(path, id)
}

// FirstPageBytes returns the first page of the archive, used for thumbnails.
// For EPUBs an embedded cover is preferred over the first spine item.
func FirstPageBytes(path string) ([]byte, error) {
	if ext(path) == ".epub" {
		if cover, err := epubCoverBytes(path); err == nil && len(cover) > 0 {
			return cover, nil
		}
	}

	pages, err := ListPages(path)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errors.Wrap(ErrEntryNotFound, "archive has no pages")
	}
	return Extract(path, pages[0])
}

// PageCount returns the number of readable resources in the archive.
func PageCount(path string) (int, error) {
	pages, err := ListPages(path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// sortNatural orders entry names in natural order, the same ordering used
// for chapters within a folder.
func sortNatural(names []string) {
	naturalsort.Strings(names)
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
