package archive

import (
	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/epub"
	"github.com/shishobooks/yomu/pkg/htmlutil"
)

func listEpubPages(path string) ([]string, error) {
	book, err := epub.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open epub %s: %v", path, err)
	}
	defer book.Close()

	// The spine is already in reading order; idrefs are the opaque ids.
	return book.SpineIDs(), nil
}

func extractEpubItem(path, idref string) ([]byte, error) {
	book, err := epub.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open epub %s: %v", path, err)
	}
	defer book.Close()

	if _, ok := book.ManifestItem(idref); !ok {
		return nil, errors.Wrap(ErrEntryNotFound, idref)
	}

	data, err := book.ReadItem(idref)
	if err != nil {
		return nil, errors.Wrapf(ErrReadFailure, "read spine item %s: %v", idref, err)
	}
	return data, nil
}

func extractEpubText(path, idref string) (string, error) {
	data, err := extractEpubItem(path, idref)
	if err != nil {
		return "", err
	}
	return htmlutil.ExtractText(string(data)), nil
}

func epubCoverBytes(path string) ([]byte, error) {
	book, err := epub.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open epub %s: %v", path, err)
	}
	defer book.Close()

	cover, _, err := book.Cover()
	if err != nil {
		return nil, errors.Wrapf(ErrReadFailure, "read epub cover %s: %v", path, err)
	}
	return cover, nil
}
