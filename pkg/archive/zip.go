package archive

import (
	"archive/zip"
	"io"

	"github.com/pkg/errors"
)

func listZipPages(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open zip %s: %v", path, err)
	}
	defer zr.Close()

	pages := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if IsImage(f.Name) {
			pages = append(pages, f.Name)
		}
	}
	sortNatural(pages)

	return pages, nil
}

func extractZipEntry(path, name string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open zip %s: %v", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(ErrReadFailure, "open entry %s: %v", name, err)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrapf(ErrReadFailure, "read entry %s: %v", name, err)
		}
		return data, nil
	}

	return nil, errors.Wrap(ErrEntryNotFound, name)
}
