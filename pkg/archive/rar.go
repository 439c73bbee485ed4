package archive

import (
	"io"
	"os"

	"github.com/nwaples/rardecode/v2"
	"github.com/pkg/errors"
)

// RAR has no central directory we can seek around in, so both listing and
// extraction stream the archive front to back.

func listRarPages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open rar %s: %v", path, err)
	}
	defer f.Close()

	rr, err := rardecode.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "decode rar %s: %v", path, err)
	}

	var pages []string
	for {
		header, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrReadFailure, "rar header %s: %v", path, err)
		}
		if header.IsDir {
			continue
		}
		if IsImage(header.Name) {
			pages = append(pages, header.Name)
		}
	}
	sortNatural(pages)

	return pages, nil
}

func extractRarEntry(path, name string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open rar %s: %v", path, err)
	}
	defer f.Close()

	rr, err := rardecode.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "decode rar %s: %v", path, err)
	}

	for {
		header, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrReadFailure, "rar header %s: %v", path, err)
		}
		if header.Name != name {
			continue
		}

		data, err := io.ReadAll(rr)
		if err != nil {
			return nil, errors.Wrapf(ErrReadFailure, "read entry %s: %v", name, err)
		}
		return data, nil
	}

	return nil, errors.Wrap(ErrEntryNotFound, name)
}
