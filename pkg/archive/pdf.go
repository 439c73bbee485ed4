package archive

import (
	"bytes"
	"fmt"
	"image/png"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"
)

// PDF pages have no inner entries to name, so resources are synthetic
// "page_NNN" identifiers (1-based, zero-padded to 3). Rendering happens on
// demand at 2x scale (144 DPI).

const pdfRenderDPI = 144

var (
	pdfiumPoolOnce sync.Once
	pdfiumPool     pdfium.Pool
	pdfiumPoolErr  error
)

// pdfiumInstance lazily boots the WebAssembly pdfium runtime. A single
// instance is enough: only the scan worker and page readers render, and
// renders are short.
func pdfiumInstance() (pdfium.Pdfium, error) {
	pdfiumPoolOnce.Do(func() {
		pdfiumPool, pdfiumPoolErr = webassembly.Init(webassembly.Config{
			MinIdle:  1,
			MaxIdle:  1,
			MaxTotal: 1,
		})
	})
	if pdfiumPoolErr != nil {
		return nil, errors.WithStack(pdfiumPoolErr)
	}

	instance, err := pdfiumPool.GetInstance(30 * time.Second)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return instance, nil
}

func listPdfPages(path string) ([]string, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open pdf %s: %v", path, err)
	}

	pages := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		pages = append(pages, PdfPageID(i))
	}
	return pages, nil
}

// PdfPageID formats a 1-based page number as a resource id.
func PdfPageID(n int) string {
	return fmt.Sprintf("page_%03d", n)
}

// parsePdfPageID reverses PdfPageID. The id must be "page_" followed by a
// positive integer.
func parsePdfPageID(id string) (int, error) {
	num, ok := strings.CutPrefix(id, "page_")
	if !ok {
		return 0, errors.Wrap(ErrEntryNotFound, id)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0, errors.Wrap(ErrEntryNotFound, id)
	}
	return n, nil
}

func renderPdfPage(path, id string) ([]byte, error) {
	pageNum, err := parsePdfPageID(id)
	if err != nil {
		return nil, err
	}

	count, err := api.PageCountFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open pdf %s: %v", path, err)
	}
	if pageNum > count {
		return nil, errors.Wrapf(ErrEntryNotFound, "%s (document has %d pages)", id, count)
	}

	instance, err := pdfiumInstance()
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "pdfium init: %v", err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{FilePath: &path})
	if err != nil {
		return nil, errors.Wrapf(ErrArchiveOpen, "open pdf %s: %v", path, err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document}) //nolint:errcheck

	render, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: pdfRenderDPI,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    pageNum - 1,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(ErrReadFailure, "render pdf page %d of %s: %v", pageNum, path, err)
	}
	defer render.Cleanup()

	var buf bytes.Buffer
	if err := png.Encode(&buf, render.Result.Image); err != nil {
		return nil, errors.Wrapf(ErrReadFailure, "encode pdf page %d of %s: %v", pageNum, path, err)
	}
	return buf.Bytes(), nil
}
