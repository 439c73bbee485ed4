package chapters

import (
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/archive"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/models"
)

type handler struct {
	chapterService *Service
}

// mapArchiveErr translates archive sentinel errors into API errors.
func mapArchiveErr(err error) error {
	switch {
	case errors.Is(err, archive.ErrEntryNotFound):
		return errcodes.NotFound("Page")
	case errors.Is(err, archive.ErrUnsupportedFormat):
		return errcodes.BadRequest("Unsupported archive format")
	case errors.Is(err, archive.ErrArchiveOpen):
		return errcodes.NotFound("Chapter file")
	default:
		return errors.WithStack(err)
	}
}

func (h *handler) chapterFromParam(c echo.Context) (*models.Chapter, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, errcodes.NotFound("Chapter")
	}
	return h.chapterService.RetrieveChapter(c.Request().Context(), RetrieveChapterOptions{
		ID: &id,
	})
}

func (h *handler) listByContent(c echo.Context) error {
	ctx := c.Request().Context()
	contentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Content")
	}

	chapters, err := h.chapterService.ListByContent(ctx, contentID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Chapters []*models.Chapter `json:"chapters"`
	}{chapters}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	chapter, err := h.chapterFromParam(c)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, chapter))
}

// pages returns the ordered resource ids of the chapter's archive.
func (h *handler) pages(c echo.Context) error {
	chapter, err := h.chapterFromParam(c)
	if err != nil {
		return err
	}

	pages, err := archive.ListPages(chapter.FilePath)
	if err != nil {
		return mapArchiveErr(err)
	}

	resp := struct {
		Pages []string `json:"pages"`
	}{pages}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// page serves a single page resource. The wildcard keeps entry names with
// directory separators addressable.
func (h *handler) page(c echo.Context) error {
	chapter, err := h.chapterFromParam(c)
	if err != nil {
		return err
	}

	pageID := c.Param("*")
	if pageID == "" {
		return errcodes.NotFound("Page")
	}

	data, err := archive.Extract(chapter.FilePath, pageID)
	if err != nil {
		return mapArchiveErr(err)
	}

	return errors.WithStack(c.Blob(http.StatusOK, mimetype.Detect(data).String(), data))
}

// text serves a chapter resource as plain text. Only EPUBs support this.
func (h *handler) text(c echo.Context) error {
	chapter, err := h.chapterFromParam(c)
	if err != nil {
		return err
	}

	pageID := c.Param("*")
	if pageID == "" {
		return errcodes.NotFound("Page")
	}

	text, err := archive.ExtractText(chapter.FilePath, pageID)
	if err != nil {
		return mapArchiveErr(err)
	}

	return errors.WithStack(c.String(http.StatusOK, text))
}
