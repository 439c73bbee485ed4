package contents

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/models"
)

type handler struct {
	contentService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListContentsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListContentsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	}
	if params.LibraryID != nil {
		opts.LibraryID = params.LibraryID
	}
	if params.Type != nil {
		opts.Type = params.Type
	}

	contents, total, err := h.contentService.ListContentsWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Contents []*models.Content `json:"contents"`
		Total    int               `json:"total"`
	}{contents, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Content")
	}

	content, err := h.contentService.RetrieveContent(ctx, RetrieveContentOptions{
		ID: &id,
	})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, content))
}

// thumbnail serves the stored cover thumbnail. Thumbnails are always JPEG.
func (h *handler) thumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Content")
	}

	content, err := h.contentService.RetrieveContent(ctx, RetrieveContentOptions{
		ID: &id,
	})
	if err != nil {
		return err
	}
	if !content.HasThumbnail() {
		return errcodes.NotFound("Thumbnail")
	}

	return errors.WithStack(c.Blob(http.StatusOK, "image/jpeg", content.Thumbnail))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Content")
	}

	err = h.contentService.DeleteContent(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Content deleted successfully"}))
}
