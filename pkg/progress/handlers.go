package progress

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/errcodes"
)

type handler struct {
	progressService *Service
}

func (h *handler) upsert(c echo.Context) error {
	ctx := c.Request().Context()

	chapterID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Chapter")
	}

	params := UpsertProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	userID, _ := c.Get("user_id").(int)

	rp, err := h.progressService.Upsert(ctx, UpsertOptions{
		UserID:     userID,
		ChapterID:  chapterID,
		Position:   params.Position,
		Percentage: params.Percentage,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	chapterID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Chapter")
	}

	userID, _ := c.Get("user_id").(int)

	rp, err := h.progressService.Retrieve(ctx, userID, chapterID)
	if err != nil {
		return err
	}
	if rp == nil {
		return errcodes.NotFound("Reading progress")
	}

	return c.JSON(http.StatusOK, rp)
}

func (h *handler) listByContent(c echo.Context) error {
	ctx := c.Request().Context()

	contentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Content")
	}

	userID, _ := c.Get("user_id").(int)

	rows, err := h.progressService.ListByContent(ctx, userID, contentID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rows)
}
