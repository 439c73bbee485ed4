package scanqueue

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/yomu/pkg/errcodes"
)

const defaultHistoryLimit = 50

type handler struct {
	queue *Queue
}

// list returns the tasks currently pending or running.
func (h *handler) list(c echo.Context) error {
	resp := struct {
		Processing []*Task `json:"processing"`
		Pending    []*Task `json:"pending"`
	}{h.queue.ListProcessing(), h.queue.ListPending()}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) history(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return errcodes.ValidationError("limit must be a positive integer")
		}
		limit = parsed
	}

	resp := struct {
		Tasks []*Task `json:"tasks"`
	}{h.queue.ListHistory(limit)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	task := h.queue.Get(c.Param("id"))
	if task == nil {
		return errcodes.NotFound("Scan task")
	}

	return errors.WithStack(c.JSON(http.StatusOK, task))
}

func (h *handler) cancel(c echo.Context) error {
	task, err := h.queue.Cancel(c.Param("id"))
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, task))
}
