package libraries

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/shishobooks/yomu/pkg/scanqueue"
)

type handler struct {
	libraryService *Service
	queue          *scanqueue.Queue
	scheduler      Scheduler
	watcher        Watcher
}

// submitScan queues a scan without failing the request when the queue
// refuses it (for example during shutdown).
func (h *handler) submitScan(c echo.Context, libraryID int, priority string) {
	if h.queue == nil {
		return
	}
	if _, err := h.queue.Submit(libraryID, priority); err != nil {
		log := logger.FromContext(c.Request().Context())
		log.Err(err).Data(logger.Data{"library_id": libraryID}).Error("failed to queue scan")
	}
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library := &models.Library{
		Name:                params.Name,
		ScanIntervalMinutes: params.ScanIntervalMinutes,
		WatchMode:           params.WatchMode,
		ScanPaths:           make([]*models.ScanPath, 0, len(params.ScanPaths)),
	}
	for _, path := range params.ScanPaths {
		library.ScanPaths = append(library.ScanPaths, &models.ScanPath{
			Path: path,
		})
	}

	err := h.libraryService.CreateLibrary(ctx, library)
	if err != nil {
		return errors.WithStack(err)
	}

	h.submitScan(c, library.ID, scanqueue.PriorityHigh)
	if h.scheduler != nil {
		h.scheduler.Schedule(library.ID, library.ScanIntervalMinutes)
	}
	if h.watcher != nil && library.WatchMode {
		if err := h.watcher.Start(ctx, library.ID); err != nil {
			log := logger.FromContext(ctx)
			log.Err(err).Data(logger.Data{"library_id": library.ID}).Error("failed to start watcher")
		}
	}

	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &library.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListLibrariesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Libraries []*models.Library `json:"libraries"`
		Total     int               `json:"total"`
	}{libraries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	params := UpdateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateLibraryOptions{Columns: []string{}}
	intervalChanged := false
	watchModeChanged := false

	if params.Name != nil && *params.Name != library.Name {
		library.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.ScanIntervalMinutes != nil && *params.ScanIntervalMinutes != library.ScanIntervalMinutes {
		library.ScanIntervalMinutes = *params.ScanIntervalMinutes
		opts.Columns = append(opts.Columns, "scan_interval_minutes")
		intervalChanged = true
	}
	if params.WatchMode != nil && *params.WatchMode != library.WatchMode {
		library.WatchMode = *params.WatchMode
		opts.Columns = append(opts.Columns, "watch_mode")
		watchModeChanged = true
	}
	if params.ScanPaths != nil {
		library.ScanPaths = make([]*models.ScanPath, 0, len(*params.ScanPaths))
		for _, path := range *params.ScanPaths {
			library.ScanPaths = append(library.ScanPaths, &models.ScanPath{
				Path: path,
			})
		}
		opts.UpdateScanPaths = true
	}

	err = h.libraryService.UpdateLibrary(ctx, library, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	if intervalChanged && h.scheduler != nil {
		h.scheduler.Update(library.ID, library.ScanIntervalMinutes)
	}
	if h.watcher != nil {
		log := logger.FromContext(ctx)
		switch {
		case watchModeChanged && !library.WatchMode:
			h.watcher.Stop(library.ID)
		case library.WatchMode && (watchModeChanged || opts.UpdateScanPaths):
			if err := h.watcher.Refresh(ctx, library.ID); err != nil {
				log.Err(err).Data(logger.Data{"library_id": library.ID}).Error("failed to refresh watcher")
			}
		}
	}
	if opts.UpdateScanPaths {
		h.submitScan(c, library.ID, scanqueue.PriorityNormal)
	}

	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	if h.scheduler != nil {
		h.scheduler.Cancel(id)
	}
	if h.watcher != nil {
		h.watcher.Stop(id)
	}

	err = h.libraryService.DeleteLibrary(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Library deleted successfully"}))
}

// scan queues a manual high-priority scan of the library.
func (h *handler) scan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Make sure the library exists before queueing anything.
	_, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	task, err := h.queue.Submit(id, scanqueue.PriorityHigh)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusAccepted, task))
}
