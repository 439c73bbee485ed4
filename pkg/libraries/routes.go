package libraries

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/yomu/pkg/auth"
	"github.com/shishobooks/yomu/pkg/scanqueue"
	"github.com/uptrace/bun"
)

// Scheduler is the slice of the periodic scan scheduler the handlers need.
// Declared here because the watcher package imports this one.
type Scheduler interface {
	Schedule(libraryID, intervalMinutes int)
	Update(libraryID, intervalMinutes int)
	Cancel(libraryID int)
}

// Watcher is the slice of the filesystem watcher the handlers need.
type Watcher interface {
	Start(ctx context.Context, libraryID int) error
	Stop(libraryID int)
	Refresh(ctx context.Context, libraryID int) error
}

// RegisterRoutes registers all library routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware, queue *scanqueue.Queue, scheduler Scheduler, watcher Watcher) *Service {
	libraryService := NewService(db)

	h := &handler{
		libraryService: libraryService,
		queue:          queue,
		scheduler:      scheduler,
		watcher:        watcher,
	}

	libraries := e.Group("/libraries")
	libraries.Use(authMiddleware.Authenticate)

	libraries.GET("", h.list)
	libraries.GET("/:id", h.retrieve)
	libraries.POST("", h.create, authMiddleware.RequireAdmin)
	libraries.POST("/:id", h.update, authMiddleware.RequireAdmin)
	libraries.DELETE("/:id", h.delete, authMiddleware.RequireAdmin)
	libraries.POST("/:id/scan", h.scan, authMiddleware.RequireAdmin)

	return libraryService
}
