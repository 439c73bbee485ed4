package progress

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/yomu/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all reading progress routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	progressService := NewService(db)

	h := &handler{
		progressService: progressService,
	}

	e.PUT("/chapters/:id/progress", h.upsert, authMiddleware.Authenticate)
	e.GET("/chapters/:id/progress", h.retrieve, authMiddleware.Authenticate)
	e.GET("/contents/:id/progress", h.listByContent, authMiddleware.Authenticate)

	return progressService
}
