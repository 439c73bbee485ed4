package contents

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/yomu/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all content routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	contentService := NewService(db)

	h := &handler{
		contentService: contentService,
	}

	contents := e.Group("/contents")
	contents.Use(authMiddleware.Authenticate)

	contents.GET("", h.list)
	contents.GET("/:id", h.retrieve)
	contents.GET("/:id/thumbnail", h.thumbnail)
	contents.DELETE("/:id", h.delete, authMiddleware.RequireAdmin)

	return contentService
}
