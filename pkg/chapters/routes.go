package chapters

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/yomu/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all chapter routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	chapterService := NewService(db)

	h := &handler{
		chapterService: chapterService,
	}

	e.GET("/contents/:id/chapters", h.listByContent, authMiddleware.Authenticate)

	chapters := e.Group("/chapters")
	chapters.Use(authMiddleware.Authenticate)

	chapters.GET("/:id", h.retrieve)
	chapters.GET("/:id/pages", h.pages)
	chapters.GET("/:id/pages/*", h.page)
	chapters.GET("/:id/text/*", h.text)

	return chapterService
}
