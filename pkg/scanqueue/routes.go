package scanqueue

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/yomu/pkg/auth"
)

// RegisterRoutes registers all scan queue routes.
func RegisterRoutes(e *echo.Echo, queue *Queue, authMiddleware *auth.Middleware) {
	h := &handler{
		queue: queue,
	}

	scans := e.Group("/scans")
	scans.Use(authMiddleware.Authenticate)

	scans.GET("", h.list)
	scans.GET("/history", h.history)
	scans.GET("/:id", h.retrieve)
	scans.POST("/:id/cancel", h.cancel, authMiddleware.RequireAdmin)
}
