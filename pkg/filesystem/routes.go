package filesystem

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/yomu/pkg/auth"
)

// RegisterRoutes registers the filesystem browse route. Browsing the server
// filesystem is for picking scan paths, so it is admin-only.
func RegisterRoutes(e *echo.Echo, authMiddleware *auth.Middleware) {
	filesystemService := NewService()

	h := &handler{
		filesystemService: filesystemService,
	}

	e.GET("/filesystem/browse", h.browse, authMiddleware.Authenticate, authMiddleware.RequireAdmin)
}
