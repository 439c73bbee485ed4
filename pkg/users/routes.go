package users

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/yomu/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all user routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	userService := NewService(db)

	h := &handler{
		userService: userService,
	}

	users := e.Group("/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("", h.list, authMiddleware.RequireAdmin)
	users.GET("/:id", h.retrieve, authMiddleware.RequireAdmin)
	users.POST("", h.create, authMiddleware.RequireAdmin)
	users.POST("/:id", h.update, authMiddleware.RequireAdmin)
	users.DELETE("/:id", h.delete, authMiddleware.RequireAdmin)

	// Authenticated users can reset their own password; admins can reset
	// anyone's.
	users.POST("/:id/reset-password", h.resetPassword)

	return userService
}
