package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/yomu/pkg/auth"
	"github.com/shishobooks/yomu/pkg/binder"
	"github.com/shishobooks/yomu/pkg/chapters"
	"github.com/shishobooks/yomu/pkg/config"
	"github.com/shishobooks/yomu/pkg/contents"
	"github.com/shishobooks/yomu/pkg/errcodes"
	"github.com/shishobooks/yomu/pkg/filesystem"
	"github.com/shishobooks/yomu/pkg/libraries"
	"github.com/shishobooks/yomu/pkg/progress"
	"github.com/shishobooks/yomu/pkg/scanqueue"
	"github.com/shishobooks/yomu/pkg/users"
	"github.com/uptrace/bun"
)

// Deps are the background subsystems the HTTP layer drives.
type Deps struct {
	Queue     *scanqueue.Queue
	Scheduler libraries.Scheduler
	Watcher   libraries.Watcher
}

func New(cfg *config.Config, db *bun.DB, deps Deps) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.RegisterRoutes(e, db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	users.RegisterRoutes(e, db, authMiddleware)
	libraries.RegisterRoutes(e, db, authMiddleware, deps.Queue, deps.Scheduler, deps.Watcher)
	scanqueue.RegisterRoutes(e, deps.Queue, authMiddleware)
	contents.RegisterRoutes(e, db, authMiddleware)
	chapters.RegisterRoutes(e, db, authMiddleware)
	progress.RegisterRoutes(e, db, authMiddleware)
	filesystem.RegisterRoutes(e, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
