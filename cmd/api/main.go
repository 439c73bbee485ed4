package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shishobooks/yomu/pkg/chapters"
	"github.com/shishobooks/yomu/pkg/config"
	"github.com/shishobooks/yomu/pkg/contents"
	"github.com/shishobooks/yomu/pkg/database"
	"github.com/shishobooks/yomu/pkg/libraries"
	"github.com/shishobooks/yomu/pkg/metadata"
	"github.com/shishobooks/yomu/pkg/migrations"
	"github.com/shishobooks/yomu/pkg/scanner"
	"github.com/shishobooks/yomu/pkg/scanqueue"
	"github.com/shishobooks/yomu/pkg/scheduler"
	"github.com/shishobooks/yomu/pkg/server"
	"github.com/shishobooks/yomu/pkg/version"
	"github.com/shishobooks/yomu/pkg/watcher"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting yomu", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	libraryService := libraries.NewService(db)
	contentService := contents.NewService(db)
	chapterService := chapters.NewService(db)

	var metadataClient *metadata.Client
	if cfg.MetadataBaseURL != "" {
		metadataClient = metadata.NewClient(cfg.MetadataBaseURL, cfg.MetadataToken)
	}

	pipeline := scanner.New(libraryService, contentService, chapterService, metadataClient)
	queue := scanqueue.New(pipeline.ScanFunc())
	sched := scheduler.New(queue)
	watch := watcher.New(queue, libraryService)

	srv, err := server.New(cfg, db, server.Deps{
		Queue:     queue,
		Scheduler: sched,
		Watcher:   watch,
	})
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		// Extract actual port (useful when ServerPort is 0)
		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"port": actualPort})

		// Write port file for Vite to read
		if err := writePortFile(actualPort); err != nil {
			log.Err(err).Error("failed to write port file")
		}

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	queue.Start()
	log.Info("scan queue started")

	allLibraries, err := libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
	if err != nil {
		log.Err(err).Fatal("library list error")
	}
	sched.Restore(allLibraries)
	for _, library := range allLibraries {
		if !library.WatchMode {
			continue
		}
		if err := watch.Start(ctx, library.ID); err != nil {
			log.Err(err).Data(logger.Data{"library_id": library.ID}).Error("failed to start watcher")
		}
	}
	log.Info("scheduler and watchers restored", logger.Data{"libraries": len(allLibraries)})

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	watch.StopAll()
	log.Info("watchers stopped")

	sched.CancelAll()
	log.Info("scheduler stopped")

	queue.Shutdown()
	log.Info("scan queue shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// writePortFile writes the server's actual port to tmp/api.port for frontend dev server.
// Skips silently if tmp/ directory doesn't exist (e.g., in Docker).
func writePortFile(port int) error {
	if _, err := os.Stat("tmp"); os.IsNotExist(err) {
		return nil
	}
	return os.WriteFile("tmp/api.port", []byte(strconv.Itoa(port)), 0600)
}
