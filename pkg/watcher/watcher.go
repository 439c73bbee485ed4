// Package watcher reacts to folders appearing or disappearing under a
// library's scan paths by submitting a deduplicated rescan. Watches are
// non-recursive; the scanner only cares about immediate candidate folders,
// and a rescan reconciles everything else.
package watcher

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/libraries"
	"github.com/shishobooks/yomu/pkg/scanqueue"
)

// debounceDelay is how long after the last-seen event the rescan fires. A
// variable so tests can compress time.
var debounceDelay = 500 * time.Millisecond

// Submitter is the slice of the scan queue the watcher needs.
type Submitter interface {
	Submit(libraryID int, priority string) (*scanqueue.Task, error)
}

type binding struct {
	fsw   *fsnotify.Watcher
	roots []string
	done  chan struct{}
}

type Watcher struct {
	queue          Submitter
	libraryService *libraries.Service
	log            logger.Logger

	mu       sync.Mutex
	bindings map[int]*binding
}

func New(queue Submitter, libraryService *libraries.Service) *Watcher {
	return &Watcher{
		queue:          queue,
		libraryService: libraryService,
		log:            logger.New(),
		bindings:       map[int]*binding{},
	}
}

// Start begins watching the library's scan path roots. Starting an
// already-watched library is a no-op, as is a library with no existing
// roots.
func (w *Watcher) Start(ctx context.Context, libraryID int) error {
	w.mu.Lock()
	if _, ok := w.bindings[libraryID]; ok {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	scanPaths, err := w.libraryService.ListScanPaths(ctx, libraryID)
	if err != nil {
		return errors.WithStack(err)
	}

	roots := []string{}
	for _, scanPath := range scanPaths {
		info, err := os.Stat(scanPath.Path)
		if err != nil || !info.IsDir() {
			w.log.Warn("skipping missing scan path", logger.Data{"library_id": libraryID, "path": scanPath.Path})
			continue
		}
		roots = append(roots, scanPath.Path)
	}
	if len(roots) == 0 {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithStack(err)
	}
	for _, root := range roots {
		if err := fsw.Add(root); err != nil {
			fsw.Close()
			return errors.WithStack(err)
		}
	}

	b := &binding{fsw: fsw, roots: roots, done: make(chan struct{})}

	w.mu.Lock()
	if _, ok := w.bindings[libraryID]; ok {
		// Lost the race with a concurrent Start.
		w.mu.Unlock()
		fsw.Close()
		return nil
	}
	w.bindings[libraryID] = b
	w.mu.Unlock()

	go w.loop(libraryID, b)
	w.log.Info("watching library", logger.Data{"library_id": libraryID, "roots": len(roots)})

	return nil
}

// Stop drops the library's watch if present.
func (w *Watcher) Stop(libraryID int) {
	w.mu.Lock()
	b, ok := w.bindings[libraryID]
	if ok {
		delete(w.bindings, libraryID)
	}
	w.mu.Unlock()

	if ok {
		close(b.done)
		b.fsw.Close()
	}
}

// Refresh restarts the watch, picking up scan path changes.
func (w *Watcher) Refresh(ctx context.Context, libraryID int) error {
	w.Stop(libraryID)
	return w.Start(ctx, libraryID)
}

func (w *Watcher) IsWatching(libraryID int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.bindings[libraryID]
	return ok
}

// WatchedRoots returns the roots currently watched for the library.
func (w *Watcher) WatchedRoots(libraryID int) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.bindings[libraryID]
	if !ok {
		return nil
	}
	roots := make([]string, len(b.roots))
	copy(roots, b.roots)
	return roots
}

// StopAll drops every watch. Called at shutdown.
func (w *Watcher) StopAll() {
	w.mu.Lock()
	bindings := w.bindings
	w.bindings = map[int]*binding{}
	w.mu.Unlock()

	for _, b := range bindings {
		close(b.done)
		b.fsw.Close()
	}
}

// loop debounces Create/Remove events into a single queue submission. The
// queue's dedup absorbs any burst that outruns the debounce window.
func (w *Watcher) loop(libraryID int, b *binding) {
	timer := time.NewTimer(debounceDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-b.done:
			return
		case event, ok := <-b.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(debounceDelay)
		case err, ok := <-b.fsw.Errors:
			if !ok {
				return
			}
			w.log.Err(err).Data(logger.Data{"library_id": libraryID}).Error("watch error")
		case <-timer.C:
			w.drain(b)
			if _, err := w.queue.Submit(libraryID, scanqueue.PriorityNormal); err != nil {
				w.log.Err(err).Data(logger.Data{"library_id": libraryID}).Error("watch-triggered scan submit failed")
			}
		}
	}
}

// drain empties any events that piled up during the debounce window.
func (w *Watcher) drain(b *binding) {
	for {
		select {
		case _, ok := <-b.fsw.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
