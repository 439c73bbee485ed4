package watcher

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shishobooks/yomu/pkg/libraries"
	"github.com/shishobooks/yomu/pkg/migrations"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/shishobooks/yomu/pkg/scanqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type fakeQueue struct {
	mu      sync.Mutex
	submits []int
}

func (q *fakeQueue) Submit(libraryID int, _ string) (*scanqueue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.submits = append(q.submits, libraryID)
	return &scanqueue.Task{LibraryID: libraryID}, nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.submits)
}

func newTestWatcher(t *testing.T) (*Watcher, *fakeQueue, *libraries.Service) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	queue := &fakeQueue{}
	libraryService := libraries.NewService(db)
	w := New(queue, libraryService)
	t.Cleanup(w.StopAll)

	return w, queue, libraryService
}

func createLibrary(t *testing.T, svc *libraries.Service, paths ...string) *models.Library {
	t.Helper()

	library := &models.Library{Name: "Watched", WatchMode: true}
	for _, path := range paths {
		library.ScanPaths = append(library.ScanPaths, &models.ScanPath{Path: path})
	}
	require.NoError(t, svc.CreateLibrary(context.Background(), library))
	return library
}

func TestStartStop(t *testing.T) {
	w, _, svc := newTestWatcher(t)
	root := t.TempDir()
	library := createLibrary(t, svc, root)

	require.NoError(t, w.Start(context.Background(), library.ID))
	assert.True(t, w.IsWatching(library.ID))
	assert.Equal(t, []string{root}, w.WatchedRoots(library.ID))

	// Starting again is a no-op.
	require.NoError(t, w.Start(context.Background(), library.ID))

	w.Stop(library.ID)
	assert.False(t, w.IsWatching(library.ID))

	// Stopping again is a no-op.
	w.Stop(library.ID)
}

func TestStartWithoutScanPathsIsNoop(t *testing.T) {
	w, _, svc := newTestWatcher(t)
	library := createLibrary(t, svc)

	require.NoError(t, w.Start(context.Background(), library.ID))
	assert.False(t, w.IsWatching(library.ID))
}

func TestStartSkipsMissingRoots(t *testing.T) {
	w, _, svc := newTestWatcher(t)
	root := t.TempDir()
	library := createLibrary(t, svc, root, filepath.Join(root, "missing"))

	require.NoError(t, w.Start(context.Background(), library.ID))
	assert.Equal(t, []string{root}, w.WatchedRoots(library.ID))
}

func TestDebounceCollapsesBurst(t *testing.T) {
	original := debounceDelay
	debounceDelay = 100 * time.Millisecond
	defer func() { debounceDelay = original }()

	w, queue, svc := newTestWatcher(t)
	root := t.TempDir()
	library := createLibrary(t, svc, root)

	require.NoError(t, w.Start(context.Background(), library.ID))

	for i := 0; i < 20; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, fmt.Sprintf("file-%02d.cbz", i)), []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool {
		return queue.count() >= 1
	}, 3*time.Second, 10*time.Millisecond)

	// The burst collapsed into one submission.
	time.Sleep(3 * debounceDelay)
	assert.Equal(t, 1, queue.count())
}

func TestRefreshPicksUpNewScanPaths(t *testing.T) {
	w, _, svc := newTestWatcher(t)
	rootA := t.TempDir()
	rootB := t.TempDir()
	library := createLibrary(t, svc, rootA)

	require.NoError(t, w.Start(context.Background(), library.ID))
	assert.Equal(t, []string{rootA}, w.WatchedRoots(library.ID))

	require.NoError(t, svc.CreateScanPath(context.Background(), &models.ScanPath{
		LibraryID: library.ID,
		Path:      rootB,
	}))

	require.NoError(t, w.Refresh(context.Background(), library.ID))
	assert.ElementsMatch(t, []string{rootA, rootB}, w.WatchedRoots(library.ID))
}
