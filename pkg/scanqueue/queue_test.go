package scanqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, q *Queue, taskID, status string) *Task {
	t.Helper()

	var task *Task
	require.Eventually(t, func() bool {
		task = q.Get(taskID)
		return task != nil && task.Status == status
	}, 5*time.Second, 5*time.Millisecond)
	return task
}

func TestSubmitDedupAndUpgrade(t *testing.T) {
	t.Parallel()

	q := New(func(_ context.Context, _ int, _ Checkpoint) (*Result, error) {
		return &Result{Added: 1}, nil
	})
	// Worker intentionally not started; tasks stay pending.

	first, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, PriorityNormal, first.Priority)

	second, err := q.Submit(1, PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, PriorityHigh, second.Priority)

	// A lower-priority submit does not downgrade.
	third, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, PriorityHigh, third.Priority)

	q.Start()
	defer q.Shutdown()

	done := waitForStatus(t, q, first.ID, StatusCompleted)
	require.NotNil(t, done.Result)
	assert.Equal(t, 1, done.Result.Added)
	assert.Nil(t, q.GetByLibrary(1))

	// The terminal task no longer dedups; a fresh submit gets a new id.
	fresh, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestSubmitInvalidPriority(t *testing.T) {
	t.Parallel()

	q := New(func(_ context.Context, _ int, _ Checkpoint) (*Result, error) {
		return &Result{}, nil
	})

	_, err := q.Submit(1, "urgent")
	assert.Error(t, err)
}

func TestStrictPriorityOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []int
	q := New(func(_ context.Context, libraryID int, _ Checkpoint) (*Result, error) {
		mu.Lock()
		order = append(order, libraryID)
		mu.Unlock()
		return &Result{}, nil
	})

	a, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)
	b, err := q.Submit(2, PriorityNormal)
	require.NoError(t, err)
	c, err := q.Submit(3, PriorityHigh)
	require.NoError(t, err)

	pending := q.ListPending()
	require.Len(t, pending, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{pending[0].ID, pending[1].ID, pending[2].ID})

	q.Start()
	defer q.Shutdown()

	waitForStatus(t, q, b.ID, StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3, 1, 2}, order)
}

func TestCancelPending(t *testing.T) {
	t.Parallel()

	q := New(func(_ context.Context, _ int, _ Checkpoint) (*Result, error) {
		return &Result{}, nil
	})

	task, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)

	cancelled, err := q.Cancel(task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)
	assert.Nil(t, q.GetByLibrary(1))
	assert.Empty(t, q.ListPending())

	// Cancelling again is an invalid state transition.
	_, err = q.Cancel(task.ID)
	assert.Error(t, err)

	_, err = q.Cancel("no-such-task")
	assert.Error(t, err)
}

func TestCancelRunningIsCooperative(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	q := New(func(_ context.Context, _ int, checkpoint Checkpoint) (*Result, error) {
		close(started)
		for !checkpoint.Cancelled() {
			time.Sleep(time.Millisecond)
		}
		return &Result{Added: 2}, ErrCancelled
	})
	q.Start()
	defer q.Shutdown()

	task, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)

	<-started
	_, err = q.Cancel(task.ID)
	require.NoError(t, err)

	final := waitForStatus(t, q, task.ID, StatusCancelled)
	require.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.Result)
	assert.Equal(t, 2, final.Result.Added)
	assert.Nil(t, q.GetByLibrary(1))
	assert.Empty(t, q.ListProcessing())
}

func TestListProcessing(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	q := New(func(_ context.Context, _ int, _ Checkpoint) (*Result, error) {
		close(started)
		<-release
		return &Result{}, nil
	})
	q.Start()
	defer q.Shutdown()

	task, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)

	<-started
	processing := q.ListProcessing()
	require.Len(t, processing, 1)
	assert.Equal(t, task.ID, processing[0].ID)
	assert.Equal(t, StatusRunning, processing[0].Status)

	close(release)
	waitForStatus(t, q, task.ID, StatusCompleted)
}

func TestFailedScanRecordsError(t *testing.T) {
	t.Parallel()

	q := New(func(_ context.Context, _ int, _ Checkpoint) (*Result, error) {
		return nil, assert.AnError
	})
	q.Start()
	defer q.Shutdown()

	task, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)

	final := waitForStatus(t, q, task.ID, StatusFailed)
	assert.NotEmpty(t, final.Error)
	assert.Nil(t, q.GetByLibrary(1))
}

func TestListHistory(t *testing.T) {
	t.Parallel()

	q := New(func(_ context.Context, _ int, _ Checkpoint) (*Result, error) {
		return &Result{}, nil
	})
	q.Start()
	defer q.Shutdown()

	var last *Task
	for libraryID := 1; libraryID <= 3; libraryID++ {
		task, err := q.Submit(libraryID, PriorityNormal)
		require.NoError(t, err)
		last = waitForStatus(t, q, task.ID, StatusCompleted)
	}

	history := q.ListHistory(50)
	require.Len(t, history, 3)
	for _, task := range history {
		assert.True(t, task.IsTerminal())
	}
	// Most recent first.
	assert.Equal(t, last.ID, history[0].ID)

	limited := q.ListHistory(2)
	assert.Len(t, limited, 2)
}

func TestProgressReporting(t *testing.T) {
	t.Parallel()

	q := New(func(_ context.Context, _ int, checkpoint Checkpoint) (*Result, error) {
		checkpoint.Progress(1, 4)
		checkpoint.Progress(4, 4)
		return &Result{Added: 4}, nil
	})
	q.Start()
	defer q.Shutdown()

	task, err := q.Submit(1, PriorityNormal)
	require.NoError(t, err)

	final := waitForStatus(t, q, task.ID, StatusCompleted)
	require.NotNil(t, final.Progress)
	assert.Equal(t, 4, final.Progress.Scanned)
	assert.Equal(t, 4, final.Progress.Total)
}
