// Package scanqueue serializes library scans through a single worker. Tasks
// are deduplicated per library, ordered by (priority desc, created_at asc),
// and cancellable; terminal tasks are kept in memory for a bounded history.
package scanqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/errcodes"
)

const (
	historyRetention = 24 * time.Hour
	shutdownGrace    = 30 * time.Second
)

// ErrCancelled is returned by a ScanFunc that aborted at a cancellation
// checkpoint.
var ErrCancelled = errors.New("scan cancelled")

// Checkpoint carries the cooperative hooks a ScanFunc calls between coarse
// steps. Cancelled must be checked per scan path and around each folder
// import; when it reports true the ScanFunc should stop and return
// ErrCancelled.
type Checkpoint struct {
	Cancelled func() bool
	Progress  func(scanned, total int)
}

// ScanFunc performs one library scan. It may return a partial Result
// alongside ErrCancelled.
type ScanFunc func(ctx context.Context, libraryID int, checkpoint Checkpoint) (*Result, error)

type Queue struct {
	scan ScanFunc
	log  logger.Logger

	mu         sync.Mutex
	cond       *sync.Cond
	pending    []*Task
	tasks      map[string]*Task
	active     map[int]string
	stopping   bool
	started    bool
	workerDone chan struct{}
}

func New(scan ScanFunc) *Queue {
	q := &Queue{
		scan:       scan,
		log:        logger.New(),
		tasks:      map[string]*Task{},
		active:     map[int]string{},
		workerDone: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the worker goroutine. Submitting before Start is allowed;
// tasks accumulate and drain in priority order once the worker runs.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started || q.stopping {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.worker()
}

// Submit enqueues a scan for the library, deduplicating against any
// non-terminal task. A High submit while the existing task is still Pending
// upgrades it in place.
func (q *Queue) Submit(libraryID int, priority string) (*Task, error) {
	if _, ok := priorityRank[priority]; !ok {
		return nil, errcodes.BadRequest("Invalid scan priority.")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if id, ok := q.active[libraryID]; ok {
		task := q.tasks[id]
		if task.Status == StatusPending && priorityRank[priority] > priorityRank[task.Priority] {
			task.Priority = priority
			q.sortPending()
		}
		return task.clone(), nil
	}

	task := &Task{
		ID:        uuid.NewString(),
		LibraryID: libraryID,
		Priority:  priority,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	q.tasks[task.ID] = task
	q.active[libraryID] = task.ID
	q.pending = append(q.pending, task)
	q.sortPending()
	q.pruneHistory(task.CreatedAt)
	q.cond.Signal()

	return task.clone(), nil
}

// Get returns the task by id, or nil if unknown or expired from history.
func (q *Queue) Get(taskID string) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return nil
	}
	return task.clone()
}

// GetByLibrary returns the library's active (non-terminal) task, if any.
func (q *Queue) GetByLibrary(libraryID int) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	id, ok := q.active[libraryID]
	if !ok {
		return nil
	}
	return q.tasks[id].clone()
}

// ListPending returns the pending tasks in pop order.
func (q *Queue) ListPending() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := make([]*Task, 0, len(q.pending))
	for _, task := range q.pending {
		tasks = append(tasks, task.clone())
	}
	return tasks
}

// ListProcessing returns the running task, if any. Length is at most 1.
func (q *Queue) ListProcessing() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := []*Task{}
	for _, id := range q.active {
		if task := q.tasks[id]; task.Status == StatusRunning {
			tasks = append(tasks, task.clone())
		}
	}
	return tasks
}

// ListHistory returns terminal tasks completed within the last 24 hours,
// most recent first, truncated to limit.
func (q *Queue) ListHistory(limit int) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-historyRetention)
	tasks := []*Task{}
	for _, task := range q.tasks {
		if task.IsTerminal() && task.CompletedAt != nil && task.CompletedAt.After(cutoff) {
			tasks = append(tasks, task.clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CompletedAt.After(*tasks[j].CompletedAt)
	})
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks
}

// Cancel cancels a pending task immediately; a running task is marked and
// the worker observes the flag at its next checkpoint. Cancelling a terminal
// task is an error.
func (q *Queue) Cancel(taskID string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return nil, errcodes.NotFound("Scan task")
	}
	if task.IsTerminal() {
		return nil, errcodes.InvalidState("Scan task has already finished.")
	}

	if task.Status == StatusPending {
		q.removePending(task.ID)
	}

	now := time.Now()
	task.Status = StatusCancelled
	task.CompletedAt = &now
	if q.active[task.LibraryID] == task.ID {
		delete(q.active, task.LibraryID)
	}

	return task.clone(), nil
}

// Shutdown stops the worker, allowing up to 30 seconds for the task in
// flight. Leftover pending tasks are discarded with the process.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.stopping {
		q.mu.Unlock()
		return
	}
	q.stopping = true
	started := q.started
	q.cond.Broadcast()
	q.mu.Unlock()

	if !started {
		return
	}

	select {
	case <-q.workerDone:
	case <-time.After(shutdownGrace):
		q.log.Warn("scan worker did not finish within the shutdown grace period")
	}
}

func (q *Queue) worker() {
	defer close(q.workerDone)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.stopping {
			q.cond.Wait()
		}
		if q.stopping {
			q.mu.Unlock()
			return
		}

		task := q.pending[0]
		q.pending = q.pending[1:]
		if task.Status != StatusPending {
			q.mu.Unlock()
			continue
		}
		startedAt := time.Now()
		task.Status = StatusRunning
		task.StartedAt = &startedAt
		q.mu.Unlock()

		log := q.log.ID(task.ID).Root(logger.Data{
			"library_id": task.LibraryID,
			"priority":   task.Priority,
		})
		ctx := log.WithContext(context.Background())
		log.Info("scan started")

		checkpoint := Checkpoint{
			Cancelled: func() bool {
				q.mu.Lock()
				defer q.mu.Unlock()
				return task.Status == StatusCancelled || q.stopping
			},
			Progress: func(scanned, total int) {
				q.mu.Lock()
				defer q.mu.Unlock()
				task.Progress = &Progress{Scanned: scanned, Total: total}
			},
		}

		result, err := q.scan(ctx, task.LibraryID, checkpoint)

		q.mu.Lock()
		completedAt := time.Now()
		switch {
		case task.Status == StatusCancelled:
			// Cancel already stamped the task.
			if result != nil {
				task.Result = result
			}
		case errors.Is(err, ErrCancelled):
			task.Status = StatusCancelled
			task.Error = "interrupted by shutdown"
			task.CompletedAt = &completedAt
			if result != nil {
				task.Result = result
			}
		case err != nil:
			task.Status = StatusFailed
			task.Error = err.Error()
			task.CompletedAt = &completedAt
		default:
			task.Status = StatusCompleted
			task.Result = result
			task.CompletedAt = &completedAt
		}
		if q.active[task.LibraryID] == task.ID {
			delete(q.active, task.LibraryID)
		}
		status := task.Status
		q.pruneHistory(completedAt)
		q.mu.Unlock()

		switch status {
		case StatusFailed:
			log.Err(err).Error("scan failed")
		default:
			log.Data(logger.Data{"status": status}).Info("scan finished")
		}
	}
}

// sortPending re-sorts after insert or priority upgrade. The slice is small,
// so a rebuild beats an updatable heap.
func (q *Queue) sortPending() {
	sort.SliceStable(q.pending, func(i, j int) bool {
		ri, rj := priorityRank[q.pending[i].Priority], priorityRank[q.pending[j].Priority]
		if ri != rj {
			return ri > rj
		}
		return q.pending[i].CreatedAt.Before(q.pending[j].CreatedAt)
	})
}

func (q *Queue) removePending(taskID string) {
	for i, task := range q.pending {
		if task.ID == taskID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// pruneHistory drops terminal tasks older than the retention horizon.
func (q *Queue) pruneHistory(now time.Time) {
	cutoff := now.Add(-historyRetention)
	for id, task := range q.tasks {
		if task.IsTerminal() && task.CompletedAt != nil && task.CompletedAt.Before(cutoff) {
			delete(q.tasks, id)
		}
	}
}
