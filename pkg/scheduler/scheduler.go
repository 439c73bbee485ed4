// Package scheduler submits a Normal-priority scan for each library on its
// configured interval. Bindings live only in memory; Restore rebuilds them
// from the libraries table at startup.
package scheduler

import (
	"sync"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/shishobooks/yomu/pkg/scanqueue"
)

// minuteDuration is a variable so tests can compress time.
var minuteDuration = time.Minute

// Submitter is the slice of the scan queue the scheduler needs.
type Submitter interface {
	Submit(libraryID int, priority string) (*scanqueue.Task, error)
}

// Binding is a snapshot of one library's schedule.
type Binding struct {
	LibraryID       int       `json:"library_id"`
	IntervalMinutes int       `json:"interval_minutes"`
	NextFire        time.Time `json:"next_fire"`
}

type binding struct {
	intervalMinutes int
	nextFire        time.Time
	stop            chan struct{}
}

type Scheduler struct {
	queue Submitter
	log   logger.Logger

	mu       sync.Mutex
	bindings map[int]*binding
}

func New(queue Submitter) *Scheduler {
	return &Scheduler{
		queue:    queue,
		log:      logger.New(),
		bindings: map[int]*binding{},
	}
}

// Schedule registers a recurring scan for the library, replacing any
// existing binding. The first fire is one full period from now; minutes <= 0
// just cancels. Submission failures are logged and the ticker keeps going.
func (s *Scheduler) Schedule(libraryID, minutes int) {
	s.Cancel(libraryID)
	if minutes <= 0 {
		return
	}

	period := time.Duration(minutes) * minuteDuration
	b := &binding{
		intervalMinutes: minutes,
		nextFire:        time.Now().Add(period),
		stop:            make(chan struct{}),
	}

	s.mu.Lock()
	s.bindings[libraryID] = b
	s.mu.Unlock()

	go s.run(libraryID, b, period)
}

// Update is Schedule; it exists for call-site readability when a library's
// interval changes.
func (s *Scheduler) Update(libraryID, minutes int) {
	s.Schedule(libraryID, minutes)
}

// Cancel stops and drops the library's binding if present. The entry is
// removed before the stop signal is sent so a concurrent fire cannot requeue
// it.
func (s *Scheduler) Cancel(libraryID int) {
	s.mu.Lock()
	b, ok := s.bindings[libraryID]
	if ok {
		delete(s.bindings, libraryID)
	}
	s.mu.Unlock()

	if ok {
		close(b.stop)
	}
}

// NextFire returns the next scheduled fire time for the library, if bound.
func (s *Scheduler) NextFire(libraryID int) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bindings[libraryID]
	if !ok {
		return nil
	}
	nextFire := b.nextFire
	return &nextFire
}

// ListScheduled returns a snapshot of every binding.
func (s *Scheduler) ListScheduled() []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	bindings := make([]Binding, 0, len(s.bindings))
	for libraryID, b := range s.bindings {
		bindings = append(bindings, Binding{
			LibraryID:       libraryID,
			IntervalMinutes: b.intervalMinutes,
			NextFire:        b.nextFire,
		})
	}
	return bindings
}

// Restore registers bindings for every library with a positive interval.
// Called once at process start.
func (s *Scheduler) Restore(libraries []*models.Library) {
	for _, library := range libraries {
		if library.ScanIntervalMinutes > 0 {
			s.Schedule(library.ID, library.ScanIntervalMinutes)
		}
	}
}

// CancelAll drops every binding. Called at shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	bindings := s.bindings
	s.bindings = map[int]*binding{}
	s.mu.Unlock()

	for _, b := range bindings {
		close(b.stop)
	}
}

func (s *Scheduler) run(libraryID int, b *binding, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if _, err := s.queue.Submit(libraryID, scanqueue.PriorityNormal); err != nil {
				s.log.Err(err).Data(logger.Data{"library_id": libraryID}).Error("scheduled scan submit failed")
			}
			s.mu.Lock()
			b.nextFire = time.Now().Add(period)
			s.mu.Unlock()
		}
	}
}
