package scanqueue

import "time"

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// priorityRank orders priorities for the pending queue. Higher runs first.
var priorityRank = map[string]int{
	PriorityNormal: 0,
	PriorityHigh:   1,
}

// Progress counts candidate folders processed so far in a running scan.
type Progress struct {
	Scanned int `json:"scanned"`
	Total   int `json:"total"`
}

// Result summarizes a completed scan.
type Result struct {
	Added        int `json:"added"`
	Removed      int `json:"removed"`
	FailedScrape int `json:"failed_scrape"`
}

// Task is one queued or historical scan. Tasks live only in memory; a
// process restart discards them.
type Task struct {
	ID          string     `json:"id"`
	LibraryID   int        `json:"library_id"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Progress    *Progress  `json:"progress,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// IsTerminal reports whether the task has finished for good.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// clone returns a copy safe to hand to callers outside the queue's lock.
func (t *Task) clone() *Task {
	c := *t
	if t.StartedAt != nil {
		startedAt := *t.StartedAt
		c.StartedAt = &startedAt
	}
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		c.CompletedAt = &completedAt
	}
	if t.Progress != nil {
		progress := *t.Progress
		c.Progress = &progress
	}
	if t.Result != nil {
		result := *t.Result
		c.Result = &result
	}
	return &c
}
