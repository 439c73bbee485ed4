package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	// ScanIntervalMinutes of 0 disables periodic scans for the library.
	ScanIntervalMinutes int  `json:"scan_interval_minutes"`
	WatchMode           bool `json:"watch_mode"`

	ScanPaths []*ScanPath `bun:"rel:has-many,join:id=library_id" json:"scan_paths,omitempty"`
}
