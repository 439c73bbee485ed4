package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReadingProgress tracks a user's position within a chapter. (user_id,
// chapter_id) is unique; the row is upserted as the reader advances.
type ReadingProgress struct {
	bun.BaseModel `bun:"table:reading_progress,alias:rp"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	ChapterID int       `bun:",nullzero" json:"chapter_id"`
	// Position is a 0-based page index for comics or spine index for novels.
	Position   int     `json:"position"`
	Percentage float64 `json:"percentage"`

	Chapter *Chapter `bun:"rel:belongs-to,join:chapter_id=id" json:"chapter,omitempty"`
}
