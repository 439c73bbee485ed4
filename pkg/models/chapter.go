package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Chapter is one archive file inside a Content's folder. (content_id,
// file_path) is unique and sort_order is a dense 0..N-1 permutation matching
// natural order of the filenames.
type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:ch"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ContentID     int       `bun:",nullzero" json:"content_id"`
	Title         string    `bun:",nullzero" json:"title"`
	FilePath      string    `bun:",nullzero" json:"file_path"`
	SortOrder     int       `json:"sort_order"`
	PageCount     *int      `json:"page_count,omitempty"`
	FilesizeBytes int64     `json:"filesize_bytes"`
}
