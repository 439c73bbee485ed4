package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ScanPath is a root directory configured on a library. Its immediate
// subdirectories are the candidates for becoming Contents. (library_id, path)
// is unique.
type ScanPath struct {
	bun.BaseModel `bun:"table:scan_paths,alias:sp"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`
	Path      string    `bun:",nullzero" json:"path"`
}
