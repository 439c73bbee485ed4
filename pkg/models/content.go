package models

import (
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	ContentTypeComic = "comic"
	ContentTypeNovel = "novel"
)

// Content is one reading unit derived from one candidate folder.
// (library_id, folder_path) is unique.
type Content struct {
	bun.BaseModel `bun:"table:contents,alias:c"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LibraryID    int       `bun:",nullzero" json:"library_id"`
	ScanPathID   int       `bun:",nullzero" json:"scan_path_id"`
	Type         string    `bun:",nullzero" json:"type"`
	Title        string    `bun:",nullzero" json:"title"`
	FolderPath   string    `bun:",nullzero" json:"folder_path"`
	ChapterCount int       `json:"chapter_count"`
	// Thumbnail is the resized JPEG cover; served from its own endpoint.
	Thumbnail []byte `json:"-"`
	// Metadata is the opaque scraped document, stored as-is.
	Metadata json.RawMessage `bun:",nullzero" json:"metadata,omitempty"`

	Chapters []*Chapter `bun:"rel:has-many,join:id=content_id" json:"chapters,omitempty"`
}

// HasThumbnail is a convenience for list responses that omit the blob.
func (c *Content) HasThumbnail() bool {
	return len(c.Thumbnail) > 0
}
