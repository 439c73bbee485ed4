package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		statements := []string{
			`
			CREATE TABLE libraries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				scan_interval_minutes INTEGER NOT NULL DEFAULT 0,
				watch_mode BOOLEAN NOT NULL DEFAULT FALSE
			)
			`,
			`
			CREATE TABLE scan_paths (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
				path TEXT NOT NULL
			)
			`,
			`CREATE UNIQUE INDEX ux_scan_paths_library_path ON scan_paths(library_id, path)`,
			`
			CREATE TABLE contents (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
				scan_path_id INTEGER NOT NULL REFERENCES scan_paths(id) ON DELETE CASCADE,
				type TEXT NOT NULL,
				title TEXT NOT NULL,
				folder_path TEXT NOT NULL,
				chapter_count INTEGER NOT NULL DEFAULT 0,
				thumbnail BLOB,
				metadata TEXT
			)
			`,
			`CREATE UNIQUE INDEX ux_contents_library_folder ON contents(library_id, folder_path)`,
			`CREATE INDEX ix_contents_scan_path_id ON contents(scan_path_id)`,
			`
			CREATE TABLE chapters (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				content_id INTEGER NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				file_path TEXT NOT NULL,
				sort_order INTEGER NOT NULL,
				page_count INTEGER,
				filesize_bytes INTEGER NOT NULL DEFAULT 0
			)
			`,
			`CREATE UNIQUE INDEX ux_chapters_content_file ON chapters(content_id, file_path)`,
			`CREATE INDEX ix_chapters_content_id ON chapters(content_id)`,
			`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE
			)
			`,
			`
			CREATE TABLE reading_progress (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				chapter_id INTEGER NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
				position INTEGER NOT NULL DEFAULT 0,
				percentage REAL NOT NULL DEFAULT 0
			)
			`,
			`CREATE UNIQUE INDEX ux_reading_progress_user_chapter ON reading_progress(user_id, chapter_id)`,
		}

		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		tables := []string{"reading_progress", "users", "chapters", "contents", "scan_paths", "libraries"}
		for _, table := range tables {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
