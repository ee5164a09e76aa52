package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type migration struct {
	version int
	sql     string
}

// sqliteMigrations mirrors postgresSchema for the local and test store.
var sqliteMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	full_name     TEXT NOT NULL DEFAULT '',
	profile_image TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS posts (
	id        TEXT PRIMARY KEY,
	image_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	sender_id    TEXT,
	kind         TEXT NOT NULL CHECK (kind IN ('like', 'comment', 'follow', 'message', 'system')),
	content      TEXT NOT NULL DEFAULT '',
	post_id      TEXT,
	is_read      BOOLEAN NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created
	ON notifications (recipient_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_notifications_unread
	ON notifications (recipient_id) WHERE is_read = 0;

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS user_relationships (
	follower_id     TEXT NOT NULL,
	following_id    TEXT NOT NULL,
	is_close_friend BOOLEAN NOT NULL DEFAULT 0,
	is_favorite     BOOLEAN NOT NULL DEFAULT 0,
	mute_posts      BOOLEAN NOT NULL DEFAULT 0,
	mute_stories    BOOLEAN NOT NULL DEFAULT 0,
	mute_all        BOOLEAN NOT NULL DEFAULT 0,
	is_restricted   BOOLEAN NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	PRIMARY KEY (follower_id, following_id)
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

// OpenSQLite opens (or creates) a SQLite database at path and applies
// pending migrations. ":memory:" gives a private database per call.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across queries
	// and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func migrateSQLite(db *sqlx.DB) error {
	currentVersion := 0

	var tableCount int
	err := db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		if err := db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range sqliteMigrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}
