package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema creates the notification tables. users and posts belong to
// the profile and post services; they are created here only if missing so
// that joins resolve in a fresh database.
const postgresSchema = `
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
    is_read      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created
    ON notifications (recipient_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications (recipient_id) WHERE is_read = FALSE;

CREATE TABLE IF NOT EXISTS user_relationships (
    follower_id     TEXT NOT NULL,
    following_id    TEXT NOT NULL,
    is_close_friend BOOLEAN NOT NULL DEFAULT FALSE,
    is_favorite     BOOLEAN NOT NULL DEFAULT FALSE,
    mute_posts      BOOLEAN NOT NULL DEFAULT FALSE,
    mute_stories    BOOLEAN NOT NULL DEFAULT FALSE,
    mute_all        BOOLEAN NOT NULL DEFAULT FALSE,
    is_restricted   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (follower_id, following_id)
);
`

// Migrate applies the PostgreSQL schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
