package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chattrix/internal/model"

	"github.com/jmoiron/sqlx"
)

type SQLiteRelationshipRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLiteRelationshipRepository(db *sqlx.DB) *SQLiteRelationshipRepository {
	return &SQLiteRelationshipRepository{db: db, now: time.Now}
}

func (r *SQLiteRelationshipRepository) ListForFollower(ctx context.Context, followerID string) ([]*model.Relationship, error) {
	var rows []relationshipRow
	err := r.db.SelectContext(ctx, &rows, selectResolvedRelationship+`
		WHERE r.follower_id = ?
		ORDER BY r.updated_at DESC, r.following_id`, followerID)
	if err != nil {
		return nil, err
	}

	list := make([]*model.Relationship, 0, len(rows))
	for i := range rows {
		list = append(list, rows[i].toModel())
	}
	return list, nil
}

func (r *SQLiteRelationshipRepository) Get(ctx context.Context, followerID, followingID string) (*model.Relationship, error) {
	var row relationshipRow
	err := r.db.GetContext(ctx, &row,
		selectResolvedRelationship+` WHERE r.follower_id = ? AND r.following_id = ?`,
		followerID, followingID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultRelationship(followerID, followingID), nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SQLiteRelationshipRepository) Upsert(ctx context.Context, followerID, followingID string, s model.RelationshipSettings) (*model.Relationship, error) {
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_relationships (
			follower_id, following_id, is_close_friend, is_favorite,
			mute_posts, mute_stories, mute_all, is_restricted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (follower_id, following_id) DO UPDATE SET
			is_close_friend = excluded.is_close_friend,
			is_favorite     = excluded.is_favorite,
			mute_posts      = excluded.mute_posts,
			mute_stories    = excluded.mute_stories,
			mute_all        = excluded.mute_all,
			is_restricted   = excluded.is_restricted,
			updated_at      = excluded.updated_at`,
		followerID, followingID,
		s.IsCloseFriend, s.IsFavorite,
		s.Mute.Posts, s.Mute.Stories, s.Mute.All,
		s.IsRestricted,
		now, now,
	)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, followerID, followingID)
}
