package repository

import (
	"context"
	"errors"
	"time"

	"chattrix/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RelationshipRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewRelationshipRepository(db *pgxpool.Pool) *RelationshipRepository {
	return &RelationshipRepository{db: db, now: time.Now}
}

func (r *RelationshipRepository) ListForFollower(ctx context.Context, followerID string) ([]*model.Relationship, error) {
	defer observe(relationshipsTable, "select", time.Now())

	query := selectResolvedRelationship + `
        WHERE r.follower_id = $1
        ORDER BY r.updated_at DESC, r.following_id
    `
	rows, err := r.db.Query(ctx, query, followerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.Relationship, 0)
	for rows.Next() {
		var row relationshipRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, err
		}
		list = append(list, row.toModel())
	}
	return list, rows.Err()
}

// Get never reports not found: an absent row yields the default settings.
func (r *RelationshipRepository) Get(ctx context.Context, followerID, followingID string) (*model.Relationship, error) {
	defer observe(relationshipsTable, "select", time.Now())

	query := selectResolvedRelationship + ` WHERE r.follower_id = $1 AND r.following_id = $2`

	var row relationshipRow
	err := r.db.QueryRow(ctx, query, followerID, followingID).Scan(row.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DefaultRelationship(followerID, followingID), nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *RelationshipRepository) Upsert(ctx context.Context, followerID, followingID string, s model.RelationshipSettings) (*model.Relationship, error) {
	start := time.Now()

	now := r.now().UTC()
	query := `
        INSERT INTO user_relationships (
            follower_id, following_id, is_close_friend, is_favorite,
            mute_posts, mute_stories, mute_all, is_restricted, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
        ON CONFLICT (follower_id, following_id) DO UPDATE SET
            is_close_friend = EXCLUDED.is_close_friend,
            is_favorite     = EXCLUDED.is_favorite,
            mute_posts      = EXCLUDED.mute_posts,
            mute_stories    = EXCLUDED.mute_stories,
            mute_all        = EXCLUDED.mute_all,
            is_restricted   = EXCLUDED.is_restricted,
            updated_at      = EXCLUDED.updated_at
    `
	_, err := r.db.Exec(ctx, query,
		followerID,
		followingID,
		s.IsCloseFriend,
		s.IsFavorite,
		s.Mute.Posts,
		s.Mute.Stories,
		s.Mute.All,
		s.IsRestricted,
		now,
	)
	observe(relationshipsTable, "upsert", start)
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, followerID, followingID)
}
