package repository

import (
	"time"

	"chattrix/internal/model"
)

const selectResolvedRelationship = `
        SELECT
            r.follower_id,
            r.following_id,
            r.is_close_friend,
            r.is_favorite,
            r.mute_posts,
            r.mute_stories,
            r.mute_all,
            r.is_restricted,
            r.created_at,
            r.updated_at,
            u.username      AS following_username,
            u.full_name     AS following_full_name,
            u.profile_image AS following_profile_image
        FROM user_relationships r
        LEFT JOIN users u ON u.id = r.following_id
`

type relationshipRow struct {
	FollowerID            string    `db:"follower_id"`
	FollowingID           string    `db:"following_id"`
	IsCloseFriend         bool      `db:"is_close_friend"`
	IsFavorite            bool      `db:"is_favorite"`
	MutePosts             bool      `db:"mute_posts"`
	MuteStories           bool      `db:"mute_stories"`
	MuteAll               bool      `db:"mute_all"`
	IsRestricted          bool      `db:"is_restricted"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
	FollowingUsername     *string   `db:"following_username"`
	FollowingFullName     *string   `db:"following_full_name"`
	FollowingProfileImage *string   `db:"following_profile_image"`
}

func (r *relationshipRow) scanTargets() []any {
	return []any{
		&r.FollowerID,
		&r.FollowingID,
		&r.IsCloseFriend,
		&r.IsFavorite,
		&r.MutePosts,
		&r.MuteStories,
		&r.MuteAll,
		&r.IsRestricted,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.FollowingUsername,
		&r.FollowingFullName,
		&r.FollowingProfileImage,
	}
}

func (r *relationshipRow) toModel() *model.Relationship {
	return &model.Relationship{
		Follower: r.FollowerID,
		Following: &model.Actor{
			ID:           r.FollowingID,
			Username:     deref(r.FollowingUsername),
			FullName:     deref(r.FollowingFullName),
			ProfileImage: deref(r.FollowingProfileImage),
		},
		RelationshipSettings: model.RelationshipSettings{
			IsCloseFriend: r.IsCloseFriend,
			IsFavorite:    r.IsFavorite,
			Mute: model.MuteSettings{
				Posts:   r.MutePosts,
				Stories: r.MuteStories,
				All:     r.MuteAll,
			},
			IsRestricted: r.IsRestricted,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}
