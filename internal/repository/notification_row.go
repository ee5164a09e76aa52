package repository

import (
	"time"

	"chattrix/internal/model"
)

// selectResolvedNotification reads notifications with sender and post
// resolved to their display fields. Placeholders are appended per driver.
const selectResolvedNotification = `
        SELECT
            n.id,
            n.recipient_id,
            n.sender_id,
            n.kind,
            n.content,
            n.post_id,
            n.is_read,
            n.created_at,
            u.username      AS sender_username,
            u.full_name     AS sender_full_name,
            u.profile_image AS sender_profile_image,
            p.image_url     AS post_image_url
        FROM notifications n
        LEFT JOIN users u ON u.id = n.sender_id
        LEFT JOIN posts p ON p.id = n.post_id
`

type notificationRow struct {
	ID                 string    `db:"id"`
	RecipientID        string    `db:"recipient_id"`
	SenderID           *string   `db:"sender_id"`
	Kind               string    `db:"kind"`
	Content            string    `db:"content"`
	PostID             *string   `db:"post_id"`
	IsRead             bool      `db:"is_read"`
	CreatedAt          time.Time `db:"created_at"`
	SenderUsername     *string   `db:"sender_username"`
	SenderFullName     *string   `db:"sender_full_name"`
	SenderProfileImage *string   `db:"sender_profile_image"`
	PostImageURL       *string   `db:"post_image_url"`
}

// scanTargets lists destinations in selectResolvedNotification column order.
func (r *notificationRow) scanTargets() []any {
	return []any{
		&r.ID,
		&r.RecipientID,
		&r.SenderID,
		&r.Kind,
		&r.Content,
		&r.PostID,
		&r.IsRead,
		&r.CreatedAt,
		&r.SenderUsername,
		&r.SenderFullName,
		&r.SenderProfileImage,
		&r.PostImageURL,
	}
}

func (r *notificationRow) toModel() *model.Notification {
	n := &model.Notification{
		ID:        r.ID,
		Recipient: r.RecipientID,
		Kind:      model.Kind(r.Kind),
		Content:   r.Content,
		Read:      r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.SenderID != nil {
		n.Sender = &model.Actor{
			ID:           *r.SenderID,
			Username:     deref(r.SenderUsername),
			FullName:     deref(r.SenderFullName),
			ProfileImage: deref(r.SenderProfileImage),
		}
	}
	if r.PostID != nil {
		n.RelatedPost = &model.PostRef{
			ID:       *r.PostID,
			ImageURL: deref(r.PostImageURL),
		}
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullable maps an empty optional reference to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
