package mq

import "time"

const (
	// RoutingKeyNotificationRequested is emitted by producers (posts,
	// comments, follows, messages) that want a user notified.
	RoutingKeyNotificationRequested = "notification.requested"
	QueueNotificationRequested      = "notification.requested.q"
)

// NotificationRequestedPayload notification.requested 事件的 payload
type NotificationRequestedPayload struct {
	EventID   string    `json:"event_id"` // 去重键
	Recipient string    `json:"recipient"`
	Sender    string    `json:"sender,omitempty"`
	Type      string    `json:"type"` // like / comment / follow / message / system
	Content   string    `json:"content,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
