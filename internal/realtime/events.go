package realtime

import "context"

// Event names carried to connected clients.
const (
	EventNotificationNew     = "notification:new"
	EventNotificationRead    = "notification:read"
	EventAllRead             = "notifications:allRead"
	EventNotificationDeleted = "notification:deleted"
)

// Dispatcher pushes an event to every live session of one user.
// Delivery is best effort: failures are logged, never returned.
type Dispatcher interface {
	Publish(ctx context.Context, userID, event string, payload any)
}

// ReadEvent is the payload of notification:read and notification:deleted.
type ReadEvent struct {
	NotificationID string `json:"notificationId"`
	UnreadCount    int    `json:"unreadCount"`
}

// AllReadEvent is the payload of notifications:allRead.
type AllReadEvent struct {
	UnreadCount int `json:"unreadCount"`
}

// Envelope is the frame written to a session.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NopDispatcher drops every event.
type NopDispatcher struct{}

func (NopDispatcher) Publish(context.Context, string, string, any) {}
