package model

import (
	"strings"
	"time"
)

// Kind is the closed category of a notification.
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
	KindFollow  Kind = "follow"
	KindMessage Kind = "message"
	KindSystem  Kind = "system"
)

// Kinds lists every accepted Kind.
var Kinds = []Kind{KindLike, KindComment, KindFollow, KindMessage, KindSystem}

// Valid reports whether k is one of the accepted kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Notification is one event directed at one recipient. Sender and
// RelatedPost are resolved to display fields when read back from a store.
type Notification struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Sender      *Actor    `json:"sender,omitempty"`
	Kind        Kind      `json:"type"`
	Content     string    `json:"content,omitempty"`
	RelatedPost *PostRef  `json:"relatedPost,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewNotification carries the producer-supplied fields of a notification.
type NewNotification struct {
	Recipient   string `json:"recipient"`
	Sender      string `json:"sender,omitempty"`
	Kind        Kind   `json:"type"`
	Content     string `json:"content,omitempty"`
	RelatedPost string `json:"relatedPost,omitempty"`
}

// Validate checks the required fields and the kind.
func (n NewNotification) Validate() error {
	if strings.TrimSpace(n.Recipient) == "" {
		return &ValidationError{Field: "recipient", Reason: "is required"}
	}
	if n.Kind == "" {
		return &ValidationError{Field: "type", Reason: "is required"}
	}
	if !n.Kind.Valid() {
		return &ValidationError{Field: "type", Reason: "must be one of like, comment, follow, message, system"}
	}
	return nil
}
