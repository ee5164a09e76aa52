package model

import "time"

// MuteSettings controls which content of a followed user is muted.
type MuteSettings struct {
	Posts   bool `json:"posts"`
	Stories bool `json:"stories"`
	All     bool `json:"all"`
}

// RelationshipSettings are the follower-editable fields of a relationship.
type RelationshipSettings struct {
	IsCloseFriend bool         `json:"isCloseFriend"`
	IsFavorite    bool         `json:"isFavorite"`
	Mute          MuteSettings `json:"muteSettings"`
	IsRestricted  bool         `json:"isRestricted"`
}

// Relationship is the follower's view of one followed user.
type Relationship struct {
	Follower  string `json:"follower"`
	Following *Actor `json:"following"`
	RelationshipSettings
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// DefaultRelationship is returned when no settings were ever stored.
func DefaultRelationship(follower, following string) *Relationship {
	return &Relationship{
		Follower:  follower,
		Following: &Actor{ID: following},
	}
}
