package model

// Actor is the minimal display projection of a user.
type Actor struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"fullName"`
	ProfileImage string `json:"profileImage"`
}

// PostRef is the minimal display projection of a post.
type PostRef struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
}
