package domain

import "time"

// User represents a platform account. PasswordHash never leaves the process:
// the HTTP layer serializes users through payload builders that omit it.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  []byte
	FullName      string
	Bio           string
	Link          string
	ProfileImg    string
	ProfileImgKey string
	CoverImg      string
	CoverImgKey   string
	Followers     []string
	Following     []string
	LikedPosts    []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sanitized returns a copy safe to hand past the service boundary.
func (u User) Sanitized() *User {
	u.PasswordHash = nil
	return &u
}

// UserSummary is the author shape embedded in posts and comments.
type UserSummary struct {
	ID         string
	Username   string
	FullName   string
	ProfileImg string
}
