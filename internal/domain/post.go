package domain

import "time"

// Post is a user-authored entry in the public feed.
type Post struct {
	ID        string
	UserID    string
	Author    UserSummary
	Text      string
	ImageURL  string
	ImageKey  string
	Likes     []string
	Comments  []Comment
	CreatedAt time.Time
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Author    UserSummary
	Text      string
	CreatedAt time.Time
}
