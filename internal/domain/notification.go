package domain

import "time"

// Notification kinds.
const (
	NotificationFollow = "follow"
	NotificationLike   = "like"
)

// Notification records that another user followed or liked.
type Notification struct {
	ID        string
	FromUser  string
	ToUser    string
	From      UserSummary
	Kind      string
	PostID    string
	Read      bool
	CreatedAt time.Time
}
