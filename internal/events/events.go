package events

import (
	"context"
	"time"
)

// Activity is an event emitted when one user acts on another. Downstream
// consumers (counters, digest mailers) read these off the broker; the API
// never depends on them being delivered.
type Activity struct {
	Kind       string    `json:"kind"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	PostID     string    `json:"post_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits activity events.
type Publisher interface {
	PublishActivity(ctx context.Context, activity Activity) error
	Close() error
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishActivity(ctx context.Context, activity Activity) error { return nil }
func (NoopPublisher) Close() error                                                 { return nil }
