package notification

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/events"
	"github.com/warble-app/warble/internal/repository"
	"github.com/warble-app/warble/internal/ws"
)

// Service records notifications and fans them out to live subscribers and
// the activity broker.
type Service struct {
	notifications repository.NotificationRepository
	hub           *ws.Hub
	publisher     events.Publisher
	logger        *slog.Logger
}

// New constructs a Service.
func New(notifications repository.NotificationRepository, hub *ws.Hub, publisher events.Publisher, logger *slog.Logger) Service {
	return Service{notifications: notifications, hub: hub, publisher: publisher, logger: logger}
}

// Record persists a notification and pushes it to the recipient's live
// streams and the broker. Fan-out failures are logged, never returned: the
// triggering request must not fail because a side channel is down.
func (s Service) Record(ctx context.Context, from domain.UserSummary, toUserID, kind, postID string) error {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		FromUser:  from.ID,
		ToUser:    toUserID,
		From:      from,
		Kind:      kind,
		PostID:    postID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return err
	}

	if s.hub != nil {
		payload, err := json.Marshal(map[string]any{
			"id":   n.ID,
			"type": n.Kind,
			"from": map[string]any{
				"_id":        from.ID,
				"username":   from.Username,
				"profileImg": from.ProfileImg,
			},
			"postId":    n.PostID,
			"createdAt": n.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err == nil {
			s.hub.Broadcast(toUserID, payload)
		}
	}

	if err := s.publisher.PublishActivity(ctx, events.Activity{
		Kind:       kind,
		FromUserID: from.ID,
		ToUserID:   toUserID,
		PostID:     postID,
		OccurredAt: n.CreatedAt,
	}); err != nil {
		s.logger.Warn("activity publish failed", "kind", kind, "error", err)
	}
	return nil
}

// List returns the user's notifications newest first and marks them read,
// mirroring the read-clears-badge behavior clients expect.
func (s Service) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	notifications, err := s.notifications.ListNotificationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.notifications.MarkNotificationsRead(ctx, userID); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Clear deletes all of the user's notifications.
func (s Service) Clear(ctx context.Context, userID string) error {
	return s.notifications.DeleteNotificationsByUser(ctx, userID)
}
