package postgres

import (
	"context"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/repository"
)

// CreateNotification inserts a notification.
func (r *Repository) CreateNotification(ctx context.Context, notification *domain.Notification) error {
	const query = `INSERT INTO notifications (id, from_user, to_user, kind, post_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		notification.ID, notification.FromUser, notification.ToUser,
		notification.Kind, notification.PostID, notification.Read, notification.CreatedAt)
	if err != nil && isPgCode(err, "23503") {
		return repository.ErrNotFound
	}
	return err
}

// ListNotificationsByUser returns a user's notifications, newest first, with
// sender summaries attached.
func (r *Repository) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	const query = `SELECT n.id, n.from_user, n.to_user, n.kind, n.post_id, n.read, n.created_at,
			u.username, u.full_name, u.profile_img
		FROM notifications n
		INNER JOIN users u ON u.id = n.from_user
		WHERE n.to_user = $1
		ORDER BY n.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.FromUser, &n.ToUser, &n.Kind, &n.PostID, &n.Read, &n.CreatedAt,
			&n.From.Username, &n.From.FullName, &n.From.ProfileImg); err != nil {
			return nil, err
		}
		n.From.ID = n.FromUser
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationsRead flags all of a user's notifications as read.
func (r *Repository) MarkNotificationsRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE to_user = $1 AND read = FALSE`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// DeleteNotificationsByUser removes all of a user's notifications.
func (r *Repository) DeleteNotificationsByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM notifications WHERE to_user = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
