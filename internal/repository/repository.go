package repository

import (
	"context"

	"github.com/warble-app/warble/internal/domain"
)

// UserRepository persists accounts and the follow graph. CreateUser and
// UpdateUser report unique-index conflicts as ErrDuplicateUsername or
// ErrDuplicateEmail; uniqueness is enforced by the database, never by
// read-then-write checks here.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListSuggestedUsers(ctx context.Context, userID string, limit int) ([]domain.User, error)
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

// PostRepository persists posts, likes and comments.
type PostRepository interface {
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context) ([]domain.Post, error)
	ListPostsByUser(ctx context.Context, userID string) ([]domain.Post, error)
	ListFollowingPosts(ctx context.Context, userID string) ([]domain.Post, error)
	ListLikedPosts(ctx context.Context, userID string) ([]domain.Post, error)
	LikePost(ctx context.Context, postID, userID string) error
	UnlikePost(ctx context.Context, postID, userID string) error
	HasLiked(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, comment *domain.Comment) error
}

// NotificationRepository persists follow/like notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *domain.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string) error
	DeleteNotificationsByUser(ctx context.Context, userID string) error
}
