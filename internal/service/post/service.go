package post

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/repository"
	"github.com/warble-app/warble/internal/service/notification"
	"github.com/warble-app/warble/internal/storage"
)

var (
	ErrEmptyPost       = errors.New("Post must have text or image")
	ErrCommentRequired = errors.New("Text field is required")
	ErrPostNotFound    = errors.New("Post not found")
	ErrUserNotFound    = errors.New("User not found")
	ErrNotPostOwner    = errors.New("You are not authorized to delete this post")
)

// Service covers posts, likes, comments and the feeds.
type Service struct {
	posts         repository.PostRepository
	users         repository.UserRepository
	notifications notification.Service
	blobs         storage.BlobStore
	logger        *slog.Logger
}

// New constructs a Service.
func New(posts repository.PostRepository, users repository.UserRepository, notifications notification.Service, blobs storage.BlobStore, logger *slog.Logger) Service {
	return Service{posts: posts, users: users, notifications: notifications, blobs: blobs, logger: logger}
}

// Create stores a new post, uploading the attached image, if any, to the
// blob store first.
func (s Service) Create(ctx context.Context, author *domain.User, text, img string) (*domain.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" && img == "" {
		return nil, ErrEmptyPost
	}

	p := &domain.Post{
		ID:        uuid.NewString(),
		UserID:    author.ID,
		Author:    summary(author),
		Text:      text,
		Likes:     []string{},
		Comments:  []domain.Comment{},
		CreatedAt: time.Now().UTC(),
	}
	if img != "" {
		data, contentType, err := storage.DecodeDataURI(img)
		if err != nil {
			return nil, err
		}
		url, key, err := s.blobs.Upload(ctx, data, contentType)
		if err != nil {
			return nil, err
		}
		p.ImageURL, p.ImageKey = url, key
	}

	if err := s.posts.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("post created", "post_id", p.ID, "user_id", author.ID)
	return p, nil
}

// Delete removes the caller's own post and its stored image.
func (s Service) Delete(ctx context.Context, userID, postID string) error {
	p, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	if p.UserID != userID {
		return ErrNotPostOwner
	}
	if p.ImageKey != "" {
		if err := s.blobs.Destroy(ctx, p.ImageKey); err != nil {
			s.logger.Warn("post image cleanup failed", "key", p.ImageKey, "error", err)
		}
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	s.logger.Info("post deleted", "post_id", postID, "user_id", userID)
	return nil
}

// LikeUnlike toggles the caller's like on a post. Liking notifies the post's
// author.
func (s Service) LikeUnlike(ctx context.Context, actor *domain.User, postID string) (liked bool, err error) {
	p, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrPostNotFound
		}
		return false, err
	}

	hasLiked, err := s.posts.HasLiked(ctx, postID, actor.ID)
	if err != nil {
		return false, err
	}
	if hasLiked {
		if err := s.posts.UnlikePost(ctx, postID, actor.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.posts.LikePost(ctx, postID, actor.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return true, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrPostNotFound
		}
		return false, err
	}
	if p.UserID != actor.ID {
		if err := s.notifications.Record(ctx, summary(actor), p.UserID, domain.NotificationLike, postID); err != nil {
			s.logger.Warn("like notification failed", "error", err, "post_id", postID)
		}
	}
	return true, nil
}

// Comment appends a comment and returns the post with comments attached.
func (s Service) Comment(ctx context.Context, author *domain.User, postID, text string) (*domain.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrCommentRequired
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	c := &domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    author.ID,
		Author:    summary(author),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.AddComment(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return s.posts.GetPostByID(ctx, postID)
}

// All returns every post, newest first.
func (s Service) All(ctx context.Context) ([]domain.Post, error) {
	return s.posts.ListPosts(ctx)
}

// Following returns the caller's home feed.
func (s Service) Following(ctx context.Context, userID string) ([]domain.Post, error) {
	return s.posts.ListFollowingPosts(ctx, userID)
}

// ByUsername returns one author's posts.
func (s Service) ByUsername(ctx context.Context, username string) ([]domain.Post, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.posts.ListPostsByUser(ctx, user.ID)
}

// LikedBy returns the posts a user has liked.
func (s Service) LikedBy(ctx context.Context, userID string) ([]domain.Post, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.posts.ListLikedPosts(ctx, userID)
}

func summary(u *domain.User) domain.UserSummary {
	return domain.UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		ProfileImg: u.ProfileImg,
	}
}
