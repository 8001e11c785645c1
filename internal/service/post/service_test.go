package post

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/events"
	"github.com/warble-app/warble/internal/repository"
	"github.com/warble-app/warble/internal/service/notification"
	"github.com/warble-app/warble/internal/storage"
)

type likeKey struct{ postID, userID string }

type stubPostRepository struct {
	posts map[string]*domain.Post
	likes map[likeKey]bool
}

func newStubPostRepository() *stubPostRepository {
	return &stubPostRepository{
		posts: make(map[string]*domain.Post),
		likes: make(map[likeKey]bool),
	}
}

func (s *stubPostRepository) CreatePost(ctx context.Context, p *domain.Post) error {
	copied := *p
	s.posts[p.ID] = &copied
	return nil
}

func (s *stubPostRepository) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if p, ok := s.posts[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubPostRepository) DeletePost(ctx context.Context, id string) error {
	if _, ok := s.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *stubPostRepository) ListPosts(ctx context.Context) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range s.posts {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubPostRepository) ListPostsByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range s.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubPostRepository) ListFollowingPosts(ctx context.Context, userID string) ([]domain.Post, error) {
	return nil, nil
}

func (s *stubPostRepository) ListLikedPosts(ctx context.Context, userID string) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range s.posts {
		if s.likes[likeKey{p.ID, userID}] {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubPostRepository) LikePost(ctx context.Context, postID, userID string) error {
	key := likeKey{postID, userID}
	if s.likes[key] {
		return repository.ErrDuplicate
	}
	s.likes[key] = true
	return nil
}

func (s *stubPostRepository) UnlikePost(ctx context.Context, postID, userID string) error {
	delete(s.likes, likeKey{postID, userID})
	return nil
}

func (s *stubPostRepository) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	return s.likes[likeKey{postID, userID}], nil
}

func (s *stubPostRepository) AddComment(ctx context.Context, c *domain.Comment) error {
	p, ok := s.posts[c.PostID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Comments = append(p.Comments, *c)
	return nil
}

type stubUserRepository struct {
	users map[string]*domain.User
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *domain.User) error { return nil }

func (s *stubUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) UpdateUser(ctx context.Context, user *domain.User) error { return nil }

func (s *stubUserRepository) ListSuggestedUsers(ctx context.Context, userID string, limit int) ([]domain.User, error) {
	return nil, nil
}

func (s *stubUserRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	return nil
}

func (s *stubUserRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return nil
}

func (s *stubUserRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return false, nil
}

type stubNotificationRepository struct {
	created []*domain.Notification
}

func (s *stubNotificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.created = append(s.created, n)
	return nil
}

func (s *stubNotificationRepository) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return nil, nil
}

func (s *stubNotificationRepository) MarkNotificationsRead(ctx context.Context, userID string) error {
	return nil
}

func (s *stubNotificationRepository) DeleteNotificationsByUser(ctx context.Context, userID string) error {
	return nil
}

type fixture struct {
	svc    Service
	posts  *stubPostRepository
	notifs *stubNotificationRepository
}

func newFixture(users ...*domain.User) fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	posts := newStubPostRepository()
	notifs := &stubNotificationRepository{}
	userRepo := &stubUserRepository{users: make(map[string]*domain.User)}
	for _, u := range users {
		userRepo.users[u.ID] = u
	}
	notifSvc := notification.New(notifs, nil, events.NoopPublisher{}, log)
	return fixture{
		svc:    New(posts, userRepo, notifSvc, storage.Disabled{}, log),
		posts:  posts,
		notifs: notifs,
	}
}

func author(id, username string) *domain.User {
	return &domain.User{ID: id, Username: username}
}

func TestCreateRequiresTextOrImage(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Create(context.Background(), author("u1", "alice"), "   ", ""); !errors.Is(err, ErrEmptyPost) {
		t.Fatalf("expected ErrEmptyPost, got %v", err)
	}
}

func TestCreateTextOnlyPost(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), author("u1", "alice"), "hello world", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.Text != "hello world" || p.UserID != "u1" {
		t.Fatalf("unexpected post: %+v", p)
	}
	if _, ok := f.posts.posts[p.ID]; !ok {
		t.Fatal("post was not persisted")
	}
}

func TestCreateImagePostWithoutStorage(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), author("u1", "alice"), "", "data:image/png;base64,aGVsbG8=")
	if !errors.Is(err, storage.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDeleteRequiresOwnership(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), author("u1", "alice"), "mine", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := f.svc.Delete(context.Background(), "u2", p.ID); !errors.Is(err, ErrNotPostOwner) {
		t.Fatalf("expected ErrNotPostOwner, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), "u1", p.ID); err != nil {
		t.Fatalf("owner delete returned error: %v", err)
	}
	if err := f.svc.Delete(context.Background(), "u1", p.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound after delete, got %v", err)
	}
}

func TestLikeUnlikeToggleNotifiesAuthor(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), author("u1", "alice"), "likeable", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	liker := author("u2", "bob")

	liked, err := f.svc.LikeUnlike(context.Background(), liker, p.ID)
	if err != nil {
		t.Fatalf("like returned error: %v", err)
	}
	if !liked {
		t.Fatal("first toggle should like")
	}
	if len(f.notifs.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifs.created))
	}
	if n := f.notifs.created[0]; n.Kind != domain.NotificationLike || n.ToUser != "u1" || n.PostID != p.ID {
		t.Fatalf("unexpected notification: %+v", n)
	}

	liked, err = f.svc.LikeUnlike(context.Background(), liker, p.ID)
	if err != nil {
		t.Fatalf("unlike returned error: %v", err)
	}
	if liked {
		t.Fatal("second toggle should unlike")
	}
	if len(f.notifs.created) != 1 {
		t.Fatal("unlike must not record a notification")
	}
}

func TestLikeOwnPostSkipsNotification(t *testing.T) {
	f := newFixture()
	owner := author("u1", "alice")
	p, err := f.svc.Create(context.Background(), owner, "self like", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	liked, err := f.svc.LikeUnlike(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("like returned error: %v", err)
	}
	if !liked {
		t.Fatal("expected like")
	}
	if len(f.notifs.created) != 0 {
		t.Fatal("self-like must not record a notification")
	}
}

func TestLikeMissingPost(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.LikeUnlike(context.Background(), author("u1", "alice"), "no-such-post"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestCommentRequiresText(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), author("u1", "alice"), "post", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := f.svc.Comment(context.Background(), author("u2", "bob"), p.ID, "  "); !errors.Is(err, ErrCommentRequired) {
		t.Fatalf("expected ErrCommentRequired, got %v", err)
	}
}

func TestCommentAppendsAndReturnsPost(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), author("u1", "alice"), "post", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := f.svc.Comment(context.Background(), author("u2", "bob"), p.ID, "nice one")
	if err != nil {
		t.Fatalf("Comment returned error: %v", err)
	}
	if len(updated.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(updated.Comments))
	}
	if c := updated.Comments[0]; c.Text != "nice one" || c.UserID != "u2" {
		t.Fatalf("unexpected comment: %+v", c)
	}
}

func TestByUsernameUnknownUser(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.ByUsername(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
