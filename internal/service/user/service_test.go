package user

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
	"github.com/warble-app/warble/pkg/config"
	"github.com/warble-app/warble/pkg/crypto"
)

type edge struct{ follower, followee string }

type stubUserRepository struct {
	users map[string]*domain.User
	edges map[edge]bool
}

func newStubUserRepository(users ...*domain.User) *stubUserRepository {
	repo := &stubUserRepository{
		users: make(map[string]*domain.User),
		edges: make(map[edge]bool),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *stubUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := s.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *stubUserRepository) ListSuggestedUsers(ctx context.Context, userID string, limit int) ([]domain.User, error) {
	var out []domain.User
	for _, user := range s.users {
		if user.ID == userID || s.edges[edge{userID, user.ID}] {
			continue
		}
		out = append(out, *user)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubUserRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	key := edge{followerID, followeeID}
	if s.edges[key] {
		return repository.ErrDuplicate
	}
	s.edges[key] = true
	return nil
}

func (s *stubUserRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	delete(s.edges, edge{followerID, followeeID})
	return nil
}

func (s *stubUserRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.edges[edge{followerID, followeeID}], nil
}

type stubNotificationRepository struct {
	created []*domain.Notification
}

func (s *stubNotificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.created = append(s.created, n)
	return nil
}

func (s *stubNotificationRepository) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range s.created {
		if n.ToUser == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *stubNotificationRepository) MarkNotificationsRead(ctx context.Context, userID string) error {
	for _, n := range s.created {
		if n.ToUser == userID {
			n.Read = true
		}
	}
	return nil
}

func (s *stubNotificationRepository) DeleteNotificationsByUser(ctx context.Context, userID string) error {
	kept := s.created[:0]
	for _, n := range s.created {
		if n.ToUser != userID {
			kept = append(kept, n)
		}
	}
	s.created = kept
	return nil
}

func newTestService(users *stubUserRepository, notifs *stubNotificationRepository) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifSvc := notification.New(notifs, nil, events.NoopPublisher{}, log)
	return New(users, notifSvc, storage.Disabled{}, log, config.APIConfig{BcryptCost: 4})
}

func testUser(id, username string) *domain.User {
	hash, _ := crypto.HashPassword("password123", 4)
	return &domain.User{ID: id, Username: username, Email: username + "@example.com", PasswordHash: hash}
}

func TestFollowUnfollowToggles(t *testing.T) {
	actor := testUser("u1", "alice")
	target := testUser("u2", "bob")
	users := newStubUserRepository(actor, target)
	notifs := &stubNotificationRepository{}
	svc := newTestService(users, notifs)

	followed, err := svc.FollowUnfollow(context.Background(), actor, target.ID)
	if err != nil {
		t.Fatalf("follow returned error: %v", err)
	}
	if !followed {
		t.Fatal("first toggle should follow")
	}
	if !users.edges[edge{"u1", "u2"}] {
		t.Fatal("follow edge not stored")
	}
	if len(notifs.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifs.created))
	}
	if n := notifs.created[0]; n.Kind != domain.NotificationFollow || n.ToUser != "u2" || n.FromUser != "u1" {
		t.Fatalf("unexpected notification: %+v", n)
	}

	followed, err = svc.FollowUnfollow(context.Background(), actor, target.ID)
	if err != nil {
		t.Fatalf("unfollow returned error: %v", err)
	}
	if followed {
		t.Fatal("second toggle should unfollow")
	}
	if users.edges[edge{"u1", "u2"}] {
		t.Fatal("follow edge not removed")
	}
	if len(notifs.created) != 1 {
		t.Fatal("unfollow must not record a notification")
	}
}

func TestFollowSelfRejected(t *testing.T) {
	actor := testUser("u1", "alice")
	svc := newTestService(newStubUserRepository(actor), &stubNotificationRepository{})

	if _, err := svc.FollowUnfollow(context.Background(), actor, actor.ID); !errors.Is(err, ErrCannotFollowSelf) {
		t.Fatalf("expected ErrCannotFollowSelf, got %v", err)
	}
}

func TestFollowUnknownTarget(t *testing.T) {
	actor := testUser("u1", "alice")
	svc := newTestService(newStubUserRepository(actor), &stubNotificationRepository{})

	if _, err := svc.FollowUnfollow(context.Background(), actor, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSuggestedExcludesSelfAndStripsHashes(t *testing.T) {
	actor := testUser("u1", "alice")
	users := newStubUserRepository(actor, testUser("u2", "bob"), testUser("u3", "carol"))
	svc := newTestService(users, &stubNotificationRepository{})

	suggested, err := svc.Suggested(context.Background(), actor.ID)
	if err != nil {
		t.Fatalf("Suggested returned error: %v", err)
	}
	if len(suggested) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggested))
	}
	for _, u := range suggested {
		if u.ID == actor.ID {
			t.Fatal("suggestions include the requesting user")
		}
		if u.PasswordHash != nil {
			t.Fatalf("suggestion %q carries a password hash", u.Username)
		}
	}
}

func TestUpdateProfilePasswordRotation(t *testing.T) {
	subject := testUser("u1", "alice")
	users := newStubUserRepository(subject)
	svc := newTestService(users, &stubNotificationRepository{})

	if _, err := svc.UpdateProfile(context.Background(), "u1", UpdateInput{NewPassword: "newpassword"}); !errors.Is(err, ErrPasswordPair) {
		t.Fatalf("expected ErrPasswordPair, got %v", err)
	}
	if _, err := svc.UpdateProfile(context.Background(), "u1", UpdateInput{CurrentPassword: "wrong", NewPassword: "newpassword"}); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if _, err := svc.UpdateProfile(context.Background(), "u1", UpdateInput{CurrentPassword: "password123", NewPassword: "abc"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	updated, err := svc.UpdateProfile(context.Background(), "u1", UpdateInput{CurrentPassword: "password123", NewPassword: "newpassword"})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.PasswordHash != nil {
		t.Fatal("returned user carries a password hash")
	}
	stored := users.users["u1"]
	if err := crypto.ComparePassword(stored.PasswordHash, "newpassword"); err != nil {
		t.Fatalf("rotated password does not verify: %v", err)
	}
	if err := crypto.ComparePassword(stored.PasswordHash, "password123"); err == nil {
		t.Fatal("old password still verifies after rotation")
	}
}

func TestUpdateProfileKeepsUnsetFields(t *testing.T) {
	subject := testUser("u1", "alice")
	subject.FullName = "Alice A"
	subject.Bio = "hello"
	users := newStubUserRepository(subject)
	svc := newTestService(users, &stubNotificationRepository{})

	updated, err := svc.UpdateProfile(context.Background(), "u1", UpdateInput{Bio: "new bio"})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.Bio != "new bio" {
		t.Fatalf("bio not updated: %q", updated.Bio)
	}
	if updated.FullName != "Alice A" || updated.Username != "alice" {
		t.Fatalf("unset fields changed: %+v", updated)
	}
}

func TestUpdateProfileImageWithoutStorage(t *testing.T) {
	subject := testUser("u1", "alice")
	svc := newTestService(newStubUserRepository(subject), &stubNotificationRepository{})

	_, err := svc.UpdateProfile(context.Background(), "u1", UpdateInput{ProfileImg: "data:image/png;base64,aGVsbG8="})
	if !errors.Is(err, storage.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
