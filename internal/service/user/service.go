package user

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/repository"
	"github.com/warble-app/warble/internal/service/notification"
	"github.com/warble-app/warble/internal/storage"
	"github.com/warble-app/warble/pkg/config"
	"github.com/warble-app/warble/pkg/crypto"
)

var (
	ErrCannotFollowSelf = errors.New("You cannot follow yourself")
	ErrUserNotFound     = errors.New("User not found")
	ErrWrongPassword    = errors.New("Current password is incorrect")
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters")
	ErrPasswordPair     = errors.New("Please provide both current password and new password")
	ErrUsernameTaken    = errors.New("Username is already taken")
	ErrEmailInUse       = errors.New("Email is already in use")
)

const suggestedUserCount = 4

// Service covers profiles, the follow graph and profile updates.
type Service struct {
	users         repository.UserRepository
	notifications notification.Service
	blobs         storage.BlobStore
	logger        *slog.Logger
	cfg           config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, notifications notification.Service, blobs storage.BlobStore, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, notifications: notifications, blobs: blobs, logger: logger, cfg: cfg}
}

// GetProfile returns a user's public profile by username.
func (s Service) GetProfile(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user.Sanitized(), nil
}

// FollowUnfollow toggles the follow edge from actor to target. Following
// records a notification for the target; unfollowing is silent.
func (s Service) FollowUnfollow(ctx context.Context, actor *domain.User, targetID string) (followed bool, err error) {
	if targetID == actor.ID {
		return false, ErrCannotFollowSelf
	}
	if _, err := s.users.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	following, err := s.users.IsFollowing(ctx, actor.ID, targetID)
	if err != nil {
		return false, err
	}
	if following {
		if err := s.users.Unfollow(ctx, actor.ID, targetID); err != nil {
			return false, err
		}
		s.logger.Info("user unfollowed", "user_id", actor.ID, "target_id", targetID)
		return false, nil
	}

	if err := s.users.Follow(ctx, actor.ID, targetID); err != nil {
		// A concurrent duplicate follow means the edge already exists.
		if errors.Is(err, repository.ErrDuplicate) {
			return true, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	if err := s.notifications.Record(ctx, summary(actor), targetID, domain.NotificationFollow, ""); err != nil {
		s.logger.Warn("follow notification failed", "error", err, "target_id", targetID)
	}
	s.logger.Info("user followed", "user_id", actor.ID, "target_id", targetID)
	return true, nil
}

// Suggested returns a handful of random users the given user does not follow.
func (s Service) Suggested(ctx context.Context, userID string) ([]domain.User, error) {
	users, err := s.users.ListSuggestedUsers(ctx, userID, suggestedUserCount)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = nil
	}
	return users, nil
}

// UpdateInput carries optional profile mutations; empty fields keep the
// stored value. Image fields take base64 data URIs.
type UpdateInput struct {
	FullName        string
	Username        string
	Email           string
	Bio             string
	Link            string
	CurrentPassword string
	NewPassword     string
	ProfileImg      string
	CoverImg        string
}

// UpdateProfile mutates the user's profile, optionally rotating the password
// and replacing stored profile or cover images.
func (s Service) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if (in.CurrentPassword == "") != (in.NewPassword == "") {
		return nil, ErrPasswordPair
	}
	if in.NewPassword != "" {
		if err := crypto.ComparePassword(user.PasswordHash, in.CurrentPassword); err != nil {
			return nil, ErrWrongPassword
		}
		if len(in.NewPassword) < 6 {
			return nil, ErrPasswordTooShort
		}
		hash, err := crypto.HashPassword(in.NewPassword, s.cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if v := strings.TrimSpace(in.FullName); v != "" {
		user.FullName = v
	}
	if v := strings.TrimSpace(in.Username); v != "" {
		user.Username = v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		user.Email = v
	}
	if in.Bio != "" {
		user.Bio = in.Bio
	}
	if in.Link != "" {
		user.Link = in.Link
	}

	if in.ProfileImg != "" {
		url, key, err := s.replaceImage(ctx, user.ProfileImgKey, in.ProfileImg)
		if err != nil {
			return nil, err
		}
		user.ProfileImg, user.ProfileImgKey = url, key
	}
	if in.CoverImg != "" {
		url, key, err := s.replaceImage(ctx, user.CoverImgKey, in.CoverImg)
		if err != nil {
			return nil, err
		}
		user.CoverImg, user.CoverImgKey = url, key
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailInUse
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.logger.Info("profile updated", "user_id", user.ID)
	return user.Sanitized(), nil
}

func (s Service) replaceImage(ctx context.Context, oldKey, dataURI string) (string, string, error) {
	data, contentType, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		return "", "", err
	}
	if oldKey != "" {
		if err := s.blobs.Destroy(ctx, oldKey); err != nil {
			s.logger.Warn("stale image cleanup failed", "key", oldKey, "error", err)
		}
	}
	return s.blobs.Upload(ctx, data, contentType)
}

func summary(u *domain.User) domain.UserSummary {
	return domain.UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		ProfileImg: u.ProfileImg,
	}
}
