package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/repository"
	"github.com/warble-app/warble/pkg/config"
	"github.com/warble-app/warble/pkg/crypto"
	jwtpkg "github.com/warble-app/warble/pkg/jwt"
)

// Signup and login failures surfaced to clients verbatim. Login reports the
// same error for a missing user and a wrong password so usernames cannot be
// enumerated.
var (
	ErrInvalidEmail       = errors.New("Invalid email format")
	ErrUsernameTaken      = errors.New("Username is already taken")
	ErrEmailInUse         = errors.New("Email is already in use")
	ErrPasswordTooShort   = errors.New("Password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrMissingFields      = errors.New("Username and password are required")
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// dummyHash is compared against when login targets a nonexistent user, so
// both failure paths cost one bcrypt comparison.
var dummyHash, _ = crypto.HashPassword("warble-placeholder-credential", 0)

// Service handles signup, login and token-to-user resolution.
type Service struct {
	users  repository.UserRepository
	tokens *jwtpkg.TokenService
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, tokens *jwtpkg.TokenService, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, tokens: tokens, logger: logger, cfg: cfg}
}

// SignupInput carries the signup request fields.
type SignupInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// Signup validates and registers a new account, returning the created user
// and a session token. The username/email pre-checks give field-specific
// errors; the insert itself relies on the database unique indexes, so a race
// between two identical signups still leaves exactly one winner.
func (s Service) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || in.Password == "" {
		return nil, "", ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return nil, "", ErrInvalidEmail
	}
	if err := s.checkAvailable(ctx, username, email); err != nil {
		return nil, "", err
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", ErrPasswordTooShort
	}

	hash, err := crypto.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, "", err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Followers:    []string{},
		Following:    []string{},
		LikedPosts:   []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", mapDuplicate(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		// The account row is already persisted at this point; the client
		// simply has to log in. Accepted inconsistency window.
		return nil, "", err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user.Sanitized(), token, nil
}

// Login authenticates by username and password and returns a session token.
func (s Service) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = crypto.ComparePassword(dummyHash, password)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user.Sanitized(), token, nil
}

// Authorize resolves a session token to its user. Token failures come back as
// the pkg/jwt sentinels; a vanished account comes back as
// repository.ErrNotFound.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// Me re-fetches the authenticated user so the response reflects the latest
// stored state rather than the middleware's snapshot.
func (s Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s Service) checkAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return ErrEmailInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func mapDuplicate(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailInUse
	case errors.Is(err, repository.ErrDuplicate):
		return ErrUsernameTaken
	default:
		return err
	}
}
