package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository         = (*Repository)(nil)
	_ repository.PostRepository         = (*Repository)(nil)
	_ repository.NotificationRepository = (*Repository)(nil)
)

const userColumns = `id, username, email, password_hash, full_name, bio, link,
		profile_img, profile_img_key, cover_img, cover_img_key, created_at, updated_at`

// CreateUser inserts a user. Unique-index violations on username or email are
// reported as the matching repository duplicate error, which is how a race
// between two concurrent signups is resolved.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, username, email, password_hash, full_name, bio, link,
			profile_img, profile_img_key, cover_img, cover_img_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FullName,
		user.Bio, user.Link, user.ProfileImg, user.ProfileImgKey,
		user.CoverImg, user.CoverImgKey, user.CreatedAt,
	)
	return mapUserWriteError(err)
}

// GetUserByID retrieves a user by identifier, with follow and like edges.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// UpdateUser mutates profile fields and the password hash.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	const query = `UPDATE users
		SET username = $2,
			email = $3,
			password_hash = $4,
			full_name = $5,
			bio = $6,
			link = $7,
			profile_img = $8,
			profile_img_key = $9,
			cover_img = $10,
			cover_img_key = $11,
			updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	row := r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FullName,
		user.Bio, user.Link, user.ProfileImg, user.ProfileImgKey,
		user.CoverImg, user.CoverImgKey,
	)
	if err := row.Scan(&user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return mapUserWriteError(err)
	}
	return nil
}

// ListSuggestedUsers returns random users the given user does not follow yet.
func (r *Repository) ListSuggestedUsers(ctx context.Context, userID string, limit int) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users u
		WHERE u.id <> $1
			AND NOT EXISTS (
				SELECT 1 FROM follows f
				WHERE f.follower_id = $1 AND f.followee_id = u.id
			)
		ORDER BY random()
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Follow records a follow edge. A repeated follow is a conflict, a
// self-follow trips the table check constraint; both surface as duplicates.
func (r *Repository) Follow(ctx context.Context, followerID, followeeID string) error {
	const query = `INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES ($1, $2, NOW())`
	_, err := r.pool.Exec(ctx, query, followerID, followeeID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505", "23514":
				return repository.ErrDuplicate
			case "23503":
				return repository.ErrNotFound
			}
		}
		return err
	}
	return nil
}

// Unfollow removes a follow edge.
func (r *Repository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	const query = `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	_, err := r.pool.Exec(ctx, query, followerID, followeeID)
	return err
}

// IsFollowing reports whether follower already follows followee.
func (r *Repository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2
	)`
	var following bool
	if err := r.pool.QueryRow(ctx, query, followerID, followeeID).Scan(&following); err != nil {
		return false, err
	}
	return following, nil
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	var u domain.User
	if err := scanUser(row, &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadEdges(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) loadEdges(ctx context.Context, user *domain.User) error {
	followers, err := r.listIDs(ctx,
		`SELECT follower_id FROM follows WHERE followee_id = $1 ORDER BY created_at`, user.ID)
	if err != nil {
		return err
	}
	following, err := r.listIDs(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY created_at`, user.ID)
	if err != nil {
		return err
	}
	liked, err := r.listIDs(ctx,
		`SELECT post_id FROM post_likes WHERE user_id = $1 ORDER BY created_at`, user.ID)
	if err != nil {
		return err
	}
	user.Followers = followers
	user.Following = following
	user.LikedPosts = liked
	return nil
}

func (r *Repository) listIDs(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row pgx.Row, u *domain.User) error {
	return row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Bio, &u.Link, &u.ProfileImg, &u.ProfileImgKey,
		&u.CoverImg, &u.CoverImgKey, &u.CreatedAt, &u.UpdatedAt,
	)
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func mapUserWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return repository.ErrDuplicateUsername
		case "users_email_key":
			return repository.ErrDuplicateEmail
		default:
			return repository.ErrDuplicate
		}
	}
	return err
}
