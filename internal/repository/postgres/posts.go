package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/repository"
)

const postColumns = `p.id, p.user_id, p.body, p.image_url, p.image_key, p.created_at,
		u.username, u.full_name, u.profile_img`

const postSelect = `SELECT ` + postColumns + `
	FROM posts p
	INNER JOIN users u ON u.id = p.user_id`

// CreatePost inserts a post.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	const query = `INSERT INTO posts (id, user_id, body, image_url, image_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		post.ID, post.UserID, post.Text, post.ImageURL, post.ImageKey, post.CreatedAt)
	return err
}

// GetPostByID fetches a single post with author, likes and comments.
func (r *Repository) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id)
	var p domain.Post
	if err := scanPost(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	posts := []domain.Post{p}
	if err := r.attachPostDetails(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// DeletePost removes a post; likes and comments cascade.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListPosts returns every post, newest first.
func (r *Repository) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return r.listPosts(ctx, postSelect+` ORDER BY p.created_at DESC`)
}

// ListPostsByUser returns a single author's posts, newest first.
func (r *Repository) ListPostsByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	return r.listPosts(ctx, postSelect+` WHERE p.user_id = $1 ORDER BY p.created_at DESC`, userID)
}

// ListFollowingPosts returns posts authored by users the given user follows.
func (r *Repository) ListFollowingPosts(ctx context.Context, userID string) ([]domain.Post, error) {
	query := postSelect + `
		WHERE p.user_id IN (SELECT followee_id FROM follows WHERE follower_id = $1)
		ORDER BY p.created_at DESC`
	return r.listPosts(ctx, query, userID)
}

// ListLikedPosts returns posts the given user has liked.
func (r *Repository) ListLikedPosts(ctx context.Context, userID string) ([]domain.Post, error) {
	query := postSelect + `
		INNER JOIN post_likes pl ON pl.post_id = p.id AND pl.user_id = $1
		ORDER BY pl.created_at DESC`
	return r.listPosts(ctx, query, userID)
}

// LikePost records a like; liking twice is a conflict.
func (r *Repository) LikePost(ctx context.Context, postID, userID string) error {
	const query = `INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, NOW())`
	_, err := r.pool.Exec(ctx, query, postID, userID)
	if err != nil {
		if isPgCode(err, "23505") {
			return repository.ErrDuplicate
		}
		if isPgCode(err, "23503") {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// UnlikePost removes a like.
func (r *Repository) UnlikePost(ctx context.Context, postID, userID string) error {
	const query = `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, postID, userID)
	return err
}

// HasLiked reports whether the user already liked the post.
func (r *Repository) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2
	)`
	var liked bool
	if err := r.pool.QueryRow(ctx, query, postID, userID).Scan(&liked); err != nil {
		return false, err
	}
	return liked, nil
}

// AddComment appends a comment to a post.
func (r *Repository) AddComment(ctx context.Context, comment *domain.Comment) error {
	const query = `INSERT INTO comments (id, post_id, user_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query,
		comment.ID, comment.PostID, comment.UserID, comment.Text, comment.CreatedAt)
	if err != nil && isPgCode(err, "23503") {
		return repository.ErrNotFound
	}
	return err
}

func (r *Repository) listPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]domain.Post, 0)
	for rows.Next() {
		var p domain.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachPostDetails(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachPostDetails fills likes and comments for a batch of posts.
func (r *Repository) attachPostDetails(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	index := make(map[string]*domain.Post, len(posts))
	for i := range posts {
		posts[i].Likes = make([]string, 0)
		posts[i].Comments = make([]domain.Comment, 0)
		ids = append(ids, posts[i].ID)
		index[posts[i].ID] = &posts[i]
	}

	likeRows, err := r.pool.Query(ctx,
		`SELECT post_id, user_id FROM post_likes WHERE post_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return err
	}
	defer likeRows.Close()
	for likeRows.Next() {
		var postID, userID string
		if err := likeRows.Scan(&postID, &userID); err != nil {
			return err
		}
		if p, ok := index[postID]; ok {
			p.Likes = append(p.Likes, userID)
		}
	}
	if err := likeRows.Err(); err != nil {
		return err
	}

	commentRows, err := r.pool.Query(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.body, c.created_at, u.username, u.full_name, u.profile_img
		FROM comments c
		INNER JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ANY($1)
		ORDER BY c.created_at`, ids)
	if err != nil {
		return err
	}
	defer commentRows.Close()
	for commentRows.Next() {
		var c domain.Comment
		if err := commentRows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt,
			&c.Author.Username, &c.Author.FullName, &c.Author.ProfileImg); err != nil {
			return err
		}
		c.Author.ID = c.UserID
		if p, ok := index[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return commentRows.Err()
}

func scanPost(row pgx.Row, p *domain.Post) error {
	if err := row.Scan(&p.ID, &p.UserID, &p.Text, &p.ImageURL, &p.ImageKey, &p.CreatedAt,
		&p.Author.Username, &p.Author.FullName, &p.Author.ProfileImg); err != nil {
		return err
	}
	p.Author.ID = p.UserID
	return nil
}
