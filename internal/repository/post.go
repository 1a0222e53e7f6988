package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ghostpic/internal/model"
)

const postColumns = `id, post_id, caption, hashtags, author_id, author_state, image_ref,
	like_count, dislike_count, active, created_at, deactivated_at`

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a new post. The store assigns counters, active and created_at.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	query := `
		INSERT INTO posts (post_id, caption, hashtags, author_id, author_state, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, like_count, dislike_count, active, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		post.PostID,
		post.Caption,
		post.Hashtags,
		post.AuthorID,
		post.AuthorState,
		post.ImageRef,
	).Scan(&post.ID, &post.LikeCount, &post.DislikeCount, &post.Active, &post.CreatedAt)

	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintPostID {
			return model.ErrPostIDTaken
		}
		return storeError("insert post", err)
	}
	return nil
}

// GetByPostID returns a post regardless of its active flag.
func (r *postRepository) GetByPostID(ctx context.Context, postID string) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE post_id = $1`

	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, storeError("get post", err)
	}
	return &post, nil
}

// ListActive returns active posts newest first, optionally for one author
// and narrowed to hashtags with one of the given prefixes.
func (r *postRepository) ListActive(ctx context.Context, filter model.ListFilter) ([]model.Post, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = model.DefaultListLimit
	}

	tags := filter.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE active AND ($1::text = '' OR author_id = $1)
		AND (COALESCE(cardinality($3::text[]), 0) = 0 OR EXISTS (
			SELECT 1 FROM unnest(hashtags) AS h(tag), unnest($3::text[]) AS q(term)
			WHERE left(lower(h.tag), length(q.term)) = q.term
		))
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	posts := []model.Post{}
	if err := r.db.SelectContext(ctx, &posts, query, filter.Author, limit, pq.Array(tags)); err != nil {
		return nil, storeError("list active posts", err)
	}
	return posts, nil
}

// Deactivate flips active to false. It never flips it back.
func (r *postRepository) Deactivate(ctx context.Context, postID string) (*model.Post, bool, error) {
	query := `
		UPDATE posts SET active = FALSE, deactivated_at = NOW()
		WHERE post_id = $1 AND active
		RETURNING ` + postColumns

	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err == nil {
		return &post, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, storeError("deactivate post", err)
	}

	// Either missing or already inactive.
	existing, err := r.GetByPostID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
