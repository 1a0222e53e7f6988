package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ghostpic/internal/model"
)

type voteRepository struct {
	db *sqlx.DB
}

func NewVoteRepository(db *sqlx.DB) VoteRepository {
	return &voteRepository{db: db}
}

// GetState returns the actor's stored vote on a post.
func (r *voteRepository) GetState(ctx context.Context, postID, actorID string) (model.VoteState, error) {
	var kind string
	err := r.db.GetContext(ctx, &kind,
		`SELECT kind FROM post_votes WHERE post_id = $1 AND actor_id = $2`, postID, actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VoteNeutral, nil
	}
	if err != nil {
		return "", storeError("get vote", err)
	}
	return model.VoteState(kind), nil
}

// Apply runs one vote transition in a single transaction:
// lock post row, read vote, decide, upsert vote, bump counters, maybe deactivate.
func (r *voteRepository) Apply(ctx context.Context, postID, actorID string, action model.VoteAction, policy VotePolicy) (*model.VoteResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer tx.Rollback()

	// The row lock serializes concurrent votes on the same post.
	var active bool
	err = tx.GetContext(ctx, &active, `SELECT active FROM posts WHERE post_id = $1 FOR UPDATE`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, storeError("lock post", err)
	}

	current, err := r.currentState(ctx, tx, postID, actorID)
	if err != nil {
		return nil, err
	}

	outcome, err := policy.Decide(current, action)
	if err != nil {
		return nil, err
	}

	if err := r.upsertVote(ctx, tx, postID, actorID, outcome.Next); err != nil {
		return nil, err
	}

	result := &model.VoteResult{PostID: postID, Vote: outcome.Next}
	err = tx.QueryRowxContext(ctx, `
		UPDATE posts
		SET like_count = like_count + $2, dislike_count = dislike_count + $3
		WHERE post_id = $1
		RETURNING like_count, dislike_count, active
	`, postID, outcome.LikeDelta, outcome.DislikeDelta).Scan(&result.LikeCount, &result.DislikeCount, &result.Active)
	if err != nil {
		return nil, storeError("update counters", err)
	}

	if outcome.DislikeDelta > 0 && result.Active && policy.ShouldDeactivate(result.DislikeCount) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET active = FALSE, deactivated_at = NOW() WHERE post_id = $1`, postID); err != nil {
			return nil, storeError("deactivate post", err)
		}
		result.Active = false
		result.Deactivated = true
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("commit transaction", err)
	}
	return result, nil
}

func (r *voteRepository) currentState(ctx context.Context, tx *sqlx.Tx, postID, actorID string) (model.VoteState, error) {
	var kind string
	err := tx.GetContext(ctx, &kind,
		`SELECT kind FROM post_votes WHERE post_id = $1 AND actor_id = $2 FOR UPDATE`, postID, actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VoteNeutral, nil
	}
	if err != nil {
		return "", storeError("read vote", err)
	}
	return model.VoteState(kind), nil
}

func (r *voteRepository) upsertVote(ctx context.Context, tx *sqlx.Tx, postID, actorID string, kind model.VoteState) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO post_votes (post_id, actor_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT post_votes_post_actor_key
		DO UPDATE SET kind = EXCLUDED.kind, updated_at = NOW()
	`, postID, actorID, string(kind))
	if err != nil {
		return storeError("upsert vote", err)
	}
	return nil
}
