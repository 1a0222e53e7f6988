package repository

import (
	"context"
	"time"

	"ghostpic/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByWallet(ctx context.Context, wallet string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByNullifier(ctx context.Context, nullifier string) (bool, error)
	// UpsertWallet creates or updates the wallet-only record used by the legacy save-user flow.
	UpsertWallet(ctx context.Context, wallet, userID, txHash string) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PostRepository interface {
	// Create inserts a post. Returns model.ErrPostIDTaken when post.PostID collides.
	Create(ctx context.Context, post *model.Post) error
	GetByPostID(ctx context.Context, postID string) (*model.Post, error)
	// ListActive returns active posts, newest first.
	ListActive(ctx context.Context, filter model.ListFilter) ([]model.Post, error)
	// Deactivate latches active=false. changed is false when the post was already inactive.
	Deactivate(ctx context.Context, postID string) (post *model.Post, changed bool, err error)
}

// VotePolicy decides vote transitions. The vote store consults it while
// holding the post locked so decision and mutation are one atomic step.
type VotePolicy interface {
	Decide(current model.VoteState, action model.VoteAction) (model.VoteOutcome, error)
	ShouldDeactivate(dislikeCount int) bool
}

type VoteRepository interface {
	// GetState returns the actor's current vote, VoteNeutral when none exists.
	GetState(ctx context.Context, postID, actorID string) (model.VoteState, error)
	// Apply runs one like/dislike transition atomically.
	Apply(ctx context.Context, postID, actorID string, action model.VoteAction, policy VotePolicy) (*model.VoteResult, error)
}
