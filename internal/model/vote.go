package model

import (
	"errors"
	"time"
)

// VoteState is the per-(post, actor) interaction state.
// Neutral is never stored; it is the absence of a vote row.
type VoteState string

const (
	VoteNeutral  VoteState = "neutral"
	VoteLiked    VoteState = "liked"
	VoteDisliked VoteState = "disliked"
)

// VoteAction is what an actor asks for.
type VoteAction string

const (
	ActionLike    VoteAction = "like"
	ActionDislike VoteAction = "dislike"
)

// Vote is a persisted interaction record, unique per (post, actor).
type Vote struct {
	PostID    string    `db:"post_id" bson:"post_id"`
	ActorID   string    `db:"actor_id" bson:"actor_id"`
	Kind      VoteState `db:"kind" bson:"kind"`
	CreatedAt time.Time `db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `db:"updated_at" bson:"updated_at"`
}

// VoteOutcome is a policy decision: counter deltas and the actor's next state.
type VoteOutcome struct {
	LikeDelta    int
	DislikeDelta int
	Next         VoteState
}

// VoteResult is the body returned by the like/dislike endpoints.
type VoteResult struct {
	PostID       string    `json:"postId"`
	LikeCount    int       `json:"like"`
	DislikeCount int       `json:"dislike"`
	Active       bool      `json:"active"`
	Vote         VoteState `json:"vote"`

	// Deactivated is set when this vote tripped the moderation latch.
	Deactivated bool `json:"-"`
}

// Vote errors
var (
	ErrAlreadyLiked    = errors.New("post already liked")
	ErrAlreadyDisliked = errors.New("post already disliked")
	ErrInvalidAction   = errors.New("invalid vote action")
)
