package model

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// Post is a civic report with its interaction counters.
type Post struct {
	ID            int64          `db:"id" json:"-" bson:"-"`
	PostID        string         `db:"post_id" json:"postId" bson:"post_id"`
	Caption       string         `db:"caption" json:"caption" bson:"caption"`
	Hashtags      pq.StringArray `db:"hashtags" json:"hashtags" bson:"hashtags"`
	AuthorID      string         `db:"author_id" json:"walletAddress" bson:"author_id"`
	AuthorState   *string        `db:"author_state" json:"authorState,omitempty" bson:"author_state,omitempty"`
	ImageRef      string         `db:"image_ref" json:"imageUrl" bson:"image_ref"`
	LikeCount     int            `db:"like_count" json:"like" bson:"like_count"`
	DislikeCount  int            `db:"dislike_count" json:"dislike" bson:"dislike_count"`
	Active        bool           `db:"active" json:"active" bson:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt" bson:"created_at"`
	DeactivatedAt *time.Time     `db:"deactivated_at" json:"deactivatedAt,omitempty" bson:"deactivated_at,omitempty"`
}

// CreatePostRequest is the JSON body for POST /api/posts.
type CreatePostRequest struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	ImageURL string   `json:"imageUrl"`
}

// CreatePostInput is what the post service needs to mint a post.
// AuthorID is the actor's wallet address.
type CreatePostInput struct {
	Caption     string
	Hashtags    []string
	AuthorID    string
	AuthorState *string
	ImageRef    string
}

// ListFilter narrows ListActive. Zero value lists everything.
// Tags holds normalized search terms; a post matches when any of its
// hashtags starts with any term. The store applies it before the limit.
type ListFilter struct {
	Author string
	Tags   []string
	Limit  int
}

// PostListResponse wraps post listings.
type PostListResponse struct {
	Posts []Post `json:"posts"`
}

// Post constants
const (
	MaxPostCaptionLength = 2200
	DefaultListLimit     = 100
	MaxListLimit         = 500
)

// Post errors
var (
	ErrPostNotFound     = errors.New("post not found")
	ErrPostIDTaken      = errors.New("post id already taken")
	ErrCreationFailed   = errors.New("could not allocate a unique post id")
	ErrCaptionRequired  = errors.New("caption is required")
	ErrCaptionTooLong   = errors.New("caption too long")
	ErrAuthorRequired   = errors.New("author is required")
	ErrImageRequired    = errors.New("image reference is required")
	ErrRegionRestricted = errors.New("post is outside the viewer's state")
	ErrNotPostOwner     = errors.New("not the owner of this post")
)
