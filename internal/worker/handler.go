package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ghostpic/internal/cache"
	"ghostpic/internal/model"
	"ghostpic/internal/queue"
)

// PostLookup fetches a post when an event arrives without its hashtags.
// The post repository satisfies it.
type PostLookup interface {
	GetByPostID(ctx context.Context, postID string) (*model.Post, error)
}

// Handler applies post events to the trending projection.
type Handler struct {
	trending cache.TrendingCache
	posts    PostLookup
}

// NewHandler creates a new event handler.
func NewHandler(trending cache.TrendingCache, posts PostLookup) *Handler {
	return &Handler{
		trending: trending,
		posts:    posts,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.PostEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostCreated:
		err = h.handlePostCreated(ctx, event)
	case queue.EventPostDeactivated:
		err = h.handlePostDeactivated(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s post=%s duration=%v err=%v",
			event.Type, event.PostID, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s post=%s duration=%v", event.Type, event.PostID, time.Since(startTime))
	return nil
}

func (h *Handler) handlePostCreated(ctx context.Context, event queue.PostEvent) error {
	log.Printf("[Worker] PostCreated: post=%s author=%s tags=%v", event.PostID, event.AuthorID, event.Hashtags)

	// Events may be handled out of order across workers. A post that is
	// already inactive must not put its tags back after the removal ran.
	if h.posts != nil {
		post, err := h.posts.GetByPostID(ctx, event.PostID)
		switch {
		case err == nil && !post.Active:
			log.Printf("[Worker] PostCreated skipped: post=%s already inactive", event.PostID)
			return nil
		case err != nil && !errors.Is(err, model.ErrPostNotFound):
			return fmt.Errorf("lookup post: %w", err)
		}
	}

	if err := h.trending.Add(ctx, event.Hashtags); err != nil {
		return fmt.Errorf("add trending: %w", err)
	}
	return nil
}

// handlePostDeactivated takes an inactive post's tags out of trending.
func (h *Handler) handlePostDeactivated(ctx context.Context, event queue.PostEvent) error {
	log.Printf("[Worker] PostDeactivated: post=%s reason=%s", event.PostID, event.Reason)

	tags := event.Hashtags
	if len(tags) == 0 && h.posts != nil {
		post, err := h.posts.GetByPostID(ctx, event.PostID)
		if err != nil {
			return fmt.Errorf("lookup post: %w", err)
		}
		tags = post.Hashtags
	}

	if err := h.trending.Remove(ctx, tags); err != nil {
		return fmt.Errorf("remove trending: %w", err)
	}
	return nil
}
