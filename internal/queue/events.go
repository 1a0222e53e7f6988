package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the posts stream
const (
	EventPostCreated     = "post_created"
	EventPostDeactivated = "post_deactivated"
)

// Deactivation reasons carried on EventPostDeactivated.
const (
	ReasonDislikeThreshold = "dislike_threshold"
	ReasonManual           = "manual"
)

// Stream names
const (
	StreamPosts = "stream:posts"
)

// Consumer group name for post workers
const (
	ConsumerGroupPosts = "post_workers"
)

// PostEvent is published to the posts stream whenever a post enters or
// leaves the active set.
type PostEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	PostID   string   `json:"postId"`
	AuthorID string   `json:"authorId,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`

	// Deactivation only
	Reason string `json:"reason,omitempty"`
}

// NewPostCreatedEvent builds the event for a freshly stored post.
// The worker adds its hashtags to the trending set.
func NewPostCreatedEvent(postID, authorID string, hashtags []string) PostEvent {
	return PostEvent{
		Type:      EventPostCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
		Hashtags:  hashtags,
	}
}

// NewPostDeactivatedEvent builds the event for a post that was latched inactive.
// Hashtags may be empty; the worker then looks the post up.
func NewPostDeactivatedEvent(postID, authorID string, hashtags []string, reason string) PostEvent {
	return PostEvent{
		Type:      EventPostDeactivated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
		Hashtags:  hashtags,
		Reason:    reason,
	}
}

// ToMap converts the event to field-value pairs for XADD.
// The full event is JSON in the "data" field.
func (e PostEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParsePostEvent parses a PostEvent from Redis stream message values.
func ParsePostEvent(values map[string]interface{}) (PostEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return PostEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event PostEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return PostEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.PostID == "" {
		return PostEvent{}, fmt.Errorf("event without postId")
	}
	return event, nil
}
