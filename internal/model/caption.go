package model

import "errors"

// CaptionRequest is the body of POST /api/captions/suggest.
type CaptionRequest struct {
	Content string `json:"content"`
}

// CaptionSuggestion is a formal caption with hashtags ready for a post.
type CaptionSuggestion struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// TrendingHashtag is one entry of the trending projection.
type TrendingHashtag struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// TrendingResponse wraps the trending listing.
type TrendingResponse struct {
	Hashtags []TrendingHashtag `json:"hashtags"`
}

const MaxSuggestedCaptionLength = 100

var (
	ErrContentRequired      = errors.New("content is required")
	ErrInappropriateContent = errors.New("content not appropriate for civic reporting")
)
