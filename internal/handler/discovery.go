package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"ghostpic/internal/httputil"
	"ghostpic/internal/model"
)

// TrendingSource ranks hashtags across active posts.
type TrendingSource interface {
	Top(ctx context.Context, limit int) ([]model.TrendingHashtag, error)
}

// CaptionSuggester turns a free-text description into a post caption.
type CaptionSuggester interface {
	Suggest(content string) (*model.CaptionSuggestion, error)
}

// DiscoveryHandler serves trending hashtags and caption suggestions.
type DiscoveryHandler struct {
	trending TrendingSource // nil without Redis
	captions CaptionSuggester
}

func NewDiscoveryHandler(trending TrendingSource, captions CaptionSuggester) *DiscoveryHandler {
	return &DiscoveryHandler{trending: trending, captions: captions}
}

// Trending handles GET /api/hashtags/trending?limit=
func (h *DiscoveryHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	tags := []model.TrendingHashtag{}
	if h.trending != nil {
		top, err := h.trending.Top(r.Context(), limit)
		if err != nil {
			writeServiceError(w, "get trending hashtags", err)
			return
		}
		if top != nil {
			tags = top
		}
	}

	httputil.WriteJSON(w, http.StatusOK, model.TrendingResponse{Hashtags: tags})
}

// SuggestCaption handles POST /api/captions/suggest
func (h *DiscoveryHandler) SuggestCaption(w http.ResponseWriter, r *http.Request) {
	var req model.CaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	suggestion, err := h.captions.Suggest(req.Content)
	if err != nil {
		writeServiceError(w, "suggest caption", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, suggestion)
}
