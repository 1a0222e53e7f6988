package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ghostpic/internal/httputil"
	"ghostpic/internal/model"
	"ghostpic/internal/service"
	"ghostpic/internal/transport/http/middleware"
)

// Posts is the post-service surface behind /api/posts.
type Posts interface {
	Create(ctx context.Context, in model.CreatePostInput) (*model.Post, error)
	GetForViewer(ctx context.Context, postID string, viewer *model.Actor, wantInactive bool) (*model.Post, error)
	Search(ctx context.Context, query string, filter model.ListFilter) ([]model.Post, error)
	Like(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error)
	Dislike(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error)
	VoteState(ctx context.Context, postID string, actor *model.Actor) (model.VoteState, error)
	Deactivate(ctx context.Context, postID string, actor *model.Actor) (*model.Post, error)
}

// ImagePinner stores an uploaded image and returns its content reference.
type ImagePinner interface {
	PinImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.PinnedImage, error)
}

type PostHandler struct {
	posts  Posts
	images ImagePinner
}

func NewPostHandler(posts Posts, images ImagePinner) *PostHandler {
	return &PostHandler{posts: posts, images: images}
}

// VoteStateResponse is the body of GET /api/posts/{postId}/vote.
type VoteStateResponse struct {
	PostID string          `json:"postId"`
	Vote   model.VoteState `json:"vote"`
}

// Create handles POST /api/posts
// Accepts JSON with an imageUrl, or multipart/form-data with an "image" file
// that is pinned before the post is stored.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreatePostRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, ok := h.parseMultipartPost(w, r)
		if !ok {
			return
		}
		req = *parsed
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	in := model.CreatePostInput{
		Caption:  req.Caption,
		Hashtags: req.Hashtags,
		AuthorID: actor.Wallet,
		ImageRef: req.ImageURL,
	}
	if actor.State != "" {
		state := actor.State
		in.AuthorState = &state
	}

	post, err := h.posts.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, "create post", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) parseMultipartPost(w http.ResponseWriter, r *http.Request) (*model.CreatePostRequest, bool) {
	maxFormSize := int64(model.MaxImageSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
			return nil, false
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return nil, false
	}

	req := &model.CreatePostRequest{
		Caption:  r.FormValue("caption"),
		Hashtags: splitHashtagField(r.MultipartForm.Value["hashtags"]),
		ImageURL: strings.TrimSpace(r.FormValue("imageUrl")),
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		pinned, err := h.images.PinImage(r.Context(), file, header)
		if err != nil {
			writeServiceError(w, "pin image", err)
			return nil, false
		}
		req.ImageURL = pinned.Ref
	case !errors.Is(err, http.ErrMissingFile):
		httputil.WriteBadRequest(w, "Invalid image upload")
		return nil, false
	}
	return req, true
}

// splitHashtagField accepts repeated fields and comma separated lists.
func splitHashtagField(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// List handles GET /api/posts?q=&author=&limit=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var filter model.ListFilter
	if author := strings.TrimSpace(query.Get("author")); author != "" {
		wallet, err := service.NormalizeWallet(author)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid author wallet address")
			return
		}
		filter.Author = wallet
	}
	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		filter.Limit = parsed
	}

	posts, err := h.posts.Search(r.Context(), query.Get("q"), filter)
	if err != nil {
		writeServiceError(w, "list posts", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostListResponse{Posts: posts})
}

// Get handles GET /api/posts/{postId}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))

	post, err := h.posts.GetForViewer(r.Context(), postID, middleware.GetActorFromContext(r.Context()), includeInactive)
	if err != nil {
		writeServiceError(w, "get post", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Like handles PATCH and POST /api/posts/{postId}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, model.ActionLike)
}

// Dislike handles PATCH and POST /api/posts/{postId}/dislike
func (h *PostHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, model.ActionDislike)
}

func (h *PostHandler) vote(w http.ResponseWriter, r *http.Request, action model.VoteAction) {
	actor := middleware.GetActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID := chi.URLParam(r, "postId")
	var result *model.VoteResult
	var err error
	if action == model.ActionLike {
		result, err = h.posts.Like(r.Context(), postID, actor)
	} else {
		result, err = h.posts.Dislike(r.Context(), postID, actor)
	}
	if err != nil {
		writeServiceError(w, string(action)+" post", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Vote handles GET /api/posts/{postId}/vote
func (h *PostHandler) Vote(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID := chi.URLParam(r, "postId")
	state, err := h.posts.VoteState(r.Context(), postID, actor)
	if err != nil {
		writeServiceError(w, "get vote", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VoteStateResponse{PostID: postID, Vote: state})
}

// Deactivate handles DELETE /api/posts/{postId}
// Only the author or a moderator may take a post down.
func (h *PostHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	post, err := h.posts.Deactivate(r.Context(), chi.URLParam(r, "postId"), actor)
	if err != nil {
		writeServiceError(w, "deactivate post", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}
