package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostpic/internal/model"
	"ghostpic/internal/transport/http/middleware"
)

const (
	testSecret = "handler-secret"
	actorAddr  = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

// =============================================================================
// FAKES
// =============================================================================

type fakePosts struct {
	createFn     func(ctx context.Context, in model.CreatePostInput) (*model.Post, error)
	getFn        func(ctx context.Context, postID string, viewer *model.Actor, wantInactive bool) (*model.Post, error)
	searchFn     func(ctx context.Context, query string, filter model.ListFilter) ([]model.Post, error)
	voteFn       func(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error)
	voteStateFn  func(ctx context.Context, postID string, actor *model.Actor) (model.VoteState, error)
	deactivateFn func(ctx context.Context, postID string, actor *model.Actor) (*model.Post, error)

	created []model.CreatePostInput
	actions []string
}

func (f *fakePosts) Create(ctx context.Context, in model.CreatePostInput) (*model.Post, error) {
	f.created = append(f.created, in)
	if f.createFn != nil {
		return f.createFn(ctx, in)
	}
	return &model.Post{PostID: "GP-TEST", Caption: in.Caption, Hashtags: in.Hashtags, AuthorID: in.AuthorID, ImageRef: in.ImageRef, Active: true}, nil
}

func (f *fakePosts) GetForViewer(ctx context.Context, postID string, viewer *model.Actor, wantInactive bool) (*model.Post, error) {
	return f.getFn(ctx, postID, viewer, wantInactive)
}

func (f *fakePosts) Search(ctx context.Context, query string, filter model.ListFilter) ([]model.Post, error) {
	return f.searchFn(ctx, query, filter)
}

func (f *fakePosts) Like(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error) {
	f.actions = append(f.actions, "like")
	return f.voteFn(ctx, postID, actor)
}

func (f *fakePosts) Dislike(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error) {
	f.actions = append(f.actions, "dislike")
	return f.voteFn(ctx, postID, actor)
}

func (f *fakePosts) VoteState(ctx context.Context, postID string, actor *model.Actor) (model.VoteState, error) {
	return f.voteStateFn(ctx, postID, actor)
}

func (f *fakePosts) Deactivate(ctx context.Context, postID string, actor *model.Actor) (*model.Post, error) {
	return f.deactivateFn(ctx, postID, actor)
}

type fakePinner struct {
	err      error
	filename string
}

func (f *fakePinner) PinImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.PinnedImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.filename = header.Filename
	return &model.PinnedImage{CID: "bafkreitest", Ref: "ipfs://bafkreitest", URL: "https://gw/ipfs/bafkreitest", Key: "posts/bafkreitest.jpg"}, nil
}

// postRouter mounts the post handler the way the server does, behind the
// actor middleware with the wallet header enabled.
func postRouter(posts Posts, images ImagePinner) http.Handler {
	h := NewPostHandler(posts, images)
	r := chi.NewRouter()
	r.Use(middleware.ActorMiddleware(testSecret, true))
	r.Get("/api/posts", h.List)
	r.Post("/api/posts", h.Create)
	r.Get("/api/posts/{postId}", h.Get)
	r.Delete("/api/posts/{postId}", h.Deactivate)
	r.Get("/api/posts/{postId}/vote", h.Vote)
	r.Patch("/api/posts/{postId}/like", h.Like)
	r.Post("/api/posts/{postId}/like", h.Like)
	r.Patch("/api/posts/{postId}/dislike", h.Dislike)
	r.Post("/api/posts/{postId}/dislike", h.Dislike)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func asActor() map[string]string {
	return map[string]string{middleware.WalletHeader: actorAddr, "Content-Type": "application/json"}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{model.Invalid(model.ErrCaptionRequired), http.StatusBadRequest},
		{model.ErrAlreadyLiked, http.StatusBadRequest},
		{model.ErrAlreadyDisliked, http.StatusBadRequest},
		{model.ErrFileTooLarge, http.StatusBadRequest},
		{model.ErrUnauthenticated, http.StatusUnauthorized},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrRegionRestricted, http.StatusForbidden},
		{model.ErrNotPostOwner, http.StatusForbidden},
		{model.ErrPostNotFound, http.StatusNotFound},
		{model.ErrUserNotFound, http.StatusNotFound},
		{errors.Join(model.ErrConflict, model.ErrNullifierExists), http.StatusConflict},
		{model.ErrCreationFailed, http.StatusConflict},
		{errors.Join(model.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{model.ErrPinningUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, "do thing", tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestWriteServiceError_HidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, "list posts", errors.New("pq: relation posts does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

// =============================================================================
// POST HANDLER
// =============================================================================

func TestPostHandler_Create_JSON(t *testing.T) {
	posts := &fakePosts{}
	router := postRouter(posts, &fakePinner{})

	body := []byte(`{"caption":"hello","hashtags":["#Test"," demo "],"imageUrl":"ipfs://xyz"}`)
	rec := do(t, router, http.MethodPost, "/api/posts", body, asActor())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, posts.created, 1)
	in := posts.created[0]
	assert.Equal(t, actorAddr, in.AuthorID)
	assert.Equal(t, "ipfs://xyz", in.ImageRef)
	assert.Equal(t, []string{"#Test", " demo "}, in.Hashtags)
	assert.Nil(t, in.AuthorState)

	var post model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "GP-TEST", post.PostID)
}

func TestPostHandler_Create_Multipart(t *testing.T) {
	posts := &fakePosts{}
	pinner := &fakePinner{}
	router := postRouter(posts, pinner)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("caption", "pothole"))
	require.NoError(t, mw.WriteField("hashtags", "#road, #civic"))
	require.NoError(t, mw.WriteField("hashtags", "#night"))
	part, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, mw.Close())

	rec := do(t, router, http.MethodPost, "/api/posts", buf.Bytes(), map[string]string{
		middleware.WalletHeader: actorAddr,
		"Content-Type":          mw.FormDataContentType(),
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "photo.png", pinner.filename)
	require.Len(t, posts.created, 1)
	assert.Equal(t, "ipfs://bafkreitest", posts.created[0].ImageRef)
	assert.Equal(t, []string{"#road", "#civic", "#night"}, posts.created[0].Hashtags)
}

func TestPostHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		body      string
		createErr error
		pinErr    error
		status    int
	}{
		{"no actor", map[string]string{"Content-Type": "application/json"}, `{"caption":"x"}`, nil, nil, http.StatusUnauthorized},
		{"bad wallet header", map[string]string{middleware.WalletHeader: "0x123"}, `{}`, nil, nil, http.StatusBadRequest},
		{"malformed json", asActor(), `{`, nil, nil, http.StatusBadRequest},
		{"validation", asActor(), `{"caption":""}`, model.Invalid(model.ErrCaptionRequired), nil, http.StatusBadRequest},
		{"id exhaustion", asActor(), `{"caption":"x"}`, model.ErrCreationFailed, nil, http.StatusConflict},
		{"store down", asActor(), `{"caption":"x"}`, model.ErrStoreUnavailable, nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := &fakePosts{}
			if tt.createErr != nil {
				posts.createFn = func(ctx context.Context, in model.CreatePostInput) (*model.Post, error) {
					return nil, tt.createErr
				}
			}
			router := postRouter(posts, &fakePinner{err: tt.pinErr})

			rec := do(t, router, http.MethodPost, "/api/posts", []byte(tt.body), tt.headers)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestPostHandler_Create_StateFromToken(t *testing.T) {
	posts := &fakePosts{}
	router := postRouter(posts, &fakePinner{})

	token := signToken(t, 7, actorAddr, "Kerala")
	rec := do(t, router, http.MethodPost, "/api/posts", []byte(`{"caption":"c","imageUrl":"ipfs://a"}`), map[string]string{
		"Authorization": "Bearer " + token,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, posts.created[0].AuthorState)
	assert.Equal(t, "Kerala", *posts.created[0].AuthorState)
}

func TestPostHandler_List(t *testing.T) {
	var gotQuery string
	var gotFilter model.ListFilter
	posts := &fakePosts{
		searchFn: func(ctx context.Context, query string, filter model.ListFilter) ([]model.Post, error) {
			gotQuery, gotFilter = query, filter
			return []model.Post{{PostID: "GP-2"}, {PostID: "GP-1"}}, nil
		},
	}
	router := postRouter(posts, nil)

	rec := do(t, router, http.MethodGet, "/api/posts?q=%23road&author="+strings.ToLower(actorAddr)+"&limit=5", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#road", gotQuery)
	assert.Equal(t, model.ListFilter{Author: actorAddr, Limit: 5}, gotFilter)

	var resp model.PostListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Posts, 2)

	rec = do(t, router, http.MethodGet, "/api/posts?limit=zero", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/posts?author=0xabc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostHandler_Get(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		headers      map[string]string
		err          error
		status       int
		wantViewer   bool
		wantInactive bool
	}{
		{"anonymous", "/api/posts/GP-1", nil, nil, http.StatusOK, false, false},
		{"author asks for inactive", "/api/posts/GP-1?includeInactive=true", asActor(), nil, http.StatusOK, true, true},
		{"not found", "/api/posts/GP-404", nil, model.ErrPostNotFound, http.StatusNotFound, false, false},
		{"other state", "/api/posts/GP-1", asActor(), model.ErrRegionRestricted, http.StatusForbidden, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var viewer *model.Actor
			var inactive bool
			posts := &fakePosts{
				getFn: func(ctx context.Context, postID string, v *model.Actor, wantInactive bool) (*model.Post, error) {
					viewer, inactive = v, wantInactive
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Post{PostID: postID, Active: true}, nil
				},
			}

			rec := do(t, postRouter(posts, nil), http.MethodGet, tt.target, nil, tt.headers)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantViewer, viewer != nil)
			assert.Equal(t, tt.wantInactive, inactive)
		})
	}
}

func TestPostHandler_Votes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		headers    map[string]string
		err        error
		status     int
		wantAction string
	}{
		{"patch like", http.MethodPatch, "/api/posts/GP-1/like", asActor(), nil, http.StatusOK, "like"},
		{"post like", http.MethodPost, "/api/posts/GP-1/like", asActor(), nil, http.StatusOK, "like"},
		{"post dislike", http.MethodPost, "/api/posts/GP-1/dislike", asActor(), nil, http.StatusOK, "dislike"},
		{"already liked", http.MethodPatch, "/api/posts/GP-1/like", asActor(), model.ErrAlreadyLiked, http.StatusBadRequest, "like"},
		{"missing post", http.MethodPatch, "/api/posts/GP-9/dislike", asActor(), model.ErrPostNotFound, http.StatusNotFound, "dislike"},
		{"anonymous", http.MethodPatch, "/api/posts/GP-1/like", nil, nil, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := &fakePosts{
				voteFn: func(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.VoteResult{PostID: postID, LikeCount: 1, Active: true, Vote: model.VoteLiked}, nil
				},
			}

			rec := do(t, postRouter(posts, nil), tt.method, tt.path, nil, tt.headers)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.wantAction == "" {
				assert.Empty(t, posts.actions)
			} else {
				assert.Equal(t, []string{tt.wantAction}, posts.actions)
			}
			if tt.status == http.StatusOK {
				var result map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
				assert.Equal(t, "GP-1", result["postId"])
				assert.Equal(t, float64(1), result["like"])
				assert.Contains(t, result, "dislike")
				assert.Contains(t, result, "active")
			}
		})
	}
}

func TestPostHandler_VoteState(t *testing.T) {
	posts := &fakePosts{
		voteStateFn: func(ctx context.Context, postID string, actor *model.Actor) (model.VoteState, error) {
			return model.VoteDisliked, nil
		},
	}

	rec := do(t, postRouter(posts, nil), http.MethodGet, "/api/posts/GP-1/vote", nil, asActor())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"postId":"GP-1","vote":"disliked"}`, rec.Body.String())
}

func TestPostHandler_Deactivate(t *testing.T) {
	posts := &fakePosts{
		deactivateFn: func(ctx context.Context, postID string, actor *model.Actor) (*model.Post, error) {
			if actor.Wallet != actorAddr {
				return nil, model.ErrNotPostOwner
			}
			return &model.Post{PostID: postID, Active: false}, nil
		},
	}
	router := postRouter(posts, nil)

	rec := do(t, router, http.MethodDelete, "/api/posts/GP-1", nil, asActor())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":false`)

	other := map[string]string{middleware.WalletHeader: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"}
	rec = do(t, router, http.MethodDelete, "/api/posts/GP-1", nil, other)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// MEDIA HANDLER
// =============================================================================

func TestMediaHandler_Upload(t *testing.T) {
	multipartBody := func(t *testing.T, field string) ([]byte, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile(field, "a.jpg")
		require.NoError(t, err)
		_, _ = part.Write([]byte("jpeg"))
		require.NoError(t, mw.Close())
		return buf.Bytes(), mw.FormDataContentType()
	}

	tests := []struct {
		name   string
		field  string
		actor  bool
		pinErr error
		status int
	}{
		{"pinned", "image", true, nil, http.StatusCreated},
		{"no actor", "image", false, nil, http.StatusUnauthorized},
		{"missing file", "other", true, nil, http.StatusBadRequest},
		{"bad type", "image", true, model.ErrInvalidImageType, http.StatusBadRequest},
		{"pinning off", "image", true, model.ErrPinningUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMediaHandler(&fakePinner{err: tt.pinErr})
			router := chi.NewRouter()
			router.Use(middleware.ActorMiddleware(testSecret, true))
			router.Post("/api/media/images", h.Upload)

			body, contentType := multipartBody(t, tt.field)
			headers := map[string]string{"Content-Type": contentType}
			if tt.actor {
				headers[middleware.WalletHeader] = actorAddr
			}

			rec := do(t, router, http.MethodPost, "/api/media/images", body, headers)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusCreated {
				assert.Contains(t, rec.Body.String(), `"ref":"ipfs://bafkreitest"`)
			}
		})
	}
}

// =============================================================================
// DISCOVERY HANDLER
// =============================================================================

type fakeTrending struct {
	limit int
	err   error
}

func (f *fakeTrending) Top(ctx context.Context, limit int) ([]model.TrendingHashtag, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []model.TrendingHashtag{{Tag: "#road", Count: 3}}, nil
}

type captionFunc func(string) (*model.CaptionSuggestion, error)

func (f captionFunc) Suggest(content string) (*model.CaptionSuggestion, error) { return f(content) }

func TestDiscoveryHandler_Trending(t *testing.T) {
	src := &fakeTrending{}
	h := NewDiscoveryHandler(src, nil)

	rec := do(t, http.HandlerFunc(h.Trending), http.MethodGet, "/api/hashtags/trending?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, src.limit)
	assert.JSONEq(t, `{"hashtags":[{"tag":"#road","count":3}]}`, rec.Body.String())

	// Without Redis there is nothing to rank.
	rec = do(t, http.HandlerFunc(NewDiscoveryHandler(nil, nil).Trending), http.MethodGet, "/api/hashtags/trending", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hashtags":[]}`, rec.Body.String())

	rec = do(t, http.HandlerFunc(h.Trending), http.MethodGet, "/api/hashtags/trending?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscoveryHandler_SuggestCaption(t *testing.T) {
	h := NewDiscoveryHandler(nil, captionFunc(func(content string) (*model.CaptionSuggestion, error) {
		if strings.TrimSpace(content) == "" {
			return nil, model.Invalid(model.ErrContentRequired)
		}
		return &model.CaptionSuggestion{Caption: "Civic issue reported: " + content, Hashtags: []string{"#civicissue"}}, nil
	}))

	rec := do(t, http.HandlerFunc(h.SuggestCaption), http.MethodPost, "/api/captions/suggest", []byte(`{"content":"pothole"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Civic issue reported: pothole")

	rec = do(t, http.HandlerFunc(h.SuggestCaption), http.MethodPost, "/api/captions/suggest", []byte(`{"content":""}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))
}
