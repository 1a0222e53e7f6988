package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"ghostpic/internal/config"
	"ghostpic/internal/hashtag"
	"ghostpic/internal/model"
	"ghostpic/internal/queue"
	"ghostpic/internal/repository"
)

// =============================================================================
// IN-MEMORY STORE
// =============================================================================
//
// memStore implements both PostRepository and VoteRepository. Apply holds the
// mutex for the whole transition, which is what the row lock gives us in
// Postgres.

type memStore struct {
	mu    sync.Mutex
	seq   int64
	posts map[string]*model.Post
	votes map[string]model.VoteState // postID + "|" + actorID

	createErr error
	applyErr  error
}

func newMemStore() *memStore {
	return &memStore{
		posts: make(map[string]*model.Post),
		votes: make(map[string]model.VoteState),
	}
}

func voteKey(postID, actorID string) string { return postID + "|" + actorID }

func (m *memStore) Create(ctx context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.posts[post.PostID]; ok {
		return model.ErrPostIDTaken
	}
	m.seq++
	post.ID = m.seq
	post.LikeCount = 0
	post.DislikeCount = 0
	post.Active = true
	post.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	cp := *post
	m.posts[post.PostID] = &cp
	return nil
}

func (m *memStore) GetByPostID(ctx context.Context, postID string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListActive(ctx context.Context, filter model.ListFilter) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Post{}
	for _, p := range m.posts {
		if !p.Active {
			continue
		}
		if filter.Author != "" && p.AuthorID != filter.Author {
			continue
		}
		if len(filter.Tags) > 0 && !hashtag.Matches(p.Hashtags, filter.Tags) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) Deactivate(ctx context.Context, postID string) (*model.Post, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, false, model.ErrPostNotFound
	}
	changed := p.Active
	if changed {
		now := time.Now()
		p.Active = false
		p.DeactivatedAt = &now
	}
	cp := *p
	return &cp, changed, nil
}

func (m *memStore) GetState(ctx context.Context, postID, actorID string) (model.VoteState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.votes[voteKey(postID, actorID)]; ok {
		return s, nil
	}
	return model.VoteNeutral, nil
}

func (m *memStore) Apply(ctx context.Context, postID, actorID string, action model.VoteAction, policy repository.VotePolicy) (*model.VoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, m.applyErr
	}

	p, ok := m.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}

	current, ok := m.votes[voteKey(postID, actorID)]
	if !ok {
		current = model.VoteNeutral
	}
	outcome, err := policy.Decide(current, action)
	if err != nil {
		return nil, err
	}

	m.votes[voteKey(postID, actorID)] = outcome.Next
	p.LikeCount += outcome.LikeDelta
	p.DislikeCount += outcome.DislikeDelta

	res := &model.VoteResult{PostID: postID, LikeCount: p.LikeCount, DislikeCount: p.DislikeCount, Active: p.Active, Vote: outcome.Next}
	if outcome.DislikeDelta > 0 && p.Active && policy.ShouldDeactivate(p.DislikeCount) {
		p.Active = false
		res.Active = false
		res.Deactivated = true
	}
	return res, nil
}

// =============================================================================
// MOCK PUBLISHER / ID GENERATOR
// =============================================================================

type mockPublisher struct {
	mu     sync.Mutex
	events []queue.PostEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.PostEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.events = append(m.events, event)
	return fmt.Sprintf("%d-0", len(m.events)), nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// sequenceIDs hands out ids in order, repeating the last one when exhausted.
type sequenceIDs struct {
	ids   []string
	calls int
}

func (s *sequenceIDs) Generate() string {
	i := s.calls
	if i >= len(s.ids) {
		i = len(s.ids) - 1
	}
	s.calls++
	return s.ids[i]
}

func testConfig() *config.Config {
	return &config.Config{
		StoreTimeout:     time.Second,
		DislikeThreshold: 10,
		PostIDAttempts:   3,
	}
}

func newTestPostService(cfg *config.Config) (*PostService, *memStore, *mockPublisher) {
	store := newMemStore()
	pub := &mockPublisher{}
	return NewPostService(store, store, pub, cfg), store, pub
}

func validInput() model.CreatePostInput {
	return model.CreatePostInput{
		Caption:  "hello",
		Hashtags: []string{"#Test", " demo "},
		AuthorID: "0xABC",
		ImageRef: "ipfs://xyz",
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestPostService_Create_Success(t *testing.T) {
	svc, _, pub := newTestPostService(testConfig())

	post, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !strings.HasPrefix(post.PostID, "GP-") {
		t.Errorf("postId = %q, want GP- prefix", post.PostID)
	}
	if got := strings.Join(post.Hashtags, ","); got != "test,demo" {
		t.Errorf("hashtags = %q, want test,demo", got)
	}
	if post.LikeCount != 0 || post.DislikeCount != 0 || !post.Active {
		t.Errorf("new post = like:%d dislike:%d active:%t, want 0/0/true", post.LikeCount, post.DislikeCount, post.Active)
	}
	if got := pub.types(); len(got) != 1 || got[0] != queue.EventPostCreated {
		t.Errorf("published = %v, want [%s]", got, queue.EventPostCreated)
	}
}

func TestPostService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *model.CreatePostInput)
		wantErr error
	}{
		{"empty caption", func(in *model.CreatePostInput) { in.Caption = "" }, model.ErrCaptionRequired},
		{"blank caption", func(in *model.CreatePostInput) { in.Caption = "   \t" }, model.ErrCaptionRequired},
		{"caption too long", func(in *model.CreatePostInput) { in.Caption = strings.Repeat("é", model.MaxPostCaptionLength+1) }, model.ErrCaptionTooLong},
		{"missing author", func(in *model.CreatePostInput) { in.AuthorID = " " }, model.ErrAuthorRequired},
		{"missing image", func(in *model.CreatePostInput) { in.ImageRef = "" }, model.ErrImageRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestPostService(testConfig())
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("error %v should be a validation error", err)
			}
			if len(store.posts) != 0 {
				t.Error("nothing should be stored on validation failure")
			}
		})
	}
}

func TestPostService_Create_CaptionAtLimit(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	in := validInput()
	in.Caption = strings.Repeat("é", model.MaxPostCaptionLength)

	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("caption of exactly %d runes should be accepted: %v", model.MaxPostCaptionLength, err)
	}
}

func TestPostService_Create_RetriesOnCollision(t *testing.T) {
	svc, store, _ := newTestPostService(testConfig())
	store.posts["GP-taken"] = &model.Post{PostID: "GP-taken", Active: true}
	gen := &sequenceIDs{ids: []string{"GP-taken", "GP-fresh"}}
	svc.SetIDGenerator(gen)

	post, err := svc.Create(context.Background(), validInput())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.PostID != "GP-fresh" {
		t.Errorf("postId = %q, want GP-fresh", post.PostID)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
}

func TestPostService_Create_GivesUpAfterAttempts(t *testing.T) {
	svc, store, pub := newTestPostService(testConfig())
	store.posts["GP-taken"] = &model.Post{PostID: "GP-taken", Active: true}
	gen := &sequenceIDs{ids: []string{"GP-taken"}}
	svc.SetIDGenerator(gen)

	_, err := svc.Create(context.Background(), validInput())

	if !errors.Is(err, model.ErrCreationFailed) {
		t.Errorf("error = %v, want %v", err, model.ErrCreationFailed)
	}
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want 3", gen.calls)
	}
	if len(pub.types()) != 0 {
		t.Error("no event should be published when creation fails")
	}
}

func TestPostService_Create_StoreUnavailable(t *testing.T) {
	svc, store, _ := newTestPostService(testConfig())
	store.createErr = fmt.Errorf("insert post: %w: %w", model.ErrStoreUnavailable, context.DeadlineExceeded)

	_, err := svc.Create(context.Background(), validInput())

	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("error = %v, want %v", err, model.ErrStoreUnavailable)
	}
}

func TestPostService_Create_PublishFailureIgnored(t *testing.T) {
	svc, _, pub := newTestPostService(testConfig())
	pub.err = errors.New("redis down")

	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("publish failure must not fail creation: %v", err)
	}
}

func TestPostService_Create_NilPublisher(t *testing.T) {
	store := newMemStore()
	svc := NewPostService(store, store, nil, testConfig())

	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostService_Create_UniqueIDs(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		post, err := svc.Create(context.Background(), validInput())
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[post.PostID] {
			t.Fatalf("duplicate postId %q", post.PostID)
		}
		seen[post.PostID] = true
	}
}

// =============================================================================
// GET / LIST / SEARCH TESTS
// =============================================================================

func TestPostService_Get(t *testing.T) {
	svc, store, _ := newTestPostService(testConfig())
	post, _ := svc.Create(context.Background(), validInput())
	store.posts[post.PostID].Active = false

	tests := []struct {
		name            string
		postID          string
		includeInactive bool
		wantErr         error
	}{
		{"inactive hidden", post.PostID, false, model.ErrPostNotFound},
		{"inactive included", post.PostID, true, nil},
		{"unknown id", "GP-nope", true, model.ErrPostNotFound},
		{"empty id", "  ", true, model.ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Get(context.Background(), tt.postID, tt.includeInactive)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.PostID != tt.postID {
				t.Errorf("postId = %q, want %q", got.PostID, tt.postID)
			}
		})
	}
}

func TestPostService_GetForViewer(t *testing.T) {
	kerala := "Kerala"
	goa := "Goa"

	cfg := testConfig()
	cfg.RestrictToState = true
	cfg.ModeratorWallets = []string{"0xMOD"}

	tests := []struct {
		name         string
		active       bool
		viewer       *model.Actor
		wantInactive bool
		wantErr      error
	}{
		{"same state", true, &model.Actor{Wallet: "0xDEF", State: "kerala"}, false, nil},
		{"other state", true, &model.Actor{Wallet: "0xDEF", State: goa}, false, model.ErrRegionRestricted},
		{"anonymous", true, nil, false, model.ErrUnauthenticated},
		{"author from elsewhere", true, &model.Actor{Wallet: "0xabc", State: goa}, false, nil},
		{"moderator", true, &model.Actor{Wallet: "0xmod"}, false, nil},
		{"inactive for stranger", false, &model.Actor{Wallet: "0xDEF", State: kerala}, true, model.ErrPostNotFound},
		{"inactive for author without flag", false, &model.Actor{Wallet: "0xABC"}, false, model.ErrPostNotFound},
		{"inactive for author with flag", false, &model.Actor{Wallet: "0xABC"}, true, nil},
		{"inactive for moderator with flag", false, &model.Actor{Wallet: "0xMOD"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestPostService(cfg)
			in := validInput()
			in.AuthorState = &kerala
			post, err := svc.Create(context.Background(), in)
			if err != nil {
				t.Fatalf("setup: %v", err)
			}
			store.posts[post.PostID].Active = tt.active

			_, err = svc.GetForViewer(context.Background(), post.PostID, tt.viewer, tt.wantInactive)

			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostService_GetForViewer_NoRestrictionByDefault(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	state := "Kerala"
	in := validInput()
	in.AuthorState = &state
	post, _ := svc.Create(context.Background(), in)

	if _, err := svc.GetForViewer(context.Background(), post.PostID, nil, false); err != nil {
		t.Errorf("anonymous viewer should see the post when restriction is off: %v", err)
	}
}

func TestPostService_ListActive_NewestFirstAndExcludesInactive(t *testing.T) {
	svc, store, _ := newTestPostService(testConfig())
	ctx := context.Background()

	first, _ := svc.Create(ctx, validInput())
	second, _ := svc.Create(ctx, validInput())
	third, _ := svc.Create(ctx, validInput())
	store.posts[second.PostID].Active = false

	posts, err := svc.ListActive(ctx, model.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].PostID != third.PostID || posts[1].PostID != first.PostID {
		t.Errorf("order = [%s %s], want [%s %s]", posts[0].PostID, posts[1].PostID, third.PostID, first.PostID)
	}
}

func TestPostService_Search(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	ctx := context.Background()
	svc.Create(ctx, validInput())

	other := validInput()
	other.Hashtags = []string{"roads"}
	svc.Create(ctx, other)

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"   ", 2},
		{"te", 1},
		{"#TE", 1},
		{"zzz", 0},
		{"zzz ro", 1},
		{"de ro", 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("query %q", tt.query), func(t *testing.T) {
			posts, err := svc.Search(ctx, tt.query, model.ListFilter{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(posts) != tt.want {
				t.Errorf("got %d posts, want %d", len(posts), tt.want)
			}
		})
	}
}

// =============================================================================
// VOTE TESTS
// =============================================================================

func TestPostService_Search_BeyondNewestPage(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	ctx := context.Background()

	oldest := validInput()
	oldest.Hashtags = []string{"ghost"}
	want, err := svc.Create(ctx, oldest)
	if err != nil {
		t.Fatalf("create oldest: %v", err)
	}
	for i := 0; i < model.DefaultListLimit; i++ {
		in := validInput()
		in.Hashtags = []string{"roads"}
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	found, err := svc.Search(ctx, "gho", model.ListFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].PostID != want.PostID {
		t.Fatalf("search gho = %d posts, want only %s", len(found), want.PostID)
	}

	all, _ := svc.Search(ctx, "", model.ListFilter{})
	if len(all) != model.DefaultListLimit {
		t.Errorf("empty query = %d posts, want the default page of %d", len(all), model.DefaultListLimit)
	}
}

func TestPostService_EndToEndScenario(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	ctx := context.Background()
	actor := &model.Actor{Wallet: "0xDEF"}

	post, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := strings.Join(post.Hashtags, ","); got != "test,demo" {
		t.Fatalf("hashtags = %q, want test,demo", got)
	}

	res, err := svc.Like(ctx, post.PostID, actor)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if res.LikeCount != 1 || res.DislikeCount != 0 || res.Vote != model.VoteLiked {
		t.Errorf("after like = %+v, want like 1 dislike 0", res)
	}

	if _, err := svc.Like(ctx, post.PostID, actor); !errors.Is(err, model.ErrAlreadyLiked) {
		t.Errorf("second like error = %v, want %v", err, model.ErrAlreadyLiked)
	}

	res, err = svc.Dislike(ctx, post.PostID, actor)
	if err != nil {
		t.Fatalf("dislike: %v", err)
	}
	if res.LikeCount != 0 || res.DislikeCount != 1 || res.Vote != model.VoteDisliked {
		t.Errorf("after dislike = %+v, want like 0 dislike 1", res)
	}

	if state, _ := svc.VoteState(ctx, post.PostID, actor); state != model.VoteDisliked {
		t.Errorf("vote state = %q, want %q", state, model.VoteDisliked)
	}

	if found, _ := svc.Search(ctx, "te", model.ListFilter{}); len(found) != 1 {
		t.Errorf("search te = %d posts, want 1", len(found))
	}
	if found, _ := svc.Search(ctx, "zzz", model.ListFilter{}); len(found) != 0 {
		t.Errorf("search zzz = %d posts, want 0", len(found))
	}
}

func TestPostService_Vote_Errors(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	ctx := context.Background()
	post, _ := svc.Create(ctx, validInput())

	tests := []struct {
		name    string
		postID  string
		actor   *model.Actor
		wantErr error
	}{
		{"no actor", post.PostID, nil, model.ErrUnauthenticated},
		{"blank wallet", post.PostID, &model.Actor{Wallet: " "}, model.ErrUnauthenticated},
		{"unknown post", "GP-missing", &model.Actor{Wallet: "0xDEF"}, model.ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Like(ctx, tt.postID, tt.actor)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostService_VoteState(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	ctx := context.Background()
	post, _ := svc.Create(ctx, validInput())
	actor := &model.Actor{Wallet: "0xDEF"}

	state, err := svc.VoteState(ctx, post.PostID, actor)
	if err != nil || state != model.VoteNeutral {
		t.Fatalf("initial state = %q, %v; want neutral", state, err)
	}

	if _, err := svc.Dislike(ctx, post.PostID, actor); err != nil {
		t.Fatalf("dislike: %v", err)
	}
	if state, _ := svc.VoteState(ctx, post.PostID, actor); state != model.VoteDisliked {
		t.Errorf("after dislike state = %q, want disliked", state)
	}

	if _, err := svc.VoteState(ctx, post.PostID, nil); !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("anonymous error = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.VoteState(ctx, "GP-missing", actor); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("missing post error = %v, want ErrPostNotFound", err)
	}
}

func TestPostService_DislikeThresholdLatch(t *testing.T) {
	cfg := testConfig()
	cfg.DislikeThreshold = 2
	svc, _, pub := newTestPostService(cfg)
	ctx := context.Background()
	post, _ := svc.Create(ctx, validInput())

	for i := 1; i <= 2; i++ {
		res, err := svc.Dislike(ctx, post.PostID, &model.Actor{Wallet: fmt.Sprintf("0x%d", i)})
		if err != nil {
			t.Fatalf("dislike %d: %v", i, err)
		}
		if !res.Active {
			t.Fatalf("post deactivated after %d dislikes, threshold is 2", i)
		}
	}

	res, err := svc.Dislike(ctx, post.PostID, &model.Actor{Wallet: "0x3"})
	if err != nil {
		t.Fatalf("dislike 3: %v", err)
	}
	if res.Active || !res.Deactivated {
		t.Errorf("third dislike = %+v, want deactivated", res)
	}

	if _, err := svc.Get(ctx, post.PostID, false); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("Get without includeInactive error = %v, want %v", err, model.ErrPostNotFound)
	}
	listed, _ := svc.ListActive(ctx, model.ListFilter{})
	if len(listed) != 0 {
		t.Errorf("ListActive returned %d posts, want 0", len(listed))
	}

	// Votes on an inactive post are still recorded and never reactivate it.
	for i := 4; i <= 8; i++ {
		res, err = svc.Like(ctx, post.PostID, &model.Actor{Wallet: fmt.Sprintf("0x%d", i)})
		if err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
		if res.Active {
			t.Fatal("post must stay inactive")
		}
	}

	types := pub.types()
	if types[len(types)-1] != queue.EventPostDeactivated {
		t.Errorf("last event = %s, want %s", types[len(types)-1], queue.EventPostDeactivated)
	}
}

func TestPostService_ThresholdZeroDisablesModeration(t *testing.T) {
	cfg := testConfig()
	cfg.DislikeThreshold = 0
	svc, _, _ := newTestPostService(cfg)
	ctx := context.Background()
	post, _ := svc.Create(ctx, validInput())

	for i := 0; i < 25; i++ {
		res, err := svc.Dislike(ctx, post.PostID, &model.Actor{Wallet: fmt.Sprintf("0x%d", i)})
		if err != nil {
			t.Fatalf("dislike %d: %v", i, err)
		}
		if !res.Active {
			t.Fatal("post should never deactivate with threshold 0")
		}
	}
}

func TestPostService_ConcurrentLikes(t *testing.T) {
	svc, _, _ := newTestPostService(testConfig())
	ctx := context.Background()
	post, _ := svc.Create(ctx, validInput())

	const actors = 50
	var wg sync.WaitGroup
	for i := 0; i < actors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := &model.Actor{Wallet: fmt.Sprintf("0x%02d", i)}
			svc.Like(ctx, post.PostID, actor)
			svc.Like(ctx, post.PostID, actor) // rejected
		}(i)
	}
	wg.Wait()

	got, _ := svc.Get(ctx, post.PostID, true)
	if got.LikeCount != actors {
		t.Errorf("likeCount = %d, want %d", got.LikeCount, actors)
	}
}

// =============================================================================
// DEACTIVATE TESTS
// =============================================================================

func TestPostService_Deactivate(t *testing.T) {
	cfg := testConfig()
	cfg.ModeratorWallets = []string{"0xMOD"}

	tests := []struct {
		name      string
		actor     *model.Actor
		wantErr   error
		wantEvent bool
	}{
		{"author", &model.Actor{Wallet: "0xabc"}, nil, true},
		{"moderator", &model.Actor{Wallet: "0xMOD"}, nil, true},
		{"stranger", &model.Actor{Wallet: "0xDEF"}, model.ErrNotPostOwner, false},
		{"anonymous", nil, model.ErrUnauthenticated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, pub := newTestPostService(cfg)
			ctx := context.Background()
			post, _ := svc.Create(ctx, validInput())

			got, err := svc.Deactivate(ctx, post.PostID, tt.actor)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Active {
				t.Error("post should be inactive")
			}
			types := pub.types()
			if tt.wantEvent && types[len(types)-1] != queue.EventPostDeactivated {
				t.Errorf("events = %v, want trailing %s", types, queue.EventPostDeactivated)
			}
		})
	}
}

func TestPostService_Deactivate_Idempotent(t *testing.T) {
	svc, _, pub := newTestPostService(testConfig())
	ctx := context.Background()
	post, _ := svc.Create(ctx, validInput())
	author := &model.Actor{Wallet: "0xABC"}

	svc.Deactivate(ctx, post.PostID, author)
	if _, err := svc.Deactivate(ctx, post.PostID, author); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}

	if n := len(pub.types()); n != 2 {
		t.Errorf("published %d events, want 2 (created + one deactivated)", n)
	}
}
