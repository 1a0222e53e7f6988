package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"ghostpic/internal/config"
	"ghostpic/internal/hashtag"
	"ghostpic/internal/model"
	"ghostpic/internal/queue"
	"ghostpic/internal/repository"
)

type PostService struct {
	postRepo  repository.PostRepository
	voteRepo  repository.VoteRepository
	publisher queue.Publisher // nil when Redis is not configured
	policy    InteractionPolicy
	ids       IDGenerator

	storeTimeout    time.Duration
	idAttempts      int
	restrictToState bool
	moderators      map[string]struct{}
}

func NewPostService(
	postRepo repository.PostRepository,
	voteRepo repository.VoteRepository,
	publisher queue.Publisher,
	cfg *config.Config,
) *PostService {
	moderators := make(map[string]struct{}, len(cfg.ModeratorWallets))
	for _, w := range cfg.ModeratorWallets {
		moderators[strings.ToLower(w)] = struct{}{}
	}

	attempts := cfg.PostIDAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &PostService{
		postRepo:        postRepo,
		voteRepo:        voteRepo,
		publisher:       publisher,
		policy:          NewInteractionPolicy(cfg.DislikeThreshold),
		ids:             NewPostIDGenerator(),
		storeTimeout:    cfg.StoreTimeout,
		idAttempts:      attempts,
		restrictToState: cfg.RestrictToState,
		moderators:      moderators,
	}
}

// SetIDGenerator replaces the post id generator.
func (s *PostService) SetIDGenerator(g IDGenerator) {
	s.ids = g
}

// IsModerator reports whether actor may see and deactivate any post.
func (s *PostService) IsModerator(actor *model.Actor) bool {
	if actor == nil || actor.Wallet == "" {
		return false
	}
	_, ok := s.moderators[strings.ToLower(actor.Wallet)]
	return ok
}

func isAuthor(actor *model.Actor, post *model.Post) bool {
	return actor != nil && actor.Wallet != "" && strings.EqualFold(actor.Wallet, post.AuthorID)
}

func validateCreate(in *model.CreatePostInput) error {
	in.Caption = strings.TrimSpace(in.Caption)
	in.AuthorID = strings.TrimSpace(in.AuthorID)
	in.ImageRef = strings.TrimSpace(in.ImageRef)

	if in.Caption == "" {
		return model.Invalid(model.ErrCaptionRequired)
	}
	if utf8.RuneCountInString(in.Caption) > model.MaxPostCaptionLength {
		return model.Invalid(model.ErrCaptionTooLong)
	}
	if in.AuthorID == "" {
		return model.Invalid(model.ErrAuthorRequired)
	}
	if in.ImageRef == "" {
		return model.Invalid(model.ErrImageRequired)
	}
	return nil
}

// Create validates the input, mints a post id and persists the post. A
// colliding id is regenerated up to the configured number of attempts.
func (s *PostService) Create(ctx context.Context, in model.CreatePostInput) (*model.Post, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	post := &model.Post{
		Caption:     in.Caption,
		Hashtags:    hashtag.Normalize(in.Hashtags),
		AuthorID:    in.AuthorID,
		AuthorState: in.AuthorState,
		ImageRef:    in.ImageRef,
	}

	stored := false
	for attempt := 1; attempt <= s.idAttempts; attempt++ {
		post.PostID = s.ids.Generate()

		sctx, cancel := storeContext(ctx, s.storeTimeout)
		err := s.postRepo.Create(sctx, post)
		cancel()

		if err == nil {
			stored = true
			break
		}
		if !errors.Is(err, model.ErrPostIDTaken) {
			return nil, fmt.Errorf("create post: %w", err)
		}
		log.Printf("[PostService] post id collision: id=%s attempt=%d/%d", post.PostID, attempt, s.idAttempts)
	}
	if !stored {
		return nil, model.ErrCreationFailed
	}

	log.Printf("[PostService] Created post=%s author=%s tags=%v", post.PostID, post.AuthorID, post.Hashtags)
	s.publish(ctx, queue.NewPostCreatedEvent(post.PostID, post.AuthorID, post.Hashtags))

	return post, nil
}

// Get returns a post by its public id. Inactive posts are ErrPostNotFound
// unless includeInactive is set.
func (s *PostService) Get(ctx context.Context, postID string, includeInactive bool) (*model.Post, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, model.ErrPostNotFound
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	post, err := s.postRepo.GetByPostID(sctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.Active && !includeInactive {
		return nil, model.ErrPostNotFound
	}
	return post, nil
}

// GetForViewer applies the read rules of the HTTP surface on top of Get:
// inactive posts are visible to their author and moderators only when asked
// for, and with state restriction on, viewers only see posts from their state.
func (s *PostService) GetForViewer(ctx context.Context, postID string, viewer *model.Actor, wantInactive bool) (*model.Post, error) {
	post, err := s.Get(ctx, postID, true)
	if err != nil {
		return nil, err
	}

	privileged := isAuthor(viewer, post) || s.IsModerator(viewer)
	if !post.Active && !(wantInactive && privileged) {
		return nil, model.ErrPostNotFound
	}

	if s.restrictToState && !privileged && post.AuthorState != nil {
		if viewer == nil {
			return nil, model.ErrUnauthenticated
		}
		if !viewer.SameState(post.AuthorState) {
			return nil, model.ErrRegionRestricted
		}
	}
	return post, nil
}

// ListActive returns active posts newest first.
func (s *PostService) ListActive(ctx context.Context, filter model.ListFilter) ([]model.Post, error) {
	if filter.Limit <= 0 {
		filter.Limit = model.DefaultListLimit
	}
	if filter.Limit > model.MaxListLimit {
		filter.Limit = model.MaxListLimit
	}
	filter.Author = strings.TrimSpace(filter.Author)

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	posts, err := s.postRepo.ListActive(sctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Search lists active posts whose hashtags match the query. The terms are
// handed to the store so the limit applies to matches, not to the newest page.
// An empty query behaves like ListActive.
func (s *PostService) Search(ctx context.Context, query string, filter model.ListFilter) ([]model.Post, error) {
	filter.Tags = hashtag.ParseQuery(query)
	posts, err := s.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	return hashtag.Search(query, posts), nil
}

func (s *PostService) Like(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error) {
	return s.vote(ctx, postID, actor, model.ActionLike)
}

func (s *PostService) Dislike(ctx context.Context, postID string, actor *model.Actor) (*model.VoteResult, error) {
	return s.vote(ctx, postID, actor, model.ActionDislike)
}

func (s *PostService) vote(ctx context.Context, postID string, actor *model.Actor, action model.VoteAction) (*model.VoteResult, error) {
	if actor == nil || strings.TrimSpace(actor.Wallet) == "" {
		return nil, model.ErrUnauthenticated
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, model.ErrPostNotFound
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	result, err := s.voteRepo.Apply(sctx, postID, actor.Wallet, action, s.policy)
	if err != nil {
		return nil, err
	}

	log.Printf("[PostService] %s post=%s actor=%s like=%d dislike=%d",
		action, postID, actor.Wallet, result.LikeCount, result.DislikeCount)

	if result.Deactivated {
		log.Printf("[PostService] Deactivated post=%s dislikes=%d threshold=%d",
			postID, result.DislikeCount, s.policy.DislikeThreshold)
		s.publish(ctx, queue.NewPostDeactivatedEvent(postID, "", nil, queue.ReasonDislikeThreshold))
	}
	return result, nil
}

// VoteState returns the actor's current vote on a post.
func (s *PostService) VoteState(ctx context.Context, postID string, actor *model.Actor) (model.VoteState, error) {
	if actor == nil || actor.Wallet == "" {
		return "", model.ErrUnauthenticated
	}
	if _, err := s.Get(ctx, postID, true); err != nil {
		return "", err
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	return s.voteRepo.GetState(sctx, strings.TrimSpace(postID), actor.Wallet)
}

// Deactivate lets the author or a moderator take a post down. It is the
// same one-way latch the dislike rule uses; repeating it is a no-op.
func (s *PostService) Deactivate(ctx context.Context, postID string, actor *model.Actor) (*model.Post, error) {
	if actor == nil || actor.Wallet == "" {
		return nil, model.ErrUnauthenticated
	}

	post, err := s.Get(ctx, postID, true)
	if err != nil {
		return nil, err
	}
	if !isAuthor(actor, post) && !s.IsModerator(actor) {
		return nil, model.ErrNotPostOwner
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	updated, changed, err := s.postRepo.Deactivate(sctx, post.PostID)
	if err != nil {
		return nil, err
	}
	if changed {
		log.Printf("[PostService] Deactivated post=%s by=%s", post.PostID, actor.Wallet)
		s.publish(ctx, queue.NewPostDeactivatedEvent(post.PostID, post.AuthorID, post.Hashtags, queue.ReasonManual))
	}
	return updated, nil
}

// publish is best-effort; the post state is already committed.
func (s *PostService) publish(ctx context.Context, event queue.PostEvent) {
	if s.publisher == nil {
		return
	}
	msgID, err := s.publisher.Publish(ctx, queue.StreamPosts, event)
	if err != nil {
		log.Printf("[PostService] Failed to publish %s event: post=%s err=%v", event.Type, event.PostID, err)
		return
	}
	log.Printf("[PostService] Published %s: post=%s msgID=%s", event.Type, event.PostID, msgID)
}
