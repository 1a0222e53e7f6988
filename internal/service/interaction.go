package service

import "ghostpic/internal/model"

// InteractionPolicy is the like/dislike state machine plus the moderation latch.
// It is pure; the vote store calls it inside its transaction.
type InteractionPolicy struct {
	// DislikeThreshold deactivates a post once dislikes exceed it. 0 disables.
	DislikeThreshold int
}

func NewInteractionPolicy(threshold int) InteractionPolicy {
	return InteractionPolicy{DislikeThreshold: threshold}
}

// Decide returns the counter deltas and next state for action from current.
//
//	like:    neutral -> liked (+1 like), disliked -> liked (-1 dislike, +1 like), liked -> ErrAlreadyLiked
//	dislike: neutral -> disliked (+1 dislike), liked -> disliked (-1 like, +1 dislike), disliked -> ErrAlreadyDisliked
func (p InteractionPolicy) Decide(current model.VoteState, action model.VoteAction) (model.VoteOutcome, error) {
	if current == "" {
		current = model.VoteNeutral
	}

	switch action {
	case model.ActionLike:
		switch current {
		case model.VoteLiked:
			return model.VoteOutcome{}, model.ErrAlreadyLiked
		case model.VoteDisliked:
			return model.VoteOutcome{LikeDelta: 1, DislikeDelta: -1, Next: model.VoteLiked}, nil
		default:
			return model.VoteOutcome{LikeDelta: 1, Next: model.VoteLiked}, nil
		}
	case model.ActionDislike:
		switch current {
		case model.VoteDisliked:
			return model.VoteOutcome{}, model.ErrAlreadyDisliked
		case model.VoteLiked:
			return model.VoteOutcome{LikeDelta: -1, DislikeDelta: 1, Next: model.VoteDisliked}, nil
		default:
			return model.VoteOutcome{DislikeDelta: 1, Next: model.VoteDisliked}, nil
		}
	}
	return model.VoteOutcome{}, model.Invalid(model.ErrInvalidAction)
}

// ShouldDeactivate reports whether dislikeCount trips the latch.
func (p InteractionPolicy) ShouldDeactivate(dislikeCount int) bool {
	return p.DislikeThreshold > 0 && dislikeCount > p.DislikeThreshold
}
