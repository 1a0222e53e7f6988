package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ghostpic/internal/model"
)

type mongoVoteRepository struct {
	client *mongo.Client
	posts  *mongo.Collection
	votes  *mongo.Collection
}

// NewMongoVoteRepository applies votes inside multi-document transactions.
func NewMongoVoteRepository(db *mongo.Database) VoteRepository {
	return &mongoVoteRepository{
		client: db.Client(),
		posts:  db.Collection(collPosts),
		votes:  db.Collection(collVotes),
	}
}

func (r *mongoVoteRepository) GetState(ctx context.Context, postID, actorID string) (model.VoteState, error) {
	return r.readState(ctx, postID, actorID)
}

func (r *mongoVoteRepository) readState(ctx context.Context, postID, actorID string) (model.VoteState, error) {
	var vote model.Vote
	err := r.votes.FindOne(ctx, bson.M{"post_id": postID, "actor_id": actorID}).Decode(&vote)
	if err == mongo.ErrNoDocuments {
		return model.VoteNeutral, nil
	}
	if err != nil {
		return "", storeError("read vote", err)
	}
	return vote.Kind, nil
}

// Apply mirrors the Postgres transaction. Concurrent writers on the same post
// document hit a write conflict and WithTransaction retries them.
func (r *mongoVoteRepository) Apply(ctx context.Context, postID, actorID string, action model.VoteAction, policy VotePolicy) (*model.VoteResult, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, storeError("start session", err)
	}
	defer session.EndSession(ctx)

	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.applyInTxn(sc, postID, actorID, action, policy)
	})
	if err != nil {
		return nil, err
	}
	return out.(*model.VoteResult), nil
}

func (r *mongoVoteRepository) applyInTxn(sc mongo.SessionContext, postID, actorID string, action model.VoteAction, policy VotePolicy) (*model.VoteResult, error) {
	var exists struct {
		Active bool `bson:"active"`
	}
	if err := r.posts.FindOne(sc, bson.M{"post_id": postID}).Decode(&exists); err != nil {
		return nil, notFoundOr(err, model.ErrPostNotFound, "read post")
	}

	current, err := r.readState(sc, postID, actorID)
	if err != nil {
		return nil, err
	}

	outcome, err := policy.Decide(current, action)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = r.votes.UpdateOne(sc,
		bson.M{"post_id": postID, "actor_id": actorID},
		bson.M{
			"$set":         bson.M{"kind": outcome.Next, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, storeError("upsert vote", err)
	}

	var post model.Post
	err = r.posts.FindOneAndUpdate(sc,
		bson.M{"post_id": postID},
		bson.M{"$inc": bson.M{"like_count": outcome.LikeDelta, "dislike_count": outcome.DislikeDelta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		return nil, notFoundOr(err, model.ErrPostNotFound, "update counters")
	}

	result := &model.VoteResult{
		PostID:       postID,
		LikeCount:    post.LikeCount,
		DislikeCount: post.DislikeCount,
		Active:       post.Active,
		Vote:         outcome.Next,
	}

	if outcome.DislikeDelta > 0 && post.Active && policy.ShouldDeactivate(post.DislikeCount) {
		_, err := r.posts.UpdateOne(sc,
			bson.M{"post_id": postID},
			bson.M{"$set": bson.M{"active": false, "deactivated_at": now}},
		)
		if err != nil {
			return nil, storeError("deactivate post", err)
		}
		result.Active = false
		result.Deactivated = true
	}

	return result, nil
}
