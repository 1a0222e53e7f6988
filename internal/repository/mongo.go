package repository

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names for the document store.
const (
	collPosts         = "posts"
	collVotes         = "post_votes"
	collUsers         = "users"
	collRefreshTokens = "refresh_tokens"
	collCounters      = "counters"
)

// Index names double as the constraint names reported in duplicate-key errors.
const (
	indexPostID        = "posts_post_id_key"
	indexPostsActive   = "posts_active_created_idx"
	indexVotePostActor = "post_votes_post_actor_key"
	indexWallet        = "users_wallet_address_key"
	indexUsername      = "users_username_key"
	indexNullifier     = "users_nullifier_key"
	indexUserUID       = "users_uid_key"
	indexTokenHash     = "refresh_tokens_token_hash_key"
)

// EnsureMongoIndexes creates the unique and listing indexes. Safe to call on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		collPosts: {
			{Keys: bson.D{{Key: "post_id", Value: 1}}, Options: options.Index().SetName(indexPostID).SetUnique(true)},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName(indexPostsActive)},
		},
		collVotes: {
			{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "actor_id", Value: 1}}, Options: options.Index().SetName(indexVotePostActor).SetUnique(true)},
		},
		collUsers: {
			{Keys: bson.D{{Key: "wallet_address", Value: 1}}, Options: options.Index().SetName(indexWallet).SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName(indexUsername).SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "nullifier", Value: 1}}, Options: options.Index().SetName(indexNullifier).SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: options.Index().SetName(indexUserUID).SetUnique(true)},
		},
		collRefreshTokens: {
			{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetName(indexTokenHash).SetUnique(true)},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// duplicateIndex reports which unique index a write violated.
func duplicateIndex(err error) (string, bool) {
	if !mongo.IsDuplicateKeyError(err) {
		return "", false
	}
	for _, name := range []string{indexPostID, indexVotePostActor, indexWallet, indexUsername, indexNullifier, indexUserUID, indexTokenHash} {
		if strings.Contains(err.Error(), name) {
			return name, true
		}
	}
	return "", true
}

// nextSequence hands out monotonically increasing numeric ids per name.
func nextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := db.Collection(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, storeError("next "+name+" id", err)
	}
	return doc.Seq, nil
}

func notFoundOr(err error, notFound error, op string) error {
	if err == mongo.ErrNoDocuments {
		return notFound
	}
	return storeError(op, err)
}
