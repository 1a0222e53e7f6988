package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ghostpic/internal/model"
)

type mongoRefreshTokenRepository struct {
	tokens *mongo.Collection
}

func NewMongoRefreshTokenRepository(db *mongo.Database) RefreshTokenRepository {
	return &mongoRefreshTokenRepository{tokens: db.Collection(collRefreshTokens)}
}

func (r *mongoRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.tokens.InsertOne(ctx, token); err != nil {
		return storeError("create refresh token", err)
	}
	return nil
}

func (r *mongoRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	if err := r.tokens.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&token); err != nil {
		return nil, notFoundOr(err, model.ErrRefreshTokenNotFound, "find refresh token")
	}
	return &token, nil
}

func (r *mongoRefreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	set := bson.M{"revoked_at": time.Now().UTC()}
	if replacedBy != nil {
		set["replaced_by"] = *replacedBy
	}
	_, err := r.tokens.UpdateOne(ctx,
		bson.M{"_id": id, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": set},
	)
	if err != nil {
		return storeError("revoke refresh token", err)
	}
	return nil
}

func (r *mongoRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.tokens.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": time.Now().UTC()}},
	)
	if err != nil {
		return storeError("revoke user tokens", err)
	}
	return nil
}

func (r *mongoRefreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().Add(-olderThan)}})
	if err != nil {
		return 0, storeError("delete expired tokens", err)
	}
	return res.DeletedCount, nil
}
