package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ghostpic/internal/model"
)

type mongoUserRepository struct {
	db    *mongo.Database
	users *mongo.Collection
}

// NewMongoUserRepository keeps users in the "users" collection with numeric ids from "counters".
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{db: db, users: db.Collection(collUsers)}
}

func indexToConstraint(index string) string {
	switch index {
	case indexWallet:
		return constraintWallet
	case indexUsername:
		return constraintUsername
	case indexNullifier:
		return constraintNullifier
	}
	return ""
}

func (r *mongoUserRepository) Create(ctx context.Context, u *model.User) error {
	id, err := nextSequence(ctx, r.db, collUsers)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if index, ok := duplicateIndex(err); ok {
			return userConflict(indexToConstraint(index))
		}
		return storeError("insert user", err)
	}
	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, op string, filter bson.M) (*model.User, error) {
	var u model.User
	if err := r.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFoundOr(err, model.ErrUserNotFound, op)
	}
	return &u, nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "get user by id", bson.M{"uid": id})
}

func (r *mongoUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "get user by username", bson.M{"username": username})
}

func (r *mongoUserRepository) GetByWallet(ctx context.Context, wallet string) (*model.User, error) {
	return r.findOne(ctx, "get user by wallet", bson.M{"wallet_address": wallet})
}

func (r *mongoUserRepository) exists(ctx context.Context, op string, filter bson.M) (bool, error) {
	n, err := r.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, storeError(op, err)
	}
	return n > 0, nil
}

func (r *mongoUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "check username", bson.M{"username": username})
}

func (r *mongoUserRepository) ExistsByNullifier(ctx context.Context, nullifier string) (bool, error) {
	return r.exists(ctx, "check nullifier", bson.M{"nullifier": nullifier})
}

// UpsertWallet needs a numeric id for new wallets, so it reserves one up front.
// A reserved id that loses the race to an existing document is simply skipped.
func (r *mongoUserRepository) UpsertWallet(ctx context.Context, wallet, userID, txHash string) (*model.User, error) {
	id, err := nextSequence(ctx, r.db, collUsers)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var u model.User
	err = r.users.FindOneAndUpdate(ctx,
		bson.M{"wallet_address": wallet},
		bson.M{
			"$set":         bson.M{"user_id": userID, "tx_hash": txHash, "updated_at": now},
			"$setOnInsert": bson.M{"uid": id, "created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, storeError("upsert wallet user", err)
	}
	return &u, nil
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if req.Bio != nil {
		set["bio"] = *req.Bio
	}
	if req.Gender != nil {
		set["gender"] = *req.Gender
	}
	if req.State != nil {
		set["state"] = *req.State
	}

	var u model.User
	err := r.users.FindOneAndUpdate(ctx,
		bson.M{"uid": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, notFoundOr(err, model.ErrUserNotFound, "update profile")
	}
	return &u, nil
}

func (r *mongoUserRepository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.users.UpdateOne(ctx, bson.M{"uid": id}, bson.M{"$set": bson.M{"last_login_at": time.Now().UTC()}})
	if err != nil {
		return storeError("touch last login", err)
	}
	return nil
}
