package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ghostpic/internal/model"
)

type mongoPostRepository struct {
	posts *mongo.Collection
}

// NewMongoPostRepository stores posts in the "posts" collection.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{posts: db.Collection(collPosts)}
}

func (r *mongoPostRepository) Create(ctx context.Context, post *model.Post) error {
	post.LikeCount = 0
	post.DislikeCount = 0
	post.Active = true
	post.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}

	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		if index, ok := duplicateIndex(err); ok && index == indexPostID {
			return model.ErrPostIDTaken
		}
		return storeError("insert post", err)
	}
	return nil
}

func (r *mongoPostRepository) GetByPostID(ctx context.Context, postID string) (*model.Post, error) {
	var post model.Post
	if err := r.posts.FindOne(ctx, bson.M{"post_id": postID}).Decode(&post); err != nil {
		return nil, notFoundOr(err, model.ErrPostNotFound, "get post")
	}
	return &post, nil
}

func (r *mongoPostRepository) ListActive(ctx context.Context, filter model.ListFilter) ([]model.Post, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = model.DefaultListLimit
	}

	query := bson.M{"active": true}
	if filter.Author != "" {
		query["author_id"] = filter.Author
	}
	if len(filter.Tags) > 0 {
		prefixes := make([]interface{}, 0, len(filter.Tags))
		for _, term := range filter.Tags {
			prefixes = append(prefixes, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(term), Options: "i"})
		}
		query["hashtags"] = bson.M{"$in": prefixes}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.posts.Find(ctx, query, opts)
	if err != nil {
		return nil, storeError("list active posts", err)
	}
	defer cursor.Close(ctx)

	posts := []model.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, storeError("decode posts", err)
	}
	return posts, nil
}

func (r *mongoPostRepository) Deactivate(ctx context.Context, postID string) (*model.Post, bool, error) {
	var post model.Post
	err := r.posts.FindOneAndUpdate(ctx,
		bson.M{"post_id": postID, "active": true},
		bson.M{"$set": bson.M{"active": false, "deactivated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err == nil {
		return &post, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, storeError("deactivate post", err)
	}

	existing, err := r.GetByPostID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
