package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"ghostpic/internal/model"
)

const (
	// TrendingKey is the sorted set of hashtag -> number of active posts using it.
	TrendingKey = "hashtags:trending"

	// DefaultTrendingLimit is how many hashtags Top returns when limit <= 0.
	DefaultTrendingLimit = 20

	// MaxTrendingLimit bounds a single Top call.
	MaxTrendingLimit = 100
)

// TrendingCache keeps a count of active posts per hashtag.
type TrendingCache interface {
	// Add counts one more active post for each distinct tag.
	Add(ctx context.Context, tags []string) error

	// Remove counts one fewer active post for each distinct tag and drops
	// tags that fall to zero.
	Remove(ctx context.Context, tags []string) error

	// Top returns the most used tags, highest count first.
	Top(ctx context.Context, limit int) ([]model.TrendingHashtag, error)
}

// RedisTrendingCache implements TrendingCache using a Redis sorted set.
type RedisTrendingCache struct {
	client *redis.Client
	key    string
}

// NewTrendingCache creates a TrendingCache backed by Redis.
func NewTrendingCache(client *redis.Client) TrendingCache {
	return &RedisTrendingCache{client: client, key: TrendingKey}
}

// distinct drops repeated tags so a post never counts twice for one tag.
func distinct(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Add pipelines one ZINCRBY per tag.
func (c *RedisTrendingCache) Add(ctx context.Context, tags []string) error {
	tags = distinct(tags)
	if len(tags) == 0 {
		return nil
	}
	startTime := time.Now()

	pipe := c.client.Pipeline()
	for _, tag := range tags {
		pipe.ZIncrBy(ctx, c.key, 1, tag)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[TrendingCache] Add FAILED: tags=%v err=%v", tags, err)
		return fmt.Errorf("add trending tags: %w", err)
	}

	log.Printf("[TrendingCache] Add OK: tags=%v duration=%v", tags, time.Since(startTime))
	return nil
}

// Remove decrements then trims members whose score dropped to zero or below.
func (c *RedisTrendingCache) Remove(ctx context.Context, tags []string) error {
	tags = distinct(tags)
	if len(tags) == 0 {
		return nil
	}
	startTime := time.Now()

	pipe := c.client.Pipeline()
	for _, tag := range tags {
		pipe.ZIncrBy(ctx, c.key, -1, tag)
	}
	pipe.ZRemRangeByScore(ctx, c.key, "-inf", "0")
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[TrendingCache] Remove FAILED: tags=%v err=%v", tags, err)
		return fmt.Errorf("remove trending tags: %w", err)
	}

	log.Printf("[TrendingCache] Remove OK: tags=%v duration=%v", tags, time.Since(startTime))
	return nil
}

// Top reads the highest scores with ZREVRANGE ... WITHSCORES.
func (c *RedisTrendingCache) Top(ctx context.Context, limit int) ([]model.TrendingHashtag, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if limit > MaxTrendingLimit {
		limit = MaxTrendingLimit
	}

	results, err := c.client.ZRevRangeWithScores(ctx, c.key, 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("[TrendingCache] Top FAILED: limit=%d err=%v", limit, err)
		return nil, fmt.Errorf("get trending tags: %w", err)
	}

	out := make([]model.TrendingHashtag, 0, len(results))
	for _, z := range results {
		tag, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, model.TrendingHashtag{Tag: tag, Count: int64(z.Score)})
	}
	return out, nil
}
