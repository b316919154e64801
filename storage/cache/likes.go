package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const LikeCountsRedisKey = "posts_like_count"

// LikeCounts keeps a best-effort per-post like counter in a Redis hash.
// It is display data, never authoritative; the reconciler task corrects
// drift from the store.
type LikeCounts struct {
	redisClient *redis.Client
	expiration  time.Duration
}

func NewLikeCounts(redisConnection *redis.Client, expiration time.Duration) *LikeCounts {
	return &LikeCounts{
		redisClient: redisConnection,
		expiration:  expiration,
	}
}

func (c *LikeCounts) AddLike(postID string) {
	ctx := context.Background()
	c.redisClient.HIncrBy(ctx, LikeCountsRedisKey, postID, 1)
	c.redisClient.HExpire(ctx, LikeCountsRedisKey, c.expiration, postID)
}

func (c *LikeCounts) RemoveLike(postID string) {
	c.redisClient.HIncrBy(context.Background(), LikeCountsRedisKey, postID, -1)
}

func (c *LikeCounts) Get(postID string) int64 {
	countStr, err := c.redisClient.HGet(
		context.Background(),
		LikeCountsRedisKey,
		postID,
	).Result()
	if err != nil {
		return 0
	}
	count, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		log.Errorf("Could not convert value to int: %v", err)
	}
	return count
}

func (c *LikeCounts) Set(postID string, count int64) {
	ctx := context.Background()
	c.redisClient.HSet(ctx, LikeCountsRedisKey, postID, strconv.FormatInt(count, 10))
	c.redisClient.HExpire(ctx, LikeCountsRedisKey, c.expiration, postID)
}
