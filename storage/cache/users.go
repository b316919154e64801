package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const UserPostCountsRedisKey = "users_post_count"
const UserHandlesRedisKey = "users_handle"

// Users caches per-user post counters and handle lookups in Redis hashes.
type Users struct {
	redisClient *redis.Client
	expiration  time.Duration
}

func NewUsers(redisConnection *redis.Client, expiration time.Duration) *Users {
	return &Users{
		redisClient: redisConnection,
		expiration:  expiration,
	}
}

func (c *Users) AddPost(userID string) {
	ctx := context.Background()
	c.redisClient.HIncrBy(ctx, UserPostCountsRedisKey, userID, 1)
	c.redisClient.HExpire(ctx, UserPostCountsRedisKey, c.expiration, userID)
}

func (c *Users) GetPostCount(userID string) int64 {
	countStr, err := c.redisClient.HGet(
		context.Background(),
		UserPostCountsRedisKey,
		userID,
	).Result()
	if err != nil {
		return 0
	}
	count, _ := strconv.ParseInt(countStr, 10, 64)
	return count
}

func (c *Users) SetPostCount(userID string, count int64) {
	ctx := context.Background()
	c.redisClient.HSet(ctx, UserPostCountsRedisKey, userID, strconv.FormatInt(count, 10))
	c.redisClient.HExpire(ctx, UserPostCountsRedisKey, c.expiration, userID)
}

func (c *Users) SetHandle(userID, handle string) {
	c.hSetWithExpiration(UserHandlesRedisKey, userID, handle)
}

func (c *Users) GetHandle(userID string) (string, bool) {
	handle, err := c.redisClient.HGet(
		context.Background(),
		UserHandlesRedisKey,
		userID,
	).Result()
	if err != nil {
		return "", false
	}
	return handle, true
}

func (c *Users) hSetWithExpiration(redisKey, key, value string) {
	ctx := context.Background()
	c.redisClient.HSet(ctx, redisKey, key, value)
	c.redisClient.HExpire(ctx, redisKey, c.expiration, key)
}
