// Package cache wraps the redis client used for sessions and the latest like event per post.
// With no address configured it runs an embedded miniredis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/postscript-blog/postscript/logger"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned when a key does not exist.
	ErrMiss = errors.New("cache: key not found")

	errNotInitialized = errors.New("cache: redis client not initialized")
)

var (
	client    *redis.Client
	miniRedis *miniredis.Miniredis
)

// options accepts either host:port or a redis:// URL carrying password and db.
func options(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects to addr, or starts an embedded server when it is empty.
func InitRedis(addr string) error {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("failed to start embedded Redis: %w", err)
		}
		miniRedis = mr
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger.Info("Embedded Redis started on", mr.Addr())
		return nil
	}

	opts, err := options(addr)
	if err != nil {
		return fmt.Errorf("invalid Redis address: %w", err)
	}
	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	client = c
	logger.Info("Connected to external Redis at", opts.Addr)
	return nil
}

func GetClient() *redis.Client {
	return client
}

func IsEmbedded() bool {
	return miniRedis != nil
}

// Close closes the client and stops the embedded server if one is running.
func Close() error {
	var err error
	if client != nil {
		err = client.Close()
		client = nil
	}
	if miniRedis != nil {
		miniRedis.Close()
		miniRedis = nil
	}
	return err
}

func Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if client == nil {
		return errNotInitialized
	}
	return client.Set(ctx, key, value, expiration).Err()
}

func Get(ctx context.Context, key string) (string, error) {
	if client == nil {
		return "", errNotInitialized
	}
	result, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return result, err
}

func Delete(ctx context.Context, key string) error {
	if client == nil {
		return errNotInitialized
	}
	return client.Del(ctx, key).Err()
}

// DeletePattern removes all keys matching a glob pattern.
func DeletePattern(ctx context.Context, pattern string) error {
	if client == nil {
		return errNotInitialized
	}
	var keys []string
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}
