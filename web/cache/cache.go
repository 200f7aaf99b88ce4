package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	// TTLLikeEvent bounds how long a tab that missed the socket push can still pick up an event.
	TTLLikeEvent = time.Hour

	KeyLikeEventPrefix   = "like-event:"
	KeySessionPrefix     = "session:"
	KeyUserSessionPrefix = "user-session:"
)

func LikeEventKey(slug string) string {
	return KeyLikeEventPrefix + slug
}

func userSessionPrefix(userId int) string {
	return fmt.Sprintf("%s%d:", KeyUserSessionPrefix, userId)
}

// UserSessionKey indexes a session id under the user it belongs to.
func UserSessionKey(userId int, sessionId string) string {
	return userSessionPrefix(userId) + sessionId
}

// TrackUserSession records that sessionId is signed in as userId.
func TrackUserSession(ctx context.Context, userId int, sessionId string, ttl time.Duration) error {
	return Set(ctx, UserSessionKey(userId, sessionId), 1, ttl)
}

// RevokeUserSessions deletes every tracked session of userId and the index itself.
func RevokeUserSessions(ctx context.Context, userId int) error {
	if client == nil {
		return errNotInitialized
	}
	prefix := userSessionPrefix(userId)
	var keys []string
	iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, sessionKey(strings.TrimPrefix(iter.Val(), prefix)))
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return DeletePattern(ctx, prefix+"*")
}

// GetJSON reads key and decodes it into dest. Missing keys return ErrMiss.
func GetJSON(ctx context.Context, key string, dest any) error {
	val, err := Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return Set(ctx, key, data, expiration)
}
