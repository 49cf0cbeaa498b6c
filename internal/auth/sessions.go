package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sessionKeyPrefix = "storefront:session:"

type sessionStore struct {
	client *redis.Client
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func (s *sessionStore) save(ctx context.Context, sess *Session, ttl time.Duration) error {
	key := sessionKey(sess.Token)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"user_id":    sess.UserID.String(),
			"email":      sess.Email,
			"expires_at": sess.ExpiresAt.Unix(),
		})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (s *sessionStore) load(ctx context.Context, token string) (*Session, error) {
	result, err := s.client.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrSessionNotFound
	}

	userID, err := uuid.Parse(result["user_id"])
	if err != nil {
		return nil, fmt.Errorf("load session: bad user id: %w", err)
	}

	expiresUnix, err := strconv.ParseInt(result["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("load session: bad expiry: %w", err)
	}

	return &Session{
		Token:     token,
		UserID:    userID,
		Email:     result["email"],
		ExpiresAt: time.Unix(expiresUnix, 0),
	}, nil
}

// remove reports whether a session existed.
func (s *sessionStore) remove(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}
