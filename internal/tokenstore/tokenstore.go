// Package tokenstore backs the single-use submission tokens that protect
// against duplicate form processing. Check-and-invalidate must be a
// single atomic operation: two near-simultaneous submissions of the same
// form must not both be treated as first use.
package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/waveboard-dev/waveboard/shared/token"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(tok string) string {
	return "submit:" + tok
}

// Issue mints a token for one form instance, bound to the session that
// rendered it.
func (s *Store) Issue(ctx context.Context, sessionId string) (string, error) {
	tok, err := token.Generate()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, key(tok), sessionId, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("token store write: %w", err)
	}
	return tok, nil
}

// CheckAndInvalidate consumes the token. GETDEL makes the read and the
// invalidation one atomic operation, so a token can be first-use at most
// once. A missing, expired, or foreign-session token reports false; the
// caller must not reveal whether an earlier submission succeeded.
func (s *Store) CheckAndInvalidate(ctx context.Context, tok, sessionId string) (bool, error) {
	if tok == "" {
		return false, nil
	}
	val, err := s.rdb.GetDel(ctx, key(tok)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("token store read: %w", err)
	}
	return val == sessionId, nil
}

// Peek reports whether the token is still outstanding without consuming
// it. Previews use this so rendering a preview never spends the token.
func (s *Store) Peek(ctx context.Context, tok, sessionId string) (bool, error) {
	if tok == "" {
		return false, nil
	}
	val, err := s.rdb.Get(ctx, key(tok)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("token store read: %w", err)
	}
	return val == sessionId, nil
}
