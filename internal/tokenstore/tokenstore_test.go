package tokenstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, time.Hour), mr
}

func TestIssueAndConsume(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "sess-1")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	ok, err := s.CheckAndInvalidate(ctx, tok, "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Reuse is rejected.
	ok, err = s.CheckAndInvalidate(ctx, tok, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWrongSessionRejected(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "sess-1")
	require.NoError(t, err)

	ok, err := s.CheckAndInvalidate(ctx, tok, "sess-2")
	require.NoError(t, err)
	assert.False(t, ok)

	// The mismatched attempt still consumed the token, so the holder of
	// the right session cannot replay it either.
	ok, err = s.CheckAndInvalidate(ctx, tok, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownAndEmptyTokens(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	ok, err := s.CheckAndInvalidate(ctx, "nope", "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CheckAndInvalidate(ctx, "", "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPeekDoesNotConsume(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "sess-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := s.Peek(ctx, tok, "sess-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := s.CheckAndInvalidate(ctx, tok, "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpiredTokenRejected(t *testing.T) {
	s, mr := setup(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "sess-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	ok, err := s.CheckAndInvalidate(ctx, tok, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentDoubleSubmitConsumesOnce(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "sess-1")
	require.NoError(t, err)

	var firstUses int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CheckAndInvalidate(ctx, tok, "sess-1")
			require.NoError(t, err)
			if ok {
				atomic.AddInt64(&firstUses, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), firstUses, "exactly one submission may be treated as first use")
}
