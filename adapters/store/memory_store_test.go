package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreInvalidation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore().(*MemoryStore)
	s.now = func() time.Time { return now }

	invalidated, err := s.IsTokenInvalidated(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, s.InvalidateToken(ctx, "token-1", time.Minute))
	invalidated, err = s.IsTokenInvalidated(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, invalidated)

	// A shorter invalidation does not shorten the existing one
	require.NoError(t, s.InvalidateToken(ctx, "token-1", time.Second))
	now = now.Add(30 * time.Second)
	invalidated, err = s.IsTokenInvalidated(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, invalidated)

	now = now.Add(time.Minute)
	invalidated, err = s.IsTokenInvalidated(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, invalidated)
	assert.Empty(t, s.invalidatedTokens)
}
