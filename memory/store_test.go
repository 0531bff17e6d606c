package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finchbot/finch/memory"
)

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	store, err := memory.Open(memory.Config{
		Path:     ":memory:",
		PoolSize: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "100", "first"))
	require.NoError(t, store.Record(ctx, "101", "second"))
	require.NoError(t, store.Record(ctx, "102", "third"))

	posts, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "102", posts[0].TweetID)
	require.Equal(t, "third", posts[0].Text)
	require.Equal(t, "101", posts[1].TweetID)
	require.False(t, posts[0].CreatedAt.IsZero())
}

func TestRecentEmpty(t *testing.T) {
	store := newTestStore(t)

	posts, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, posts)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := memory.Open(memory.Config{})
	require.Error(t, err)
}
