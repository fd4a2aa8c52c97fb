package storage

import (
	"context"
	"testing"
	"time"

	"dhikr/core"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedisCache(t *testing.T) (*RedisContentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := NewRedisContentCache(mr.Addr(), "", 0, 5, "", zap.NewNop().Sugar())
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedisContentCache_MissThenHit(t *testing.T) {
	cache, mr := setupRedisCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	got, err := cache.Get(ctx, "23:5", "en")
	require.NoError(t, err)
	assert.Nil(t, got)

	fetched := time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, cache.Upsert(ctx, core.CachedContent{
		Reference:   "23:5",
		Lang:        "en",
		VerseText:   "وَالَّذِينَ هُمْ لِفُرُوجِهِمْ حَافِظُونَ",
		Translation: "And who guard their chastity",
		FetchedAt:   fetched,
	}))
	assert.True(t, mr.Exists("dhikr:content:en:23:5"))
	assert.Zero(t, mr.TTL("dhikr:content:en:23:5"), "entries do not expire")

	got, err = cache.Get(ctx, "23:5", "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "And who guard their chastity", got.Translation)
	assert.True(t, fetched.Equal(got.FetchedAt))
}

func TestRedisContentCache_UndecodableEntryIsMiss(t *testing.T) {
	cache, mr := setupRedisCache(t)
	require.NoError(t, mr.Set("dhikr:content:en:1:1", "not msgpack \xc1"))

	got, err := cache.Get(context.Background(), "1:1", "en")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisContentCache_ServerDown(t *testing.T) {
	cache, mr := setupRedisCache(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "1:1", "en")
	assert.Error(t, err)
	assert.Error(t, cache.Upsert(context.Background(), core.CachedContent{Reference: "1:1", Lang: "en"}))
}

func TestRedisContentCache_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisContentCache(mr.Addr(), "", 0, 5, "test:", zap.NewNop().Sugar())
	defer cache.Close()

	require.NoError(t, cache.Upsert(context.Background(), core.CachedContent{Reference: "2:286", Lang: "ar"}))
	assert.True(t, mr.Exists("test:ar:2:286"))
}
