package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"dhikr/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteContentCache_MissThenHit(t *testing.T) {
	cache := NewSQLiteContentCache(setupTestSQLite(t), zap.NewNop().Sugar())
	ctx := context.Background()

	got, err := cache.Get(ctx, "103:1-3", "en")
	require.NoError(t, err)
	assert.Nil(t, got)

	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Upsert(ctx, core.CachedContent{
		Reference:   "103:1-3",
		Lang:        "en",
		VerseText:   "وَالْعَصْرِ",
		Translation: "By time",
		AudioURL:    "https://audio.example/103_1.mp3",
		FetchedAt:   fetched,
	}))

	got, err = cache.Get(ctx, "103:1-3", "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "وَالْعَصْرِ", got.VerseText)
	assert.Equal(t, "By time", got.Translation)
	assert.True(t, fetched.Equal(got.FetchedAt))

	// Same reference in another language is a separate entry
	other, err := cache.Get(ctx, "103:1-3", "ar")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestSQLiteContentCache_UpsertReplaces(t *testing.T) {
	cache := NewSQLiteContentCache(setupTestSQLite(t), zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, cache.Upsert(ctx, core.CachedContent{Reference: "2:286", Lang: "en", Translation: "old"}))
	require.NoError(t, cache.Upsert(ctx, core.CachedContent{Reference: "2:286", Lang: "en", Translation: "new"}))

	got, err := cache.Get(ctx, "2:286", "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Translation)

	n, err := cache.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteContentCache_ConcurrentUpsertsSameKey(t *testing.T) {
	cache := NewSQLiteContentCache(setupTestSQLite(t), zap.NewNop().Sugar())
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- cache.Upsert(ctx, core.CachedContent{
				Reference:   "24:30",
				Lang:        "en",
				Translation: fmt.Sprintf("writer %d", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	n, err := cache.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
