package storage

import (
	"context"
	"testing"
	"time"

	"dhikr/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteTriggerStorage_InsertAndList(t *testing.T) {
	store := NewSQLiteTriggerStorage(setupTestSQLite(t), zap.NewNop().Sugar())
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	first := &core.TriggerRecord{Domain: "youtube.com", Path: "/shorts", CategoryKey: "waste", DurationSeconds: 120, CreatedAt: base}
	second := &core.TriggerRecord{Domain: "x.com", CategoryKey: "distraction", DurationSeconds: 30, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, store.InsertTrigger(ctx, first))
	require.NoError(t, store.InsertTrigger(ctx, second))
	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	records, err := store.ListTriggers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "x.com", records[0].Domain, "newest first")
	assert.Equal(t, "", records[0].Path)
	assert.Equal(t, "/shorts", records[1].Path)
	assert.Equal(t, 120, records[1].DurationSeconds)

	records, err = store.ListTriggers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteTriggerStorage_RejectsOversizedDuration(t *testing.T) {
	store := NewSQLiteTriggerStorage(setupTestSQLite(t), zap.NewNop().Sugar())

	record := &core.TriggerRecord{Domain: "youtube.com", CategoryKey: "waste", DurationSeconds: core.MaxDurationSeconds + 1, CreatedAt: time.Now().UTC()}
	err := store.InsertTrigger(context.Background(), record)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Zero(t, record.ID)
}
