package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"dhikr/core"
	"dhikr/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockTriggerStore struct {
	mock.Mock
}

func (m *MockTriggerStore) InsertTrigger(ctx context.Context, record *core.TriggerRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func TestTriggerService_RecordTrigger(t *testing.T) {
	store := new(MockTriggerStore)
	svc := NewTriggerService(store, []string{"distraction", "waste"}, zap.NewNop().Sugar())
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	store.On("InsertTrigger", ctx, mock.MatchedBy(func(r *core.TriggerRecord) bool {
		return r.Domain == "reddit.com" && r.Path == "/r/all" && r.CategoryKey == "distraction" && r.CreatedAt.Equal(testNow)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*core.TriggerRecord).ID = 7
	}).Return(nil)

	record, err := svc.RecordTrigger(ctx, TriggerInput{Domain: "reddit.com", Path: "/r/all", CategoryKey: "distraction", DurationSeconds: 90})
	require.NoError(t, err)
	assert.Equal(t, int64(7), record.ID)
	assert.Equal(t, 90, record.DurationSeconds)
	store.AssertExpectations(t)
}

func TestTriggerService_RecordTrigger_Validation(t *testing.T) {
	store := new(MockTriggerStore)
	svc := NewTriggerService(store, []string{"distraction", "waste"}, zap.NewNop().Sugar())

	tests := []TriggerInput{
		{CategoryKey: "waste"},
		{Domain: "a.com"},
		{Domain: "a.com", CategoryKey: "waste", DurationSeconds: -1},
		{Domain: "a.com", CategoryKey: "waste", DurationSeconds: core.MaxDurationSeconds + 1},
		{Domain: "a.com", CategoryKey: "waste", DurationSeconds: math.MaxInt64/2 + 1},
	}
	for _, in := range tests {
		_, err := svc.RecordTrigger(context.Background(), in)
		assert.True(t, errors.Is(err, ErrInvalidEvent))
	}
	store.AssertNotCalled(t, "InsertTrigger", mock.Anything, mock.Anything)
}

func TestTriggerService_UnknownCategoriesShareOneSeries(t *testing.T) {
	store := new(MockTriggerStore)
	store.On("InsertTrigger", mock.Anything, mock.Anything).Return(nil)
	svc := NewTriggerService(store, []string{"waste"}, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := svc.RecordTrigger(ctx, TriggerInput{Domain: "a.com", CategoryKey: "waste"})
	require.NoError(t, err)
	_, err = svc.RecordTrigger(ctx, TriggerInput{Domain: "a.com", CategoryKey: "made-up-0"})
	require.NoError(t, err)
	series := testutil.CollectAndCount(metrics.TriggersRecorded)

	before := testutil.ToFloat64(metrics.TriggersRecorded.WithLabelValues(otherCategoryLabel))
	for _, category := range []string{"made-up-1", "made-up-2", "made-up-3"} {
		record, err := svc.RecordTrigger(ctx, TriggerInput{Domain: "a.com", CategoryKey: category})
		require.NoError(t, err)
		assert.Equal(t, category, record.CategoryKey)
	}

	assert.Equal(t, series, testutil.CollectAndCount(metrics.TriggersRecorded))
	assert.Equal(t, before+3, testutil.ToFloat64(metrics.TriggersRecorded.WithLabelValues(otherCategoryLabel)))
}
