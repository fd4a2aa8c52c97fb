package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dhikr/config"
	"dhikr/core"
	"dhikr/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockReminderProvider struct {
	mock.Mock
}

func (m *MockReminderProvider) GetReminder(ctx context.Context, domain, path, lang string) (*service.Reminder, error) {
	args := m.Called(ctx, domain, path, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Reminder), args.Error(1)
}

func (m *MockReminderProvider) GetVerse(ctx context.Context, reference, lang string) (*core.Content, error) {
	args := m.Called(ctx, reference, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.Content), args.Error(1)
}

func (m *MockReminderProvider) ListRules(ctx context.Context) ([]core.Rule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.Rule), args.Error(1)
}

type MockAnalyticsRecorder struct {
	mock.Mock
}

func (m *MockAnalyticsRecorder) RecordEvent(ctx context.Context, in service.EventInput) (*core.AnonymizedEvent, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.AnonymizedEvent), args.Error(1)
}

func (m *MockAnalyticsRecorder) Summary(ctx context.Context, period string) ([]core.CategorySummary, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.CategorySummary), args.Error(1)
}

type MockTriggerRecorder struct {
	mock.Mock
}

func (m *MockTriggerRecorder) RecordTrigger(ctx context.Context, in service.TriggerInput) (*core.TriggerRecord, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.TriggerRecord), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type testAPI struct {
	api       *API
	reminders *MockReminderProvider
	analytics *MockAnalyticsRecorder
	triggers  *MockTriggerRecorder
	health    *MockHealthChecker
}

func newTestAPIConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.Port = 8000
	cfg.API.AllowedOriginPatterns = []string{config.DefaultAllowedOriginPattern}
	cfg.API.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}
	return cfg
}

func setupTestAPI(t *testing.T, cfg *config.Config) *testAPI {
	t.Helper()
	if cfg == nil {
		cfg = newTestAPIConfig()
	}

	ta := &testAPI{
		reminders: new(MockReminderProvider),
		analytics: new(MockAnalyticsRecorder),
		triggers:  new(MockTriggerRecorder),
		health:    new(MockHealthChecker),
	}
	a, err := NewAPI(ta.reminders, ta.analytics, ta.triggers, ta.health, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	ta.api = a
	return ta
}

func (ta *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.api.Handler().ServeHTTP(rec, req)
	return rec
}

// decodeEnvelope decodes a response envelope with data left as generic JSON
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (Response, map[string]interface{}) {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	data, _ := resp.Data.(map[string]interface{})
	return resp, data
}

func TestNewAPI_RejectsBadOriginPattern(t *testing.T) {
	cfg := newTestAPIConfig()
	cfg.API.AllowedOriginPatterns = []string{"("}

	_, err := NewAPI(new(MockReminderProvider), new(MockAnalyticsRecorder), new(MockTriggerRecorder), nil, cfg, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestNewAPI_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = NewAPI(nil, new(MockAnalyticsRecorder), new(MockTriggerRecorder), nil, newTestAPIConfig(), zap.NewNop().Sugar())
	})
	assert.Panics(t, func() {
		_, _ = NewAPI(new(MockReminderProvider), new(MockAnalyticsRecorder), new(MockTriggerRecorder), nil, nil, zap.NewNop().Sugar())
	})
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	ta := setupTestAPI(t, nil)

	rec := ta.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp, _ := decodeEnvelope(t, rec)
	assert.Equal(t, "error", resp.Status)

	rec = ta.do(httptest.NewRequest(http.MethodDelete, "/rules", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	ta := setupTestAPI(t, nil)
	ta.reminders.On("ListRules", mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil, nil)

	rec := ta.do(httptest.NewRequest(http.MethodGet, "/rules", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp, _ := decodeEnvelope(t, rec)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Internal server error", resp.Message)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ta := setupTestAPI(t, nil)

	rec := ta.do(httptest.NewRequest(http.MethodGet, "/privacy", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/privacy", nil)
	req.Header.Set("X-Request-ID", "5f0c6e0e-3f55-4a4f-9d0e-0c4b7f5e2a11")
	rec = ta.do(req)
	assert.Equal(t, "5f0c6e0e-3f55-4a4f-9d0e-0c4b7f5e2a11", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/privacy", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid\nforged")
	rec = ta.do(req)
	assert.NotEqual(t, "not-a-uuid\nforged", rec.Header().Get("X-Request-ID"))
}
