package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, EventsRecorded)
	assert.NotNil(t, TriggersRecorded)
	assert.NotNil(t, PIIRedactions)
	assert.NotNil(t, Classifications)
	assert.NotNil(t, GeoLookups)
	assert.NotNil(t, ContentFetches)
	assert.NotNil(t, ContentFetchDuration)
	assert.NotNil(t, CacheHits)
	assert.NotNil(t, CacheMisses)
	assert.NotNil(t, CacheErrors)
	assert.NotNil(t, HTTPRequestDuration)
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(PIIRedactions.WithLabelValues("email"))
	PIIRedactions.WithLabelValues("email").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(PIIRedactions.WithLabelValues("email")))
}
