package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semdedup/errors"
)

func TestRegisterAndUnregister(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dedup_pairs_scored_total",
		Help: "Total candidate pairs scored",
	})

	require.NoError(t, registry.RegisterCounter("scorer", "dedup_pairs_scored_total", counter))

	// Duplicate registration is rejected as invalid.
	err := registry.RegisterCounter("scorer", "dedup_pairs_scored_total", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	assert.True(t, registry.Unregister("scorer", "dedup_pairs_scored_total"))
	assert.False(t, registry.Unregister("scorer", "dedup_pairs_scored_total"))

	// Re-registration succeeds after unregister.
	require.NoError(t, registry.RegisterCounter("scorer", "dedup_pairs_scored_total", counter))
}

func TestHandlerServesMetrics(t *testing.T) {
	registry := NewRegistry()
	assert.NotNil(t, registry.Handler())
	assert.NotNil(t, registry.PrometheusRegistry())
}
