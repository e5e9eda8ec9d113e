package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/settings-store/internal/infrastructure/metrics"
)

func TestSettingsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewSettingsMetrics(reg)
	require.NoError(t, err)

	m.LookupServed("setting", "memo")
	m.LookupServed("setting", "memo")
	m.LookupServed("group", "store")
	m.CacheInvalidated("setting", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Lookups().WithLabelValues("setting", "memo")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Lookups().WithLabelValues("group", "store")))

	n, err := testutil.GatherAndCount(reg, "settings_cache_invalidations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = metrics.NewSettingsMetrics(reg)
	assert.Error(t, err, "registering twice conflicts")
}

func TestSettingsMetrics_NilRegisterer(t *testing.T) {
	m, err := metrics.NewSettingsMetrics(nil)
	require.NoError(t, err)
	m.LookupServed("setting", "cache")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Lookups().WithLabelValues("setting", "cache")))
}
