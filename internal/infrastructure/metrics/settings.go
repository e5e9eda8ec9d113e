package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// SettingsMetrics implements ports.SettingsMetrics with Prometheus counters.
type SettingsMetrics struct {
	lookups       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewSettingsMetrics creates the settings counters and registers them with reg.
func NewSettingsMetrics(reg prometheus.Registerer) (*SettingsMetrics, error) {
	m := &SettingsMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settings_lookups_total",
				Help: "Settings and group reads by the tier that served them",
			},
			[]string{"scope", "tier"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settings_cache_invalidations_total",
				Help: "Shared cache deletions issued by settings writes",
			},
			[]string{"scope", "ok"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.lookups, m.invalidations} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *SettingsMetrics) LookupServed(scope, tier string) {
	m.lookups.WithLabelValues(scope, tier).Inc()
}

func (m *SettingsMetrics) CacheInvalidated(scope string, ok bool) {
	m.invalidations.WithLabelValues(scope, strconv.FormatBool(ok)).Inc()
}

// Lookups exposes the lookup counter for tests and dashboards.
func (m *SettingsMetrics) Lookups() *prometheus.CounterVec {
	return m.lookups
}
