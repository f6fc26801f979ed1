// Package metrics holds the Prometheus collectors for account operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation labels.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpRefresh        = "refresh"
	OpLogout         = "logout"
	OpChangePassword = "change_password"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is the set of account service collectors.  A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	AuthOperations *prometheus.CounterVec
	RefreshReuse   prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegisterer(reg)
}

// NewWithRegisterer creates the collectors and registers them on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripmate_auth_operations_total",
				Help: "Total number of account operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		RefreshReuse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_refresh_reuse_total",
			Help: "Refresh tokens presented after they had been rotated out or cleared",
		}),
	}
	reg.MustRegister(m.AuthOperations, m.RefreshReuse)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Record counts one operation.  err == nil is a success.
func (m *Metrics) Record(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordRefreshReuse counts a stale refresh token.
func (m *Metrics) RecordRefreshReuse() {
	if m == nil {
		return
	}
	m.RefreshReuse.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
