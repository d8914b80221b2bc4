// Package metrics holds the Prometheus instruments shared across the intake
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup labels for LookupFailuresTotal.
const (
	LookupIdentity = "identity"
	LookupPicklist = "picklist"
	LookupGeocode  = "geocode"
)

var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_active_sessions",
			Help: "Number of form sessions currently held in memory.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_session_evict_total",
			Help: "Cumulative number of form sessions evicted from memory.",
		})

	AccessDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_access_denied_total",
			Help: "Form mounts rejected for a missing lead identifier.",
		})

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Submission attempts by outcome (created, failed, invalid).",
		}, []string{"outcome"})

	LookupFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_lookup_failures_total",
			Help: "Non-fatal external lookup failures by lookup kind.",
		}, []string{"lookup"})

	PicklistCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_picklist_cache_hits_total",
			Help: "Picklist lookups served from the in-process cache.",
		})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		SessionEvictTotal,
		AccessDeniedTotal,
		SubmissionsTotal,
		LookupFailuresTotal,
		PicklistCacheHitsTotal,
	)
}
