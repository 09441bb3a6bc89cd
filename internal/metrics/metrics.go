// Package metrics holds Prometheus instruments that are used across the
// data-access layer.  All collectors are registered with the global
// registry, so serving promhttp.Handler() is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrica_db_queries_total",
			Help: "Cumulative number of SQL statements issued, by operation.",
		}, []string{"op"})

	QueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrica_db_query_errors_total",
			Help: "Cumulative number of SQL statements that returned a driver error.",
		}, []string{"op"})

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metrica_db_query_duration_seconds",
			Help:    "Round-trip time of SQL statements.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrica_http_requests_total",
			Help: "Admin API requests, by route pattern and status code.",
		}, []string{"route", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metrica_http_request_duration_seconds",
			Help:    "Admin API request latency, by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})

	SitesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metrica_sites_deleted_total",
			Help: "Cumulative number of site cascade deletes.",
		})
)

func init() {
	prometheus.MustRegister(
		QueriesTotal,
		QueryErrorsTotal,
		QueryDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SitesDeletedTotal,
	)
}
