// Package metrics exposes Prometheus instrumentation for the recording browser.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mythrecordings_cache_lookups_total",
		Help: "Recording cache lookups by result",
	}, []string{"result"})

	upstreamFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mythrecordings_upstream_fetch_total",
		Help: "Backend recording list fetches by outcome",
	}, []string{"outcome"})

	upstreamFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mythrecordings_upstream_fetch_duration_seconds",
		Help:    "Duration of backend recording list fetches",
		Buckets: prometheus.DefBuckets,
	})

	recordsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mythrecordings_records_skipped_total",
		Help: "Recordings skipped during listing because a mandatory field was missing or invalid",
	}, []string{"field"})

	browseRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mythrecordings_browse_requests_total",
		Help: "Browse requests by listing kind",
	}, []string{"kind"})
)

// ObserveCacheLookup records a cache lookup. result ∈ {hit,miss,bypass}.
func ObserveCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(normalizeLabel(result, "hit", "miss", "bypass")).Inc()
}

// ObserveFetch records one upstream fetch.
func ObserveFetch(err error, took time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamFetchTotal.WithLabelValues(outcome).Inc()
	upstreamFetchDuration.Observe(took.Seconds())
}

// IncRecordSkipped counts a skipped record. Field labels are restricted to the
// mandatory field set to cap cardinality.
func IncRecordSkipped(field string) {
	recordsSkippedTotal.WithLabelValues(normalizeLabel(field,
		"Title", "Channel.ChanId", "StartTime", "EndTime", "Recording.StartTs", "Recording.EndTs")).Inc()
}

// IncBrowse counts a browse request. kind ∈ {menu,group,list}.
func IncBrowse(kind string) {
	browseRequestsTotal.WithLabelValues(normalizeLabel(kind, "menu", "group", "list")).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func normalizeLabel(v string, allowed ...string) string {
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return "unknown"
}
