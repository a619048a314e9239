// Package metrics exposes Prometheus counters and gauges for the capture,
// dissection, storage, and scan subsystems.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds every metric this daemon exports.
type Registry struct {
	PacketsCaptured *prometheus.CounterVec
	PacketsDropped  *prometheus.CounterVec
	DissectErrors   prometheus.Counter

	WriterQueueDepth   prometheus.Gauge
	WriterFlushLatency prometheus.Histogram
	WriterFlushErrors  prometheus.Counter

	DNSCacheHits   prometheus.Counter
	DNSCacheMisses prometheus.Counter
	DNSCacheSize   prometheus.Gauge

	ScanPhaseDuration *prometheus.HistogramVec
	ScanDiscovered    *prometheus.CounterVec

	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	Uptime prometheus.Gauge
}

// Get returns the global metrics registry, creating it on first use.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.PacketsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netwatch_packets_captured_total",
		Help: "Total frames read off each monitored interface",
	}, []string{"interface"})

	r.PacketsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netwatch_packets_dropped_total",
		Help: "Total frames dropped due to a full dissection queue",
	}, []string{"interface"})

	r.DissectErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netwatch_dissect_errors_total",
		Help: "Total frames that failed dissection (malformed or truncated)",
	})

	r.WriterQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netwatch_writer_queue_depth",
		Help: "Conversation rows held in the in-memory aggregator after the last flush",
	})

	r.WriterFlushLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netwatch_writer_flush_duration_seconds",
		Help:    "Time to flush a batch of dirty flow rows to storage",
		Buckets: prometheus.DefBuckets,
	})

	r.WriterFlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netwatch_writer_flush_errors_total",
		Help: "Total flush batches that failed, after any retries of busy errors",
	})

	r.DNSCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netwatch_dns_cache_hits_total",
		Help: "Hostname/IP lookups served from the in-memory cache",
	})

	r.DNSCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netwatch_dns_cache_misses_total",
		Help: "Hostname/IP lookups that missed the in-memory cache",
	})

	r.DNSCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netwatch_dns_cache_entries",
		Help: "Current number of entries held in the DNS/hostname cache",
	})

	r.ScanPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netwatch_scan_phase_duration_seconds",
		Help:    "Wall time spent in each active-scan phase",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	r.ScanDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netwatch_scan_discovered_total",
		Help: "Hosts discovered per active-scan phase",
	}, []string{"phase"})

	r.APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netwatch_api_requests_total",
		Help: "Total HTTP requests served by the query API",
	}, []string{"method", "path", "status"})

	r.APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netwatch_api_request_duration_seconds",
		Help:    "Query API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	r.Uptime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netwatch_uptime_seconds",
		Help: "Seconds since the daemon started",
	})

	return r
}

// RecordAPIRequest records one completed HTTP request/response cycle.
func (r *Registry) RecordAPIRequest(method, path string, status int, durationSeconds float64) {
	r.APIRequests.WithLabelValues(method, path, statusString(status)).Inc()
	r.APILatency.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordScanPhase records one completed active-scan phase.
func (r *Registry) RecordScanPhase(phase string, durationSeconds float64, discovered int) {
	r.ScanPhaseDuration.WithLabelValues(phase).Observe(durationSeconds)
	r.ScanDiscovered.WithLabelValues(phase).Add(float64(discovered))
}

func statusString(status int) string {
	return fmt.Sprintf("%d", status)
}
