// Package metrics exposes the indexer's Prometheus collectors and a
// pkg/indexer.Metrics implementation wired onto them, following the
// teacher's promauto registration style in its own internal/metrics.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stark-indexer/strkindexer/pkg/indexer"
)

var (
	cursorBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strkindexer_cursor_block",
		Help: "The last block number committed to the persisted cursor",
	})

	blocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strkindexer_blocks_processed_total",
		Help: "Total number of blocks accepted and committed",
	})

	eventsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strkindexer_events_decoded_total",
		Help: "Total number of events matched against a registered subscription and decoded",
	})

	reorgsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strkindexer_reorgs_detected_total",
		Help: "Total number of reorg directives issued by the Reorg Detector",
	})

	handlerInvocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strkindexer_handler_invocations_total",
		Help: "Total number of blocks for which at least one handler was invoked",
	})

	rpcRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strkindexer_rpc_retries_total",
		Help: "Total number of storage-commit retry attempts",
	})

	wsReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strkindexer_ws_reconnects_total",
		Help: "Total number of WebSocket reconnect attempts",
	})

	componentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strkindexer_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	uptime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strkindexer_uptime_seconds",
		Help: "Process uptime in seconds",
	})

	goroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strkindexer_goroutines",
		Help: "Number of active goroutines",
	})

	memoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strkindexer_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

// PrometheusMetrics implements pkg/indexer.Metrics on top of the package's
// Prometheus collectors.
type PrometheusMetrics struct{}

var _ indexer.Metrics = PrometheusMetrics{}

func (PrometheusMetrics) SetCursorBlock(number uint64) { cursorBlock.Set(float64(number)) }
func (PrometheusMetrics) IncBlocksProcessed()          { blocksProcessed.Inc() }
func (PrometheusMetrics) IncEventsDecoded(count int)   { eventsDecoded.Add(float64(count)) }
func (PrometheusMetrics) IncReorgsDetected()           { reorgsDetected.Inc() }
func (PrometheusMetrics) IncHandlerInvocations()       { handlerInvocations.Inc() }
func (PrometheusMetrics) IncRPCRetries()               { rpcRetries.Inc() }
func (PrometheusMetrics) IncWSReconnects()             { wsReconnects.Inc() }

func (PrometheusMetrics) SetComponentHealth(component string, healthy bool) {
	value := float64(1)
	if !healthy {
		value = 0
	}
	componentHealth.WithLabelValues(component).Set(value)
}

// UpdateSystemMetrics refreshes uptime/goroutine/memory gauges; called
// periodically by Server.
func UpdateSystemMetrics() {
	uptime.Set(time.Since(startTime).Seconds())
	goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	memoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	memoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	memoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
