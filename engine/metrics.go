package engine

import "github.com/remiges-tech/sift/metrics"

// Metric names exposed by the engine.
const (
	metricBatchesCreated     = "sift_batches_created_total"
	metricBatchesCompleted   = "sift_batches_completed_total"
	metricItemsCompleted     = "sift_items_completed_total"
	metricItemsFailed        = "sift_items_failed_total"
	metricItemsRequeued      = "sift_items_requeued_total"
	metricWatchdogRecoveries = "sift_watchdog_recoveries_total"
	metricWorkersActive      = "sift_workers_active"
)

func registerEngineMetrics(m metrics.Metrics) {
	m.Register(metricBatchesCreated, "Counter", "Batches accepted for processing")
	m.Register(metricBatchesCompleted, "Counter", "Batches that reached complete status")
	m.Register(metricItemsCompleted, "Counter", "Items analyzed successfully")
	m.Register(metricItemsFailed, "Counter", "Items that exhausted retries or failed permanently")
	m.Register(metricItemsRequeued, "Counter", "Items requeued after a transient failure")
	m.Register(metricWatchdogRecoveries, "Counter", "Expired leases recovered by the watchdog")
	m.Register(metricWorkersActive, "Gauge", "Batch workers currently running in this process")
}

// noopMetrics satisfies metrics.Metrics for callers that do not wire a
// metrics backend.
type noopMetrics struct{}

func (noopMetrics) Register(name, metricType, help string) {}

func (noopMetrics) Record(name string, value float64) {}

func (noopMetrics) RegisterWithLabels(name, metricType, help string, labels []string) {}

func (noopMetrics) RecordWithLabels(name string, value float64, labelValues ...string) {}
