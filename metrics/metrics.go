// Package metrics provides a small abstract interface for registering and
// recording metrics, and a Prometheus-backed implementation of it. The
// engine records through this interface so that callers can plug in
// Prometheus, a test double or nothing at all.
//
// Usage:
//
//	m := metrics.NewPrometheusMetrics()
//	m.Register("sift_batches_created_total", "Counter", "Batches created")
//	m.Record("sift_batches_created_total", 1)
//	m.RegisterWithLabels("sift_items_failed_total", "Counter", "Items failed", []string{"errcode"})
//	m.RecordWithLabels("sift_items_failed_total", 1, "timeout")
package metrics

type Metrics interface {
	Register(name, metricType, help string)
	Record(name string, value float64)
	RegisterWithLabels(name, metricType, help string, labels []string)
	RecordWithLabels(name string, value float64, labelValues ...string)
}
