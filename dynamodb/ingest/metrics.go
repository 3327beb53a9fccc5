package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricBatchCalls   = "batch_write_calls_total"
	MetricItems        = "items_total"
	MetricCallDuration = "batch_write_duration_seconds"
	MetricUnprocessed  = "unprocessed_items_total"

	metricNamespace = "ddbseed"
	metricSubsystem = "ingest"
)

// Metrics are the prometheus collectors updated by an Ingestor.
type Metrics struct {
	// Calls counts BatchWriteItem calls by table and outcome (ok, retryable, error).
	Calls *prometheus.CounterVec
	// Items counts items by table and final result (succeeded, failed).
	Items *prometheus.CounterVec
	// Unprocessed counts items returned as unprocessed by table.
	Unprocessed  *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg, when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: metricSubsystem,
			Name:      MetricBatchCalls,
			Help:      "BatchWriteItem calls made, by table and outcome.",
		}, []string{"table", "outcome"}),
		Items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: metricSubsystem,
			Name:      MetricItems,
			Help:      "Items ingested, by table and final result.",
		}, []string{"table", "result"}),
		Unprocessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: metricSubsystem,
			Name:      MetricUnprocessed,
			Help:      "Items returned as unprocessed by BatchWriteItem.",
		}, []string{"table"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: metricSubsystem,
			Name:      MetricCallDuration,
			Help:      "Latency of BatchWriteItem calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"table"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Items, m.Unprocessed, m.CallDuration)
	}
	return m
}
