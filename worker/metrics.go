package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zero-day-ai/riskvault/register"
	"github.com/zero-day-ai/riskvault/risk"
)

// Batch outcome label values.
const (
	statusOK        = "ok"
	statusFailed    = "failed"
	statusDuplicate = "duplicate"
)

// Metrics holds the Prometheus metrics of one worker.
type Metrics struct {
	BatchesTotal  *prometheus.CounterVec
	RecordsTotal  *prometheus.CounterVec
	EntriesTotal  *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	QueueDepth    prometheus.Gauge
}

// NewMetrics creates the worker metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskvault_worker_batches_total",
			Help: "Total number of batches handled, by outcome",
		}, []string{"status"}),
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskvault_worker_records_total",
			Help: "Total number of log records handled, by disposition",
		}, []string{"disposition"}),
		EntriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskvault_worker_entries_total",
			Help: "Total number of register entries produced, by level",
		}, []string{"level"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskvault_worker_batch_duration_seconds",
			Help:    "Time spent analysing one batch",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "riskvault_worker_queue_depth",
			Help: "Pending batches at the last heartbeat",
		}),
	}
}

// observeRegister counts the records and entries of a finished batch.
func (m *Metrics) observeRegister(reg *register.Register) {
	if reg == nil {
		return
	}
	m.RecordsTotal.WithLabelValues("analysed").Add(float64(reg.Stats.Analysed))
	m.RecordsTotal.WithLabelValues("rejected").Add(float64(reg.Stats.Rejected))
	m.RecordsTotal.WithLabelValues("excluded").Add(float64(reg.Stats.Excluded))

	summary := reg.Summary()
	for _, level := range risk.AllLevels() {
		m.EntriesTotal.WithLabelValues(level.String()).Add(float64(summary.ByLevel[level]))
	}
}
