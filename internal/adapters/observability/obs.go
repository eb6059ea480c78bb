package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// Metric names used across the simulator.
const (
	MetricRecordsGenerated  = "devicebridge_records_generated_total"
	MetricGenerationErrors  = "devicebridge_generation_errors_total"
	MetricSubscriberPanics  = "devicebridge_subscriber_panics_total"
	MetricSinkWriteErrors   = "devicebridge_sink_write_errors_total"
	MetricAPIBatchesSent    = "devicebridge_api_batches_sent_total"
	MetricAPIRecordsDropped = "devicebridge_api_records_dropped_total"
	MetricAPIQueueLength    = "devicebridge_api_queue_length"
	MetricSinkWriteLatency  = "devicebridge_sink_write_latency_seconds"
)

// Obs implements ports.Observability with logrus structured logging
// and a per-instance Prometheus registry, so parallel tests never
// collide on metric registration.
type Obs struct {
	log      *logrus.Logger
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func New(log *logrus.Logger) *Obs {
	if log == nil {
		log = logrus.StandardLogger()
	}

	generated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRecordsGenerated,
		Help: "Total telemetry records emitted by device runners.",
	})
	genErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricGenerationErrors,
		Help: "Ticks on which a state machine failed to produce a record.",
	})
	subPanics := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSubscriberPanics,
		Help: "Subscriber callbacks that panicked during fan-out.",
	})
	writeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSinkWriteErrors,
		Help: "Sink writes that returned an error.",
	})
	batchesSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricAPIBatchesSent,
		Help: "Batches the API sink successfully delivered.",
	})
	recordsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricAPIRecordsDropped,
		Help: "Records dropped after a failed API batch send.",
	})
	queueLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricAPIQueueLength,
		Help: "Records currently buffered inside the API sink queue.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricSinkWriteLatency,
		Help:    "Latency of individual sink writes.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(generated, genErrors, subPanics, writeErrors, batchesSent, recordsDropped, queueLen, latency)

	return &Obs{
		log:      log,
		registry: registry,
		counters: map[string]prometheus.Counter{
			MetricRecordsGenerated:  generated,
			MetricGenerationErrors:  genErrors,
			MetricSubscriberPanics:  subPanics,
			MetricSinkWriteErrors:   writeErrors,
			MetricAPIBatchesSent:    batchesSent,
			MetricAPIRecordsDropped: recordsDropped,
		},
		gauges: map[string]prometheus.Gauge{
			MetricAPIQueueLength: queueLen,
		},
		histos: map[string]prometheus.Observer{
			MetricSinkWriteLatency: latency,
		},
	}
}

// Registry exposes the instance registry for the /metrics handler.
func (o *Obs) Registry() *prometheus.Registry { return o.registry }

// Counter returns a registered counter for test assertions.
func (o *Obs) Counter(name string) prometheus.Counter { return o.counters[name] }

func (o *Obs) LogInfo(msg string, fields ...ports.Field) {
	o.log.WithFields(toLogrus(fields)).Info(msg)
}

func (o *Obs) LogError(msg string, err error, fields ...ports.Field) {
	entry := o.log.WithFields(toLogrus(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (o *Obs) IncCounter(name string, v float64) {
	if c, ok := o.counters[name]; ok {
		c.Add(v)
	}
}

func (o *Obs) SetGauge(name string, v float64) {
	if g, ok := o.gauges[name]; ok {
		g.Set(v)
	}
}

func (o *Obs) ObserveLatency(name string, seconds float64) {
	if h, ok := o.histos[name]; ok {
		h.Observe(seconds)
	}
}

func toLogrus(fields []ports.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

var _ ports.Observability = (*Obs)(nil)
