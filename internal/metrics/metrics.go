// Package metrics exposes Prometheus metrics for predictions and pump dispatches.
//
// Metrics:
//   - gateway_predictions_total{label}: classified rows by label
//   - gateway_prediction_batch_size: rows per prediction request
//   - gateway_prediction_latency_seconds: model invocation latency
//   - gateway_channel_deliveries_total{channel,ok}: per-channel delivery results
//   - gateway_dispatches_total{accepted}: pump control requests by acceptance
//   - gateway_model_loaded: 1 when a model is loaded
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector Prometheus metrics collector
type Collector struct {
	predictions       *prometheus.CounterVec
	batchSize         prometheus.Histogram
	predictionLatency prometheus.Histogram
	deliveries        *prometheus.CounterVec
	dispatches        *prometheus.CounterVec
	modelLoaded       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewCollector creates the collector and registers it with reg
func NewCollector(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	c := &Collector{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_predictions_total",
			Help: "Total number of classified feature rows by pump label",
		}, []string{"label"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_prediction_batch_size",
			Help:    "Number of rows per prediction request",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		predictionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_prediction_latency_seconds",
			Help:    "Model invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_channel_deliveries_total",
			Help: "Pump command deliveries by channel and result",
		}, []string{"channel", "ok"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_dispatches_total",
			Help: "Pump control requests by acceptance",
		}, []string{"accepted"}),
		modelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_model_loaded",
			Help: "1 when a classifier is loaded, 0 otherwise",
		}),
		gatherer: gatherer,
	}

	reg.MustRegister(
		c.predictions,
		c.batchSize,
		c.predictionLatency,
		c.deliveries,
		c.dispatches,
		c.modelLoaded,
	)
	return c
}

// ObservePrediction records one prediction request
func (c *Collector) ObservePrediction(labels []string, latencySeconds float64) {
	c.batchSize.Observe(float64(len(labels)))
	c.predictionLatency.Observe(latencySeconds)
	for _, l := range labels {
		c.predictions.WithLabelValues(l).Inc()
	}
}

// ObserveChannel records the result of one channel delivery
func (c *Collector) ObserveChannel(channel string, ok bool) {
	c.deliveries.WithLabelValues(channel, strconv.FormatBool(ok)).Inc()
}

// ObserveDispatch records whether a pump command was accepted
func (c *Collector) ObserveDispatch(accepted bool) {
	c.dispatches.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

// SetModelLoaded updates the model gauge
func (c *Collector) SetModelLoaded(loaded bool) {
	if loaded {
		c.modelLoaded.Set(1)
		return
	}
	c.modelLoaded.Set(0)
}

// Handler serves the registered metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
