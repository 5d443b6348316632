// Package metrics exposes prediction counters and latencies in Prometheus
// format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/heartrisk/internal/predict"
)

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
	modelLoaded prometheus.Gauge
}

// New creates and registers the heartrisk collectors along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartrisk_predictions_total",
			Help: "Successful predictions by risk flag.",
		}, []string{"risk"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartrisk_prediction_failures_total",
			Help: "Failed predictions by failure kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heartrisk_prediction_duration_seconds",
			Help:    "Time spent scoring one record, including a first model load.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		modelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heartrisk_model_loaded",
			Help: "1 when the classifier is loaded, 0 otherwise.",
		}),
	}
	m.reg.MustRegister(
		m.predictions,
		m.failures,
		m.duration,
		m.modelLoaded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePrediction implements predict.Observer.
func (m *Metrics) ObservePrediction(res predict.Result, err error, elapsed time.Duration) {
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(predict.ErrorKind(err)).Inc()
		return
	}
	risk := "low"
	if res.HighRisk {
		risk = "high"
	}
	m.predictions.WithLabelValues(risk).Inc()
}

// SetModelLoaded records whether the classifier is available.
func (m *Metrics) SetModelLoaded(ok bool) {
	if ok {
		m.modelLoaded.Set(1)
	} else {
		m.modelLoaded.Set(0)
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
