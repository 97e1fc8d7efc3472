package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the stethoscope service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Pipeline metrics
	Predictions       *prometheus.CounterVec
	PredictedLabels   *prometheus.CounterVec
	ModelLoads        *prometheus.CounterVec
	SpectrogramTime   prometheus.Histogram
	InferenceTime     prometheus.Histogram
	SpectrogramsSaved prometheus.Counter
	QueueRejections   prometheus.Counter
	JobsInFlight      prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Predictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stethoscope_predictions_total",
			Help: "Total number of prediction requests by outcome",
		}, []string{"outcome"}),
		PredictedLabels: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stethoscope_predicted_labels_total",
			Help: "Total number of predictions by reported label",
		}, []string{"label"}),
		ModelLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stethoscope_model_loads_total",
			Help: "Total number of classifier load attempts by result",
		}, []string{"result"}),
		SpectrogramTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stethoscope_spectrogram_duration_seconds",
			Help:    "Time spent building mel spectrograms",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		InferenceTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stethoscope_inference_duration_seconds",
			Help:    "Time spent in classifier forward passes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		SpectrogramsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "stethoscope_spectrograms_saved_total",
			Help: "Total number of spectrogram arrays written to disk",
		}),
		QueueRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "stethoscope_queue_rejections_total",
			Help: "Total number of requests rejected because the job queue was full",
		}),
		JobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "stethoscope_jobs_in_flight",
			Help: "Number of prediction jobs currently running",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stethoscope_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stethoscope_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordPrediction records one pipeline result.
func (m *Metrics) RecordPrediction(outcome, label string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(outcome).Inc()
	if label != "" {
		m.PredictedLabels.WithLabelValues(label).Inc()
	}
}

// RecordModelLoad records a classifier load attempt.
func (m *Metrics) RecordModelLoad(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.ModelLoads.WithLabelValues(result).Inc()
}

// ObserveSpectrogram records time spent building one spectrogram.
func (m *Metrics) ObserveSpectrogram(d time.Duration) {
	if m == nil {
		return
	}
	m.SpectrogramTime.Observe(d.Seconds())
}

// ObserveInference records time spent in one forward pass.
func (m *Metrics) ObserveInference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceTime.Observe(d.Seconds())
}

// RecordSave records a persisted spectrogram.
func (m *Metrics) RecordSave() {
	if m == nil {
		return
	}
	m.SpectrogramsSaved.Inc()
}

// RecordQueueRejection records a job refused by a full queue.
func (m *Metrics) RecordQueueRejection() {
	if m == nil {
		return
	}
	m.QueueRejections.Inc()
}

// JobStarted and JobFinished track the running job gauge.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.JobsInFlight.Inc()
}

func (m *Metrics) JobFinished() {
	if m == nil {
		return
	}
	m.JobsInFlight.Dec()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}
