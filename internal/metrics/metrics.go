// Package metrics holds the Prometheus collectors for the handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tts_handler"

// Outcome labels recorded per job.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_error"
	OutcomeResolution = "resolution_error"
	OutcomeSynthesis  = "synthesis_error"
	OutcomeTimeout    = "timeout"
	OutcomeInternal   = "internal_error"
)

// Metrics groups the collectors registered for one handler. A nil *Metrics
// records nothing.
type Metrics struct {
	Jobs           *prometheus.CounterVec
	JobSeconds     prometheus.Histogram
	SynthesisTime  *prometheus.HistogramVec
	VoiceSources   *prometheus.CounterVec
	AudioSeconds   prometheus.Histogram
	ReferenceBytes prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Jobs handled, by outcome",
		}, []string{"outcome"}),
		JobSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Wall time from receiving a job to its response",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		SynthesisTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "synthesis",
			Name:      "request_seconds",
			Help:      "Time spent in the synthesis engine",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"source"}),
		VoiceSources: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "resolved_total",
			Help:      "Resolved voices, by the rule that selected them",
		}, []string{"source"}),
		AudioSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "synthesis",
			Name:      "audio_seconds",
			Help:      "Estimated playback length of produced audio",
			Buckets:   prometheus.LinearBuckets(5, 5, 12),
		}),
		ReferenceBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "reference_bytes",
			Help:      "Size of inline reference audio",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
	}
}

// ObserveJob records one finished job.
func (m *Metrics) ObserveJob(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.Jobs.WithLabelValues(outcome).Inc()
	m.JobSeconds.Observe(elapsed.Seconds())
}

// ObserveResolution records which rule selected the voice.
func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}

	m.VoiceSources.WithLabelValues(source).Inc()
}

// ObserveSynthesis records one engine run and, when known, the audio length.
func (m *Metrics) ObserveSynthesis(source string, elapsed time.Duration, audioSeconds float64) {
	if m == nil {
		return
	}

	m.SynthesisTime.WithLabelValues(source).Observe(elapsed.Seconds())

	if audioSeconds > 0 {
		m.AudioSeconds.Observe(audioSeconds)
	}
}

// ObserveReference records the size of inline reference audio.
func (m *Metrics) ObserveReference(size int) {
	if m == nil {
		return
	}

	m.ReferenceBytes.Observe(float64(size))
}
