// Package metrics exposes detector activity as Prometheus metrics on a
// private registry owned by the host.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/blink.report/internal/blink"
)

const namespace = "blink"

// Collector implements blink.Observer and blink.RejectionObserver. Register
// it with a Detector for blink and rejection counts, and call ObserveFrame
// and ObserveStats from the frame loop for the rest.
type Collector struct {
	registry *prometheus.Registry

	frames        prometheus.Counter
	noFaceFrames  prometheus.Counter
	blinks        prometheus.Counter
	rejected      *prometheus.CounterVec
	blinkDuration prometheus.Histogram

	ear             prometheus.Gauge
	threshold       prometheus.Gauge
	baseline        prometheus.Gauge
	eyesClosed      prometheus.Gauge
	blinksPerMinute prometheus.Gauge
	sessionSeconds  prometheus.Gauge
}

var (
	_ blink.Observer          = (*Collector)(nil)
	_ blink.RejectionObserver = (*Collector)(nil)
)

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Total frames passed to the detector",
		}),
		noFaceFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_no_face_total",
			Help:      "Frames with no usable face",
		}),
		blinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blinks_total",
			Help:      "Confirmed blinks",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_closures_total",
			Help:      "Eye closures discarded by duration validation",
		}, []string{"reason"}),
		blinkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blink_duration_seconds",
			Help:      "Duration of confirmed blinks",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.2, 0.3, 0.4, 0.5},
		}),
		ear: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ear",
			Help:      "Latest smoothed eye aspect ratio",
		}),
		threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threshold",
			Help:      "Current closed-eye threshold",
		}),
		baseline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "baseline",
			Help:      "Current open-eye baseline, 0 before the first sample",
		}),
		eyesClosed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "eyes_closed",
			Help:      "1 while the eyes are latched closed",
		}),
		blinksPerMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blinks_per_minute",
			Help:      "Session blink rate",
		}),
		sessionSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time since the session started",
		}),
	}

	c.registry.MustRegister(
		c.frames, c.noFaceFrames, c.blinks, c.rejected, c.blinkDuration,
		c.ear, c.threshold, c.baseline, c.eyesClosed,
		c.blinksPerMinute, c.sessionSeconds,
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// OnBlink counts a confirmed blink.
func (c *Collector) OnBlink(e blink.Event) {
	c.blinks.Inc()
	c.blinkDuration.Observe(e.Duration.Seconds())
}

// OnRejectedClosure counts a discarded closure by reason.
func (c *Collector) OnRejectedClosure(r blink.Rejection) {
	c.rejected.WithLabelValues(string(r.Reason)).Inc()
}

// ObserveFrame updates frame counters and live gauges. Blinks carried on
// r are not counted here; that is OnBlink's job.
func (c *Collector) ObserveFrame(r blink.FrameResult) {
	c.frames.Inc()
	c.threshold.Set(r.Threshold)
	c.baseline.Set(r.Baseline)
	c.eyesClosed.Set(boolToFloat(r.EyesClosed))
	if !r.Detected {
		c.noFaceFrames.Inc()
		return
	}
	c.ear.Set(r.EAR)
}

// ObserveStats updates the session gauges.
func (c *Collector) ObserveStats(s blink.Stats) {
	c.blinksPerMinute.Set(s.BlinksPerMinute)
	c.sessionSeconds.Set(s.SessionDurationSeconds)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
