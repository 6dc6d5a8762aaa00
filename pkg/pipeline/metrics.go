package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/teslashibe/go-blink/pkg/blink"
	"github.com/teslashibe/go-blink/pkg/event"
)

const namespace = "blink"

// Skip reasons used as the "reason" label of frames_skipped_total.
const (
	skipNoFace        = "no_face"
	skipProvider      = "provider_error"
	skipBadLandmarks  = "bad_landmarks"
	skipSourceFailure = "source_error"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	FramesProcessed prometheus.Counter
	FramesSkipped   *prometheus.CounterVec
	Blinks          *prometheus.CounterVec
	Calibrations    prometheus.Counter
	Threshold       prometheus.Gauge
	Running         prometheus.Gauge
	ProcessSeconds  prometheus.Histogram

	reg prometheus.Registerer
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames that went through landmark inference.",
		}),
		FramesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames that produced no ratio, by reason.",
		}, []string{"reason"}),
		Blinks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blinks_total",
			Help:      "Completed blinks by region.",
		}, []string{"region"}),
		Calibrations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibrations_total",
			Help:      "Completed calibration runs.",
		}),
		Threshold: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threshold",
			Help:      "Most recently calibrated detection threshold.",
		}),
		Running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the producer loop is running.",
		}),
		ProcessSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_process_seconds",
			Help:      "Time from frame read to latest-slot store.",
			Buckets:   []float64{.005, .01, .02, .05, .1, .2, .5, 1},
		}),
		reg: reg,
	}
}

// ObservePublisher exposes the publisher's delivery counters.
func (m *Metrics) ObservePublisher(p *event.Publisher) {
	f := promauto.With(m.reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Events handed to the sink.",
	}, func() float64 { return float64(p.Published()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events dropped because the queue was full.",
	}, func() float64 { return float64(p.Dropped()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_failed_total",
		Help:      "Events the sink refused.",
	}, func() float64 { return float64(p.Failed()) })
}

var blinkRegions = map[string]blink.Region{
	event.NameBlink:      blink.Combined,
	event.NameLeftBlink:  blink.Left,
	event.NameRightBlink: blink.Right,
}

// observeEvents updates blink and calibration metrics from emitted events.
func (m *Metrics) observeEvents(evs []event.Event) {
	for _, ev := range evs {
		if ev.Name == event.NameCalibrated {
			m.Calibrations.Inc()
			if v, ok := ev.Payload["threshold"].(float64); ok {
				m.Threshold.Set(v)
			}
			continue
		}
		if r, ok := blinkRegions[ev.Name]; ok {
			m.Blinks.WithLabelValues(string(r)).Inc()
		}
	}
}
