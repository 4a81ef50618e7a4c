package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roman-kulish/fhss-detector/internal/dsp"
	"github.com/roman-kulish/fhss-detector/internal/fhss"
	"github.com/roman-kulish/fhss-detector/internal/scanner"
	"github.com/roman-kulish/fhss-detector/internal/sdr/rtltcp"
	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

const namespace = "fhss_detector"

// Collector exports pipeline counters to Prometheus. It is both a session
// Observer and a Probe.
type Collector struct {
	blocks     prometheus.Counter     // Spectrum frames produced
	shortReads prometheus.Counter     // Reads that returned less than a block
	peaks      prometheus.Counter     // Peaks above threshold
	windows    *prometheus.CounterVec // Hop windows by outcome
	detections *prometheus.CounterVec // Detections by classification
	errors     *prometheus.CounterVec // Reported failures by kind
	confidence prometheus.Gauge       // Confidence of the last detection
	hopRate    prometheus.Histogram   // Hop rate of analysed windows
	lastFrame  prometheus.Gauge       // Unix time of the last frame
}

// NewCollector registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		blocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Number of sample blocks turned into spectrum frames",
		}),
		shortReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "short_reads_total",
			Help:      "Number of reads that delivered less than a full block",
		}),
		peaks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peaks_total",
			Help:      "Number of spectral peaks above the power threshold",
		}),
		windows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hop_windows_total",
			Help:      "Number of hop windows analysed, by outcome",
		}, []string{"outcome"}),
		detections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Number of detections, by classification",
		}, []string{"classification"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Number of reported failures, by kind",
		}, []string{"kind"}),
		confidence: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_detection_confidence",
			Help:      "Confidence of the most recent detection",
		}),
		hopRate: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_hop_rate_hz",
			Help:      "Hop rate of analysed hop windows",
			Buckets:   []float64{10, 20, 40, 50, 60, 80, 90, 100, 200, 500},
		}),
		lastFrame: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_frame_timestamp_seconds",
			Help:      "Unix time of the most recent spectrum frame",
		}),
	}
}

func (c *Collector) OnSpectrumUpdate(frame spectrum.Frame) {
	c.blocks.Inc()
	c.lastFrame.Set(float64(frame.CapturedAt.UnixNano()) / 1e9)
}

func (c *Collector) OnDroneDetected(detection spectrum.Detection) {
	c.detections.WithLabelValues(detection.Classification).Inc()
	c.confidence.Set(detection.Confidence)
}

func (c *Collector) OnError(err error) {
	c.errors.WithLabelValues(errorKind(err)).Inc()
}

func (c *Collector) ShortRead(int) {
	c.shortReads.Inc()
}

func (c *Collector) PeaksDetected(count int) {
	c.peaks.Add(float64(count))
}

func (c *Collector) WindowAnalyzed(outcome scanner.WindowOutcome, stats fhss.Stats) {
	c.windows.WithLabelValues(string(outcome)).Inc()

	if outcome == scanner.OutcomeDetected || outcome == scanner.OutcomeRejected {
		c.hopRate.Observe(stats.HopRate)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, rtltcp.ErrConnectionFailed):
		return "connection_failed"
	case errors.Is(err, dsp.ErrStreamClosed):
		return "stream_closed"
	default:
		return "other"
	}
}
