package fhss

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

const (
	// DefaultMinHops is the smallest window that is classified at all
	DefaultMinHops = 10

	// DefaultHopRateMin and DefaultHopRateMax bound the FHSS hop rate in Hz
	DefaultHopRateMin = 40.0
	DefaultHopRateMax = 100.0

	// DefaultMinUniqueFrequencies is the frequency diversity required to call a window FHSS
	DefaultMinUniqueFrequencies = 3

	LabelFutaba = "Futaba FHSS (433 MHz RC)"
	LabelFrSky  = "FrSky FHSS (915 MHz RC)"
	LabelFixed  = "Fixed frequency (GPS/Telemetry)"
	LabelOther  = "Unknown FHSS"
)

var (
	// ErrInsufficientHops is returned for windows below the minimum hop count
	ErrInsufficientHops = errors.New("insufficient hops")

	// ErrDegenerateWindow is returned when all hops in a window share one timestamp
	ErrDegenerateWindow = errors.New("degenerate window: zero time span")
)

// Thresholds holds the tunable limits of the classifier.
type Thresholds struct {
	MinHops              int     `yaml:"minHops" json:"minHops"`
	HopRateMin           float64 `yaml:"hopRateMin" json:"hopRateMin"`
	HopRateMax           float64 `yaml:"hopRateMax" json:"hopRateMax"`
	MinUniqueFrequencies int     `yaml:"minUniqueFrequencies" json:"minUniqueFrequencies"`
}

// DefaultThresholds returns the calibrated classifier limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinHops:              DefaultMinHops,
		HopRateMin:           DefaultHopRateMin,
		HopRateMax:           DefaultHopRateMax,
		MinUniqueFrequencies: DefaultMinUniqueFrequencies,
	}
}

func (t *Thresholds) Validate() error {
	if t.MinHops < 2 {
		return fmt.Errorf("fhss.Thresholds: minimum hops must be at least 2: %d given", t.MinHops)
	}
	if t.HopRateMin <= 0 || t.HopRateMax <= 0 {
		return fmt.Errorf("fhss.Thresholds: hop rate limits must be positive: %.1f..%.1f", t.HopRateMin, t.HopRateMax)
	}
	if t.HopRateMax < t.HopRateMin {
		return fmt.Errorf("fhss.Thresholds: hop rate max must not be less than min: %.1f < %.1f", t.HopRateMax, t.HopRateMin)
	}
	if t.MinUniqueFrequencies < 1 {
		return fmt.Errorf("fhss.Thresholds: minimum unique frequencies must be positive: %d given", t.MinUniqueFrequencies)
	}

	return nil
}

// Stats summarises a hop window.
type Stats struct {
	Hops              int
	HopRate           float64 // Hz
	Bandwidth         float64 // Hz
	MinFrequency      float64 // Hz
	MaxFrequency      float64 // Hz
	UniqueFrequencies int     // distinct whole-MHz values
	MeanPower         float64 // dB
	Span              time.Duration
}

// CenterFrequency returns the midpoint of the observed frequency range.
func (s Stats) CenterFrequency() float64 {
	return (s.MinFrequency + s.MaxFrequency) / 2
}

// Analyze computes window statistics. The hop rate uses millisecond timestamps
// of the first and last hop.
func Analyze(hops []spectrum.Hop, minHops int) (Stats, error) {
	if len(hops) < minHops || len(hops) == 0 {
		return Stats{}, fmt.Errorf("%w: %d < %d", ErrInsufficientHops, len(hops), minHops)
	}

	spanMs := hops[len(hops)-1].ObservedAt.UnixMilli() - hops[0].ObservedAt.UnixMilli()
	if spanMs == 0 {
		return Stats{}, ErrDegenerateWindow
	}

	frequencies := make([]float64, len(hops))
	powers := make([]float64, len(hops))
	unique := make(map[int64]struct{})

	for i, h := range hops {
		frequencies[i] = h.Frequency
		powers[i] = h.Power
		unique[int64(math.Floor(h.Frequency/1e6))] = struct{}{}
	}

	minFreq := floats.Min(frequencies)
	maxFreq := floats.Max(frequencies)

	return Stats{
		Hops:              len(hops),
		HopRate:           float64(len(hops)) * 1000 / float64(spanMs),
		Bandwidth:         maxFreq - minFreq,
		MinFrequency:      minFreq,
		MaxFrequency:      maxFreq,
		UniqueFrequencies: len(unique),
		MeanPower:         stat.Mean(powers, nil),
		Span:              time.Duration(spanMs) * time.Millisecond,
	}, nil
}

// Label assigns a protocol label; the first matching rule wins.
func Label(hopRate, bandwidth float64) string {
	switch {
	case within(hopRate, 40, 60) && within(bandwidth, 20e6, 40e6):
		return LabelFutaba
	case within(hopRate, 80, 100) && within(bandwidth, 60e6, 80e6):
		return LabelFrSky
	case bandwidth < 5e6:
		return LabelFixed
	default:
		return LabelOther
	}
}

// Confidence scores hop rate, bandwidth and frequency diversity and returns
// their sum clamped to [0, 1].
func Confidence(hopRate, bandwidth float64, uniqueFrequencies int) float64 {
	var confidence float64

	switch {
	case within(hopRate, 50, 90):
		confidence += 0.4
	case within(hopRate, 40, 100):
		confidence += 0.3
	default:
		confidence += 0.1
	}

	switch {
	case within(bandwidth, 20e6, 80e6):
		confidence += 0.3
	case within(bandwidth, 10e6, 100e6):
		confidence += 0.2
	default:
		confidence += 0.1
	}

	switch {
	case uniqueFrequencies >= 5:
		confidence += 0.3
	case uniqueFrequencies >= 3:
		confidence += 0.2
	default:
		confidence += 0.1
	}

	return min(max(confidence, 0), 1)
}

// Classifier decides whether a hop window looks like a frequency-hopping link.
type Classifier struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Thresholds returns the limits the classifier was built with.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// IsFHSS reports whether the statistics pass the hop-rate and diversity gate.
func (c *Classifier) IsFHSS(s Stats) bool {
	return s.UniqueFrequencies >= c.thresholds.MinUniqueFrequencies &&
		within(s.HopRate, c.thresholds.HopRateMin, c.thresholds.HopRateMax)
}

// Classify analyses a window and returns a detection when it passes the gate.
// The returned Stats are valid whenever err is nil. ErrInsufficientHops and
// ErrDegenerateWindow mean the window was skipped.
func (c *Classifier) Classify(hops []spectrum.Hop) (*spectrum.Detection, Stats, error) {
	s, err := Analyze(hops, c.thresholds.MinHops)
	if err != nil {
		return nil, Stats{}, err
	}

	if !c.IsFHSS(s) {
		return nil, s, nil
	}

	return &spectrum.Detection{
		Frequency:      s.CenterFrequency(),
		SignalStrength: s.MeanPower,
		Classification: Label(s.HopRate, s.Bandwidth),
		Confidence:     Confidence(s.HopRate, s.Bandwidth, s.UniqueFrequencies),
		DetectedAt:     c.now(),
		HopRate:        s.HopRate,
		Bandwidth:      s.Bandwidth,
	}, s, nil
}

func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
