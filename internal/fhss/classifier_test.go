package fhss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// hopsOver spreads count hops evenly between start and start+span, cycling
// through freqs.
func hopsOver(start time.Time, span time.Duration, count int, freqs ...float64) []spectrum.Hop {
	hops := make([]spectrum.Hop, count)
	for i := range hops {
		offset := time.Duration(0)
		if count > 1 {
			offset = span * time.Duration(i) / time.Duration(count-1)
		}
		hops[i] = spectrum.Hop{
			Frequency:  freqs[i%len(freqs)],
			ObservedAt: start.Add(offset),
			Power:      -50,
		}
	}
	return hops
}

func TestAnalyze_HopRate(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	hops := hopsOver(start, 200*time.Millisecond, 10, 433e6, 440e6, 450e6)

	s, err := Analyze(hops, DefaultMinHops)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, s.HopRate, 1e-9)
	assert.Equal(t, 10, s.Hops)
	assert.Equal(t, 200*time.Millisecond, s.Span)
	assert.InDelta(t, 17e6, s.Bandwidth, 1e-6)
	assert.InDelta(t, 441.5e6, s.CenterFrequency(), 1e-6)
	assert.Equal(t, 3, s.UniqueFrequencies)
	assert.InDelta(t, -50, s.MeanPower, 1e-9)
}

func TestAnalyze_UniqueFrequenciesFloorToMHz(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	// 433.1 and 433.9 MHz share a bucket, 434.0 does not
	hops := hopsOver(start, time.Second, 12, 433.1e6, 433.9e6, 434.0e6)

	s, err := Analyze(hops, DefaultMinHops)
	require.NoError(t, err)
	assert.Equal(t, 2, s.UniqueFrequencies)
}

func TestAnalyze_Preconditions(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)

	_, err := Analyze(hopsOver(start, time.Second, 9, 1e6), DefaultMinHops)
	assert.ErrorIs(t, err, ErrInsufficientHops)

	_, err = Analyze(nil, 0)
	assert.ErrorIs(t, err, ErrInsufficientHops)

	_, err = Analyze(hopsOver(start, 0, 20, 1e6, 5e6, 9e6), DefaultMinHops)
	assert.ErrorIs(t, err, ErrDegenerateWindow)
}

func TestLabel(t *testing.T) {
	testCases := []struct {
		name      string
		hopRate   float64
		bandwidth float64
		want      string
	}{
		{"futaba", 50, 30e6, LabelFutaba},
		{"futaba lower bounds", 40, 20e6, LabelFutaba},
		{"frsky", 90, 70e6, LabelFrSky},
		{"frsky upper bounds", 100, 80e6, LabelFrSky},
		{"fixed", 70, 2e6, LabelFixed},
		{"fixed at futaba rate", 50, 2e6, LabelFixed},
		{"unknown", 70, 30e6, LabelOther},
		{"futaba rate outside its band", 50, 70e6, LabelOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Label(tc.hopRate, tc.bandwidth))
		})
	}
}

func TestConfidence(t *testing.T) {
	testCases := []struct {
		name      string
		hopRate   float64
		bandwidth float64
		unique    int
		want      float64
	}{
		{"best case", 70, 30e6, 6, 1.0},
		{"outer rate band", 45, 30e6, 6, 0.9},
		{"outer bandwidth band", 70, 90e6, 6, 0.9},
		{"minimal diversity", 70, 30e6, 3, 0.9},
		{"worst case", 10, 1e6, 1, 0.3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Confidence(tc.hopRate, tc.bandwidth, tc.unique)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	detectedAt := start.Add(time.Hour)

	c := NewClassifier(DefaultThresholds())
	c.now = func() time.Time { return detectedAt }

	t.Run("futaba window", func(t *testing.T) {
		// 100 hops over 2s is 50 Hz, 30 MHz wide, 4 distinct MHz buckets
		hops := hopsOver(start, 2*time.Second, 100, 420e6, 430e6, 440e6, 450e6)

		d, s, err := c.Classify(hops)
		require.NoError(t, err)
		require.NotNil(t, d)

		assert.Equal(t, LabelFutaba, d.Classification)
		assert.InDelta(t, 50, d.HopRate, 1e-9)
		assert.InDelta(t, 30e6, d.Bandwidth, 1e-6)
		assert.InDelta(t, 435e6, d.Frequency, 1e-6)
		assert.InDelta(t, -50, d.SignalStrength, 1e-9)
		assert.InDelta(t, 0.4+0.3+0.2, d.Confidence, 1e-9)
		assert.Equal(t, detectedAt, d.DetectedAt)
		assert.Equal(t, 4, s.UniqueFrequencies)
	})

	t.Run("two unique frequencies never detect", func(t *testing.T) {
		hops := hopsOver(start, 2*time.Second, 100, 420e6, 450e6)

		d, s, err := c.Classify(hops)
		require.NoError(t, err)
		assert.Nil(t, d)
		assert.Equal(t, 2, s.UniqueFrequencies)
	})

	t.Run("hop rate outside the gate", func(t *testing.T) {
		hops := hopsOver(start, 10*time.Second, 100, 420e6, 430e6, 440e6)

		d, _, err := c.Classify(hops)
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("fixed frequency label", func(t *testing.T) {
		hops := hopsOver(start, time.Second, 70, 433.2e6, 434.1e6, 435.3e6)

		d, _, err := c.Classify(hops)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, LabelFixed, d.Classification)
	})

	t.Run("degenerate window is skipped", func(t *testing.T) {
		hops := hopsOver(start, 0, 100, 420e6, 430e6, 440e6)

		d, _, err := c.Classify(hops)
		assert.ErrorIs(t, err, ErrDegenerateWindow)
		assert.Nil(t, d)
	})
}

func TestThresholds_Validate(t *testing.T) {
	valid := DefaultThresholds()
	require.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		modify func(t *Thresholds)
	}{
		{"min hops", func(t *Thresholds) { t.MinHops = 1 }},
		{"non-positive rate", func(t *Thresholds) { t.HopRateMin = 0 }},
		{"inverted rate range", func(t *Thresholds) { t.HopRateMin, t.HopRateMax = 100, 40 }},
		{"unique frequencies", func(t *Thresholds) { t.MinUniqueFrequencies = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			th := DefaultThresholds()
			tc.modify(&th)
			assert.Error(t, th.Validate())
		})
	}
}
