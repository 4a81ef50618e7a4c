package dsp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

func TestDetectPeaks(t *testing.T) {
	testCases := []struct {
		name      string
		power     []float32
		threshold float64
		want      []int
	}{
		{
			name:      "single peak",
			power:     []float32{-100, -100, -50, -100, -100},
			threshold: DefaultPowerThreshold,
			want:      []int{2},
		},
		{
			name:      "monotonic rise",
			power:     []float32{-90, -80, -70, -60, -50},
			threshold: DefaultPowerThreshold,
			want:      nil,
		},
		{
			name:      "edges are excluded",
			power:     []float32{-10, -100, -100, -100, -10},
			threshold: DefaultPowerThreshold,
			want:      nil,
		},
		{
			name:      "below threshold",
			power:     []float32{-100, -100, -85, -100, -100},
			threshold: DefaultPowerThreshold,
			want:      nil,
		},
		{
			name:      "plateau is not strict",
			power:     []float32{-100, -50, -50, -100},
			threshold: DefaultPowerThreshold,
			want:      nil,
		},
		{
			name:      "nearby peaks are kept",
			power:     []float32{-100, -60, -70, -60, -100},
			threshold: DefaultPowerThreshold,
			want:      []int{1, 3},
		},
		{
			name:      "too short",
			power:     []float32{-10, -10},
			threshold: DefaultPowerThreshold,
			want:      nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectPeaks(tc.power, tc.threshold))
		})
	}
}

func TestFramePeaks(t *testing.T) {
	frame := spectrum.Frame{
		CenterFrequency: 433_920_000,
		SampleRate:      2_048_000,
		CapturedAt:      time.Now(),
		Power:           []float32{-100, -100, -40, -100, -100, -100, -100, -100},
	}

	peaks := FramePeaks(frame, DefaultPowerThreshold)
	require.Len(t, peaks, 1)

	assert.Equal(t, 2, peaks[0].Bin)
	assert.InDelta(t, -40, peaks[0].Power, 1e-9)
	// (2 - 4) * 2.048 MHz / 8
	assert.InDelta(t, 433_920_000-512_000, peaks[0].Frequency, 1e-6)
}
