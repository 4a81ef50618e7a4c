package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

func frameAt(at time.Time, power ...float32) *spectrum.Frame {
	return &spectrum.Frame{
		CenterFrequency: 433_920_000,
		SampleRate:      2_048_000,
		CapturedAt:      at,
		Power:           power,
	}
}

func TestFramesPerRow(t *testing.T) {
	tests := []struct {
		frames  int64
		maxRows int
		want    int
	}{
		{frames: 10, maxRows: 100, want: 1},
		{frames: 100, maxRows: 100, want: 1},
		{frames: 101, maxRows: 100, want: 2},
		{frames: 1000, maxRows: 100, want: 10},
		{frames: 1000, maxRows: 0, want: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, framesPerRow(tt.frames, tt.maxRows))
	}
}

func TestWaterfallData_Update(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	w := NewWaterfallData(NewSmoothBounds(0.3), 2)
	w.Update(frameAt(start, -90, -50, -80, -70))
	w.Update(frameAt(start.Add(time.Second), -60, -95, -85, -75))
	w.Update(frameAt(start.Add(2*time.Second), -40, -40, -40, -40))
	w.Update(frameAt(start, nil...))

	require.Equal(t, 1, w.Height, "second row still pending")
	w.Flush()
	w.Flush()

	require.Equal(t, 2, w.Height)
	assert.Equal(t, 4, w.Width)
	assert.Equal(t, []float32{-60, -50, -80, -70}, w.Rows[0])
	assert.Equal(t, []float32{-40, -40, -40, -40}, w.Rows[1])

	assert.Equal(t, start, w.TimestampStart)
	assert.Equal(t, start.Add(2*time.Second), w.TimestampEnd)
	assert.Equal(t, time.Second, w.RowDuration())

	low, high := frameAt(start, -1, -1, -1, -1).FrequencyRange()
	assert.Equal(t, low, w.FrequencyMin)
	assert.Equal(t, high, w.FrequencyMax)
}

func TestWaterfallData_WidensRow(t *testing.T) {
	w := NewWaterfallData(NewSmoothBounds(0.3), 2)
	w.Update(frameAt(time.Now(), -90, -90))
	w.Update(frameAt(time.Now(), -80, -95, -70))

	require.Len(t, w.Rows, 1)
	assert.Equal(t, []float32{-80, -90, -70}, w.Rows[0])
	assert.Equal(t, 3, w.Width)
}
