package fhss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

func peaksAt(freqs ...float64) []spectrum.Peak {
	peaks := make([]spectrum.Peak, 0, len(freqs))
	for i, f := range freqs {
		peaks = append(peaks, spectrum.Peak{Bin: i + 1, Frequency: f, Power: -40})
	}
	return peaks
}

func TestHopBuffer_WindowBoundary(t *testing.T) {
	b, err := NewHopBuffer(4)
	require.NoError(t, err)

	baseTime := time.Now()

	window := b.Insert(spectrum.Frame{CapturedAt: baseTime}, peaksAt(433e6, 434e6, 435e6))
	assert.Nil(t, window)
	assert.Equal(t, 3, b.Size())
	assert.False(t, b.IsFull())

	window = b.Insert(spectrum.Frame{CapturedAt: baseTime.Add(time.Millisecond)}, peaksAt(436e6))
	require.Len(t, window, 4)
	assert.Equal(t, 0, b.Size(), "buffer must be cleared after a window is released")

	assert.Equal(t, baseTime, window[0].ObservedAt)
	assert.Equal(t, baseTime.Add(time.Millisecond), window[3].ObservedAt)
	assert.Equal(t, 436e6, window[3].Frequency)
}

func TestHopBuffer_WholeFrameIsKept(t *testing.T) {
	b, err := NewHopBuffer(2)
	require.NoError(t, err)

	window := b.Insert(spectrum.Frame{CapturedAt: time.Now()}, peaksAt(1e6, 2e6, 3e6))
	assert.Len(t, window, 3)
	assert.Equal(t, 0, b.Size())
}

func TestHopBuffer_NoOverlap(t *testing.T) {
	b, err := NewHopBuffer(2)
	require.NoError(t, err)

	first := b.Insert(spectrum.Frame{CapturedAt: time.Now()}, peaksAt(1e6, 2e6))
	require.Len(t, first, 2)

	second := b.Insert(spectrum.Frame{CapturedAt: time.Now()}, peaksAt(3e6, 4e6))
	require.Len(t, second, 2)

	assert.Equal(t, 1e6, first[0].Frequency)
	assert.Equal(t, 3e6, second[0].Frequency, "released windows must not share hops")
}

func TestHopBuffer_EdgeCases(t *testing.T) {
	b, err := NewHopBuffer(5)
	require.NoError(t, err)

	assert.Nil(t, b.DrainAll())
	assert.False(t, b.IsFull())
	assert.Equal(t, 0, b.Size())
	assert.Nil(t, b.Insert(spectrum.Frame{}, nil))

	b.Insert(spectrum.Frame{}, peaksAt(1e6))
	b.Clear()
	assert.Equal(t, 0, b.Size())

	for _, capacity := range []int{0, -1} {
		_, err := NewHopBuffer(capacity)
		assert.Error(t, err)
	}
}
