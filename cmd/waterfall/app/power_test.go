package app

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPowerHistogram_PercentileBounds(t *testing.T) {
	t.Run("too few samples", func(t *testing.T) {
		h := NewPowerHistogram()
		for i := 0; i < minimumSampleCount-1; i++ {
			h.Add(-50)
		}
		assert.Equal(t, defaultPowerBounds(), h.PercentileBounds())
	})

	t.Run("narrow distribution is widened", func(t *testing.T) {
		h := NewPowerHistogram()
		for i := 0; i < 100; i++ {
			h.Add(-60.5)
		}

		bounds := h.PercentileBounds()
		assert.Equal(t, -61.0, bounds.Mean)
		assert.Equal(t, -79.0, bounds.Min)
		assert.Equal(t, -43.0, bounds.Max)
	})

	t.Run("wide distribution", func(t *testing.T) {
		h := NewPowerHistogram()
		for p := -120; p < -20; p++ {
			h.Add(float64(p))
		}

		bounds := h.PercentileBounds()
		assert.Equal(t, -125.0, bounds.Min)
		assert.Equal(t, -16.0, bounds.Max)
	})

	t.Run("non-finite values are ignored", func(t *testing.T) {
		h := NewPowerHistogram()
		h.Add(math.NaN())
		h.Add(math.Inf(-1))
		assert.Zero(t, h.Count())
	})
}

func TestSmoothBounds_Update(t *testing.T) {
	s := NewSmoothBounds(0.5)
	assert.Equal(t, defaultPowerBounds(), s.Update(nil))

	row := make([]float32, 100)
	for i := range row {
		row[i] = -60.5
	}

	bounds := s.Update(row)
	assert.Equal(t, (defaultMinPower-79.0)/2, bounds.Min)
	assert.Equal(t, (defaultMaxPower-43.0)/2, bounds.Max)
	assert.Equal(t, bounds, s.Current())

	s.Clear()
	assert.Equal(t, defaultPowerBounds(), s.Current())
}
