package app

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWaterfall(rows, bins int) *WaterfallData {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	w := NewWaterfallData(NewSmoothBounds(0.3), 1)
	for y := 0; y < rows; y++ {
		power := make([]float32, bins)
		for x := range power {
			power[x] = -100
		}
		power[bins/2] = -20
		w.Update(frameAt(start.Add(time.Duration(y)*100*time.Millisecond), power...))
	}
	return w
}

func TestWaterfallRenderer_Render(t *testing.T) {
	w := testWaterfall(50, 256)

	r := NewWaterfallRenderer(RenderConfig{Location: time.UTC})
	img, err := r.Render(w)
	require.NoError(t, err)

	size := img.Bounds().Size()
	assert.Equal(t, 256+defaultLeftBorder+defaultRightBorder, size.X)
	assert.Equal(t, 50+defaultTopBorder+defaultBottomBorder, size.Y)
}

func TestWaterfallRenderer_NoAnnotations(t *testing.T) {
	w := testWaterfall(10, 64)
	bounds := PowerBounds{Min: -100, Max: -40}

	r := NewWaterfallRenderer(RenderConfig{
		ColorTheme:    GrayscaleTheme,
		Bounds:        &bounds,
		NoAnnotations: true,
	})
	img, err := r.Render(w)
	require.NoError(t, err)

	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(32, 5))
}

func TestWaterfallRenderer_Empty(t *testing.T) {
	r := NewWaterfallRenderer(RenderConfig{})
	_, err := r.Render(NewWaterfallData(NewSmoothBounds(0.3), 1))
	assert.Error(t, err)
}

func TestCalculateNiceFrequencyStep(t *testing.T) {
	assert.Equal(t, 500_000.0, calculateNiceFrequencyStep(2_048_000, 1024))
	assert.Equal(t, 5_000.0, calculateNiceFrequencyStep(10_000, 1024))
	assert.Equal(t, 2_000_000.0, calculateNiceFrequencyStep(4_000_000, 64))
}

func TestCalculateNiceTimeStep(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, calculateNiceTimeStep(50*time.Millisecond))
	assert.Equal(t, 10*time.Second, calculateNiceTimeStep(8*time.Second))
	assert.Equal(t, 6*time.Hour, calculateNiceTimeStep(10*time.Hour))
}

func TestFormatFrequency(t *testing.T) {
	assert.Equal(t, "433.92 MHz", formatFrequency(433_920_000))
}
