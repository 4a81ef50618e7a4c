package app

import (
	"math"
	"time"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// WaterfallData accumulates recorded frames into image rows. Each row holds
// the per-bin maximum over framesPerRow consecutive frames.
type WaterfallData struct {
	Width, Height                int
	FrequencyMin, FrequencyMax   float64
	TimestampStart, TimestampEnd time.Time
	BoundsTracker                *SmoothBounds
	Rows                         [][]float32

	framesPerRow int
	pending      []float32
	pendingCount int
}

// NewWaterfallData creates an empty waterfall folding framesPerRow frames into each row.
func NewWaterfallData(b *SmoothBounds, framesPerRow int) *WaterfallData {
	return &WaterfallData{
		FrequencyMin:  math.MaxFloat64,
		BoundsTracker: b,
		framesPerRow:  max(framesPerRow, 1),
	}
}

// Update folds frame into the current row.
func (w *WaterfallData) Update(frame *spectrum.Frame) {
	if frame.Bins() == 0 {
		return
	}

	low, high := frame.FrequencyRange()
	w.FrequencyMin = min(w.FrequencyMin, low)
	w.FrequencyMax = max(w.FrequencyMax, high)
	w.Width = max(w.Width, frame.Bins())

	if w.TimestampStart.IsZero() || w.TimestampStart.After(frame.CapturedAt) {
		w.TimestampStart = frame.CapturedAt
	}
	if w.TimestampEnd.IsZero() || w.TimestampEnd.Before(frame.CapturedAt) {
		w.TimestampEnd = frame.CapturedAt
	}

	if w.pending == nil {
		w.pending = make([]float32, len(frame.Power))
		copy(w.pending, frame.Power)
	} else {
		if len(frame.Power) > len(w.pending) {
			w.pending = append(w.pending, make([]float32, len(frame.Power)-len(w.pending))...)
		}
		for i, p := range frame.Power {
			w.pending[i] = max(w.pending[i], p)
		}
	}

	w.pendingCount++
	if w.pendingCount >= w.framesPerRow {
		w.Flush()
	}
}

// Flush closes the current row, if any.
func (w *WaterfallData) Flush() {
	if w.pending == nil {
		return
	}

	w.BoundsTracker.Update(w.pending)
	w.Rows = append(w.Rows, w.pending)
	w.Height = len(w.Rows)

	w.pending = nil
	w.pendingCount = 0
}

// RowDuration returns the average capture time covered by a single row.
func (w *WaterfallData) RowDuration() time.Duration {
	if w.Height == 0 {
		return 0
	}
	return w.TimestampEnd.Sub(w.TimestampStart) / time.Duration(w.Height)
}

// framesPerRow returns how many frames to fold per row to fit frames into maxRows.
func framesPerRow(frames int64, maxRows int) int {
	if maxRows <= 0 || frames <= int64(maxRows) {
		return 1
	}
	return int((frames + int64(maxRows) - 1) / int64(maxRows))
}
