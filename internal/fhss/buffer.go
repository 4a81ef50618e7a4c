package fhss

import (
	"fmt"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// DefaultWindowSize is the number of hops collected before a window is analysed.
const DefaultWindowSize = 100

// HopBuffer collects hops into fixed-size, non-overlapping windows. Hops are
// appended a frame at a time; once the buffer holds at least capacity hops the
// whole content is drained as one window and the buffer starts empty again.
//
// HopBuffer is not safe for concurrent use, it is owned by the worker that
// feeds it.
type HopBuffer struct {
	capacity int
	hops     []spectrum.Hop
}

// NewHopBuffer creates a buffer that releases a window every capacity hops.
func NewHopBuffer(capacity int) (*HopBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid buffer capacity: %d", capacity)
	}

	return &HopBuffer{
		capacity: capacity,
		hops:     make([]spectrum.Hop, 0, capacity),
	}, nil
}

// Insert appends hops for the peaks of one frame. Every hop is stamped with the
// frame capture time. When the buffer becomes full the window is returned and
// the buffer is cleared, otherwise nil is returned.
func (b *HopBuffer) Insert(frame spectrum.Frame, peaks []spectrum.Peak) []spectrum.Hop {
	for _, p := range peaks {
		b.hops = append(b.hops, spectrum.Hop{
			Frequency:  p.Frequency,
			ObservedAt: frame.CapturedAt,
			Power:      p.Power,
		})
	}

	if !b.IsFull() {
		return nil
	}

	return b.DrainAll()
}

// IsFull returns true if the buffer has reached its capacity.
func (b *HopBuffer) IsFull() bool {
	return len(b.hops) >= b.capacity
}

// DrainAll removes and returns all hops from the buffer.
// Returns nil if the buffer is empty.
func (b *HopBuffer) DrainAll() []spectrum.Hop {
	if len(b.hops) == 0 {
		return nil
	}

	window := b.hops
	b.hops = make([]spectrum.Hop, 0, b.capacity)
	return window
}

// Size returns the current number of hops in the buffer.
func (b *HopBuffer) Size() int {
	return len(b.hops)
}

// Clear removes all hops from the buffer.
func (b *HopBuffer) Clear() {
	b.hops = b.hops[:0]
}
