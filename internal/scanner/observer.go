package scanner

import (
	"sync/atomic"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// Observer receives pipeline events. Methods are called synchronously from
// the session worker and must return quickly; an implementation that needs to
// do slow work should hand the event off to its own goroutine. Frames are
// shared between observers and must not be modified.
type Observer interface {
	// OnSpectrumUpdate is called once for every processed block.
	OnSpectrumUpdate(frame spectrum.Frame)

	// OnDroneDetected is called at most once per analysed hop window.
	OnDroneDetected(detection spectrum.Detection)

	// OnError reports connection and stream failures.
	OnError(err error)
}

// Observers fans events out to every observer in order.
type Observers []Observer

func (o Observers) OnSpectrumUpdate(frame spectrum.Frame) {
	for _, observer := range o {
		observer.OnSpectrumUpdate(frame)
	}
}

func (o Observers) OnDroneDetected(detection spectrum.Detection) {
	for _, observer := range o {
		observer.OnDroneDetected(detection)
	}
}

func (o Observers) OnError(err error) {
	for _, observer := range o {
		observer.OnError(err)
	}
}

// ObserverFuncs adapts plain functions to Observer. Nil functions are skipped.
type ObserverFuncs struct {
	Spectrum  func(frame spectrum.Frame)
	Detection func(detection spectrum.Detection)
	Error     func(err error)
}

func (f ObserverFuncs) OnSpectrumUpdate(frame spectrum.Frame) {
	if f.Spectrum != nil {
		f.Spectrum(frame)
	}
}

func (f ObserverFuncs) OnDroneDetected(detection spectrum.Detection) {
	if f.Detection != nil {
		f.Detection(detection)
	}
}

func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// ChannelObserver delivers events on buffered channels. Sends never block:
// an event that does not fit is dropped and counted.
type ChannelObserver struct {
	spectrum   chan spectrum.Frame
	detections chan spectrum.Detection
	errors     chan error
	dropped    atomic.Uint64
}

// NewChannelObserver creates a ChannelObserver with size slots per channel.
func NewChannelObserver(size int) *ChannelObserver {
	return &ChannelObserver{
		spectrum:   make(chan spectrum.Frame, size),
		detections: make(chan spectrum.Detection, size),
		errors:     make(chan error, size),
	}
}

func (c *ChannelObserver) Spectrum() <-chan spectrum.Frame {
	return c.spectrum
}

func (c *ChannelObserver) Detections() <-chan spectrum.Detection {
	return c.detections
}

func (c *ChannelObserver) Errors() <-chan error {
	return c.errors
}

// Dropped returns the number of events discarded because a channel was full.
func (c *ChannelObserver) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *ChannelObserver) OnSpectrumUpdate(frame spectrum.Frame) {
	select {
	case c.spectrum <- frame:
	default:
		c.dropped.Add(1)
	}
}

func (c *ChannelObserver) OnDroneDetected(detection spectrum.Detection) {
	select {
	case c.detections <- detection:
	default:
		c.dropped.Add(1)
	}
}

func (c *ChannelObserver) OnError(err error) {
	select {
	case c.errors <- err:
	default:
		c.dropped.Add(1)
	}
}
