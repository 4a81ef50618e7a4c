package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

func TestChannelObserver_DropsWhenFull(t *testing.T) {
	o := NewChannelObserver(1)

	o.OnSpectrumUpdate(spectrum.Frame{CenterFrequency: 1})
	o.OnSpectrumUpdate(spectrum.Frame{CenterFrequency: 2})
	o.OnDroneDetected(spectrum.Detection{Classification: "a"})
	o.OnError(errors.New("boom"))
	o.OnError(errors.New("boom again"))

	assert.Equal(t, uint64(2), o.Dropped())
	assert.Equal(t, 1.0, (<-o.Spectrum()).CenterFrequency)
	assert.Equal(t, "a", (<-o.Detections()).Classification)
	assert.EqualError(t, <-o.Errors(), "boom")
}

func TestObservers_FanOut(t *testing.T) {
	var calls []string

	o := Observers{
		ObserverFuncs{Spectrum: func(spectrum.Frame) { calls = append(calls, "first") }},
		ObserverFuncs{},
		ObserverFuncs{
			Spectrum:  func(spectrum.Frame) { calls = append(calls, "second") },
			Detection: func(spectrum.Detection) { calls = append(calls, "detection") },
			Error:     func(error) { calls = append(calls, "error") },
		},
	}

	o.OnSpectrumUpdate(spectrum.Frame{})
	o.OnDroneDetected(spectrum.Detection{})
	o.OnError(errors.New("x"))

	assert.Equal(t, []string{"first", "second", "detection", "error"}, calls)
}
