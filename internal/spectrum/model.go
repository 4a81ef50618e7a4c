package spectrum

import (
	"time"
)

// ScanSession represents a single recording session against a specific receiver.
// Each session captures metadata about when and how the scanning was performed.
type ScanSession struct {
	ID        int64     `json:"ID"`                      // Unique identifier for the session
	RunID     string    `json:"runID"`                   // Identifier of the detector run that produced the session
	StartTime time.Time `json:"startTime"`               // When the scanning session began
	Receiver  string    `json:"receiver"`                // Receiver address (e.g., "127.0.0.1:1234")
	Config    *string   `json:"config,string,omitempty"` // Optional receiver configuration in JSON format
}

// Frame is a single power spectrum computed from one block of I/Q samples.
// Power is kept in transform output order and BinFrequency applies a linear
// offset around bin N/2.
type Frame struct {
	CenterFrequency float64   `json:"centerFrequency"` // Tuned centre frequency in Hz
	SampleRate      float64   `json:"sampleRate"`      // Sample rate in Hz
	CapturedAt      time.Time `json:"capturedAt"`      // Wall-clock time the block was processed
	Power           []float32 `json:"power"`           // Power per bin in dB
}

// Bins returns the number of bins in the frame.
func (f Frame) Bins() int {
	return len(f.Power)
}

// BinWidth returns the width of a single bin in Hz.
func (f Frame) BinWidth() float64 {
	if len(f.Power) == 0 {
		return 0
	}
	return f.SampleRate / float64(len(f.Power))
}

// BinFrequency maps bin index i to an absolute frequency in Hz.
func (f Frame) BinFrequency(i int) float64 {
	n := len(f.Power)
	return f.CenterFrequency + float64(i-n/2)*f.SampleRate/float64(n)
}

// FrequencyRange returns the frequencies of the lowest and highest bins.
func (f Frame) FrequencyRange() (low, high float64) {
	if len(f.Power) == 0 {
		return f.CenterFrequency, f.CenterFrequency
	}
	return f.BinFrequency(0), f.BinFrequency(len(f.Power) - 1)
}

// Peak is a local maximum in a frame.
type Peak struct {
	Bin       int     `json:"bin"`
	Frequency float64 `json:"frequency"` // Hz
	Power     float64 `json:"power"`     // dB
}

// Hop is a single peak observation used for hop-pattern analysis.
type Hop struct {
	Frequency  float64   `json:"frequency"` // Hz
	ObservedAt time.Time `json:"observedAt"`
	Power      float64   `json:"power"` // dB
}

// Detection is the result of classifying a window of hops as a
// frequency-hopping control link or a fixed emitter.
type Detection struct {
	Frequency      float64   `json:"frequency"`      // Midpoint of the observed hop range in Hz
	SignalStrength float64   `json:"signalStrength"` // Mean hop power in dB
	Classification string    `json:"classification"` // Protocol label
	Confidence     float64   `json:"confidence"`     // 0..1
	DetectedAt     time.Time `json:"detectedAt"`
	HopRate        float64   `json:"hopRate"`   // Hops per second
	Bandwidth      float64   `json:"bandwidth"` // Hz
}
