package dsp

import (
	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// DefaultPowerThreshold is the minimum power in dB for a bin to count as a peak.
const DefaultPowerThreshold = -80.0

// DetectPeaks returns the indices of bins that are strictly greater than both
// neighbours and above threshold. The first and last bins are never peaks.
// Adjacent or nearby peaks are not merged.
func DetectPeaks(power []float32, threshold float64) []int {
	var peaks []int
	for i := 1; i < len(power)-1; i++ {
		p := power[i]
		if float64(p) > threshold && p > power[i-1] && p > power[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// FramePeaks resolves the peaks of a frame into absolute frequencies.
func FramePeaks(frame spectrum.Frame, threshold float64) []spectrum.Peak {
	indices := DetectPeaks(frame.Power, threshold)
	if len(indices) == 0 {
		return nil
	}

	peaks := make([]spectrum.Peak, 0, len(indices))
	for _, i := range indices {
		peaks = append(peaks, spectrum.Peak{
			Bin:       i,
			Frequency: frame.BinFrequency(i),
			Power:     float64(frame.Power[i]),
		})
	}
	return peaks
}
