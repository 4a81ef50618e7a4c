package scanner

import (
	"fmt"

	"github.com/roman-kulish/fhss-detector/internal/dsp"
	"github.com/roman-kulish/fhss-detector/internal/fhss"
)

// Config holds the detection pipeline parameters.
type Config struct {
	FFTSize        int             `yaml:"fftSize" json:"fftSize"`               // complex samples per block (default: 1024)
	PowerThreshold float64         `yaml:"powerThreshold" json:"powerThreshold"` // peak threshold in dB (default: -80)
	WindowSize     int             `yaml:"windowSize" json:"windowSize"`         // hops per analysis window (default: 100)
	Thresholds     fhss.Thresholds `yaml:",inline" json:"thresholds"`
}

// DefaultConfig returns the calibrated pipeline defaults.
func DefaultConfig() Config {
	return Config{
		FFTSize:        dsp.DefaultFFTSize,
		PowerThreshold: dsp.DefaultPowerThreshold,
		WindowSize:     fhss.DefaultWindowSize,
		Thresholds:     fhss.DefaultThresholds(),
	}
}

func (c *Config) Validate() error {
	if c.FFTSize < 16 {
		return fmt.Errorf("scanner.Config: FFT size must be at least 16: %d given", c.FFTSize)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("scanner.Config: window size must be positive: %d given", c.WindowSize)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("scanner.Config: %w", err)
	}
	if c.WindowSize < c.Thresholds.MinHops {
		return fmt.Errorf("scanner.Config: window size %d is below minimum hops %d", c.WindowSize, c.Thresholds.MinHops)
	}

	return nil
}
