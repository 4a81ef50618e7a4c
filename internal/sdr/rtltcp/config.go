package rtltcp

import (
	"fmt"
	"math"
	"net"
	"time"
)

const (
	DefaultAddress         = "127.0.0.1:1234"
	DefaultCenterFrequency = 433_920_000 // 433.92 MHz ISM band
	DefaultSampleRate      = 2_048_000
	DefaultDialTimeout     = 5 * time.Second

	// GainModeAuto is the default gain mode
	GainModeAuto   GainMode = "auto"
	GainModeManual GainMode = "manual"

	// Sample rates accepted by the RTL2832U, see librtlsdr rtlsdr_set_sample_rate
	sampleRateLowMin  = 225_001
	sampleRateLowMax  = 300_000
	sampleRateHighMin = 900_001
	sampleRateHighMax = 3_200_000

	GainMax = 500 // tenths of dB
)

var validGainModes = map[GainMode]struct{}{
	GainModeAuto:   {},
	GainModeManual: {},
}

type GainMode string

func (g GainMode) String() string {
	return string(g)
}

// Config describes the receiver endpoint and tuning. It is fixed for the
// lifetime of a connection.
type Config struct {
	Address     string       `yaml:"address" json:"address"`         // rtl_tcp host:port
	DialTimeout TimeDuration `yaml:"dialTimeout" json:"dialTimeout"` // connect timeout (default: 5s)
	Handshake   bool         `yaml:"handshake" json:"handshake"`     // read the 12-byte dongle info header before tuning

	CenterFrequency float64  `yaml:"centerFrequency" json:"centerFrequency"` // Hz
	SampleRate      int      `yaml:"sampleRate" json:"sampleRate"`           // Hz
	GainMode        GainMode `yaml:"gainMode" json:"gainMode"`               // auto (default) or manual
	Gain            int      `yaml:"gain" json:"gain"`                       // tenths of dB, manual mode only
	AGC             bool     `yaml:"agc" json:"agc"`                         // RTL2832 digital AGC
}

// DefaultConfig returns the receiver defaults: 433.92 MHz, 2.048 MS/s, auto gain and AGC on.
func DefaultConfig() Config {
	return Config{
		Address:         DefaultAddress,
		DialTimeout:     NewTimeDuration(DefaultDialTimeout),
		CenterFrequency: DefaultCenterFrequency,
		SampleRate:      DefaultSampleRate,
		GainMode:        GainModeAuto,
		AGC:             true,
	}
}

func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("rtltcp.Config: invalid address %q: %w", c.Address, err)
	}

	if c.DialTimeout < 0 {
		return fmt.Errorf("rtltcp.Config: dial timeout must not be negative: %s", c.DialTimeout)
	}

	if c.CenterFrequency <= 0 || c.CenterFrequency > math.MaxUint32 {
		return fmt.Errorf("rtltcp.Config: centre frequency out of range: %.0f", c.CenterFrequency)
	}

	if !(c.SampleRate >= sampleRateLowMin && c.SampleRate <= sampleRateLowMax) &&
		!(c.SampleRate >= sampleRateHighMin && c.SampleRate <= sampleRateHighMax) {
		return fmt.Errorf("rtltcp.Config: invalid sample rate: %d, must be within %d-%d or %d-%d Hz",
			c.SampleRate, sampleRateLowMin, sampleRateLowMax, sampleRateHighMin, sampleRateHighMax)
	}

	if c.GainMode != "" {
		if _, ok := validGainModes[c.GainMode]; !ok {
			return fmt.Errorf("rtltcp.Config: invalid gain mode: %s", c.GainMode)
		}
	}

	if c.GainMode == GainModeManual && (c.Gain < 0 || c.Gain > GainMax) {
		return fmt.Errorf("rtltcp.Config: gain must be between 0 and %d tenths of dB: %d given", GainMax, c.Gain)
	}

	return nil
}

// Commands returns the tuning sequence sent after connecting: frequency,
// sample rate, gain mode, manual gain (manual mode only) and AGC mode.
func (c *Config) Commands() []Message {
	gainMode := uint32(0)
	if c.GainMode == GainModeManual {
		gainMode = 1
	}

	agc := uint32(0)
	if c.AGC {
		agc = 1
	}

	messages := []Message{
		{SetFrequency, uint32(c.CenterFrequency)},
		{SetSampleRate, uint32(c.SampleRate)},
		{SetGainMode, gainMode},
	}

	if c.GainMode == GainModeManual {
		messages = append(messages, Message{SetGain, uint32(c.Gain)})
	}

	return append(messages, Message{SetAGCMode, agc})
}
