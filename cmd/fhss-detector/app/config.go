package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/fhss-detector/internal/publish"
	"github.com/roman-kulish/fhss-detector/internal/scanner"
	"github.com/roman-kulish/fhss-detector/internal/sdr/rtltcp"
)

const (
	defaultDataDirectory = "data"
	defaultMaxBatchSize  = 100
	defaultQueueSize     = 256
	defaultHTTPAddress   = "127.0.0.1:8080"

	// six bound parameters per frame row
	maxBatchSizeLimit = 1000
)

// Config represents the main application configuration
type Config struct {
	Settings Settings            `yaml:"settings"`
	Receiver rtltcp.Config       `yaml:"receiver"`
	Server   rtltcp.ServerConfig `yaml:"server"`
	Detector scanner.Config      `yaml:"detector"`
	Storage  StorageConfig       `yaml:"storage"`
	HTTP     HTTPConfig          `yaml:"http"`
	MQTT     publish.Config      `yaml:"mqtt"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel"`
}

// StorageConfig represents spectrum recording settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
	EveryNth      int    `yaml:"everyNth"`  // keep one frame in N (default: 1, every frame)
	QueueSize     int    `yaml:"queueSize"` // frames waiting to be written
}

// HTTPConfig represents the metrics and streaming listener
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultConfig returns a configuration that connects to a local rtl_tcp
// with every optional component disabled.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: slog.LevelInfo},
		Receiver: rtltcp.DefaultConfig(),
		Server: rtltcp.ServerConfig{
			StartupDelay: rtltcp.NewTimeDuration(rtltcp.DefaultStartupDelay),
		},
		Detector: scanner.DefaultConfig(),
		Storage: StorageConfig{
			DataDirectory: defaultDataDirectory,
			MaxBatchSize:  defaultMaxBatchSize,
			EveryNth:      1,
			QueueSize:     defaultQueueSize,
		},
		HTTP: HTTPConfig{
			Address: defaultHTTPAddress,
		},
		MQTT: publish.Config{
			Topic:     "fhss-detector",
			QueueSize: defaultQueueSize,
		},
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	if err = yaml.Unmarshal(p, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := c.Receiver.Validate(); err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	if c.Server.Enabled {
		if err := c.Server.Validate(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if c.HTTP.Enabled && c.HTTP.Address == "" {
		return fmt.Errorf("http: address is required")
	}
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > maxBatchSizeLimit {
		return fmt.Errorf("app.StorageConfig: max batch size must be within [1, %d]: %d given", maxBatchSizeLimit, c.MaxBatchSize)
	}
	if c.EveryNth <= 0 {
		return fmt.Errorf("app.StorageConfig: everyNth must be positive: %d given", c.EveryNth)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("app.StorageConfig: queue size must be positive: %d given", c.QueueSize)
	}
	return nil
}
