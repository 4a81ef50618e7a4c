package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultMaxRows = 2000
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	ListSessions  bool
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	TimeZone      *time.Location
	MinPower      *float64
	MaxPower      *float64
	StartTime     *time.Time
	EndTime       *time.Time
	MaxRows       int
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Theme:    DefaultTheme,
		TimeZone: time.Local,
		MaxRows:  defaultMaxRows,
	}
}

// ParseArgs builds a Config from command line arguments. Usage is written to output on error.
func ParseArgs(args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("waterfall", flag.ContinueOnError)
	fs.SetOutput(output)

	var imageFormat, theme, timeZone, start, end string
	var minPower, maxPower float64
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.SessionID, "s", 1, "Session ID")
	fs.BoolVar(&c.ListSessions, "list", false, "List recorded sessions and exit")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(DefaultTheme), "Color theme. [default, classic, grayscale, jungle, thermal, marine, hue]")
	fs.StringVar(&timeZone, "tz", "Local", "Time zone for time labels, e.g. UTC or Australia/Sydney")
	fs.StringVar(&start, "start", "", "Only render frames captured at or after this RFC3339 time")
	fs.StringVar(&end, "end", "", "Only render frames captured at or before this RFC3339 time")
	fs.IntVar(&c.MaxRows, "rows", defaultMaxRows, "Maximum image height in rows; consecutive frames are max-held to fit")
	fs.Float64Var(&minPower, "min-power", 0, "Define a manual minimum power (format nn.n)")
	fs.Float64Var(&maxPower, "max-power", 0, "Define a manual maximum power (format nn.n)")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and frequency scales")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-power":
			c.MinPower = &minPower
		case "max-power":
			c.MaxPower = &maxPower
		}
	})

	err := c.parse(strings.ToLower(imageFormat), strings.ToLower(theme), timeZone, start, end)
	if err != nil {
		fs.Usage()
		return nil, err
	}

	return c, nil
}

func (c *Config) parse(imageFormat, theme, timeZone, start, end string) (err error) {
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	if c.ListSessions {
		return nil
	}
	if c.SessionID <= 0 {
		return errors.New("session id is required")
	}
	if c.OutputFile == "" {
		return errors.New("output file is required")
	}
	if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		return fmt.Errorf("invalid image format: %s", imageFormat)
	}
	if c.Theme, err = ParseColorTheme(theme); err != nil {
		return err
	}
	if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
		return fmt.Errorf("invalid time zone: %w", err)
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("rows must be positive: %d", c.MaxRows)
	}
	if c.MinPower != nil && c.MaxPower != nil && *c.MinPower >= *c.MaxPower {
		return fmt.Errorf("min power %.1f must be below max power %.1f", *c.MinPower, *c.MaxPower)
	}

	if c.StartTime, err = parseTime(start); err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	if c.EndTime, err = parseTime(end); err != nil {
		return fmt.Errorf("invalid end time: %w", err)
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// powerBounds returns a fixed power range if either manual limit is set.
func (c *Config) powerBounds(tracked PowerBounds) *PowerBounds {
	if c.MinPower == nil && c.MaxPower == nil {
		return nil
	}

	bounds := tracked
	if c.MinPower != nil {
		bounds.Min = *c.MinPower
	}
	if c.MaxPower != nil {
		bounds.Max = *c.MaxPower
	}
	return &bounds
}
