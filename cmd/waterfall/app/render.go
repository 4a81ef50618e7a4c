package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 9.0
	tickMarkHeight = 5
	pixelsPerLabel = 150.0
	rowsPerLabel   = 80

	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the waterfall
type BorderConfig struct {
	Top    int // Space for frequency scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for waterfall visualization
type RenderConfig struct {
	TimeFormat     string         // Format string for time display (e.g. "15:04:05")
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display

	FontSize      float64
	ColorTheme    ColorTheme
	ColorMapSize  int          // Number of colors in gradient (0 for default)
	Bounds        *PowerBounds // Fixed power range, overrides the tracked bounds
	NoAnnotations bool

	BorderConfig BorderConfig
}

// WaterfallRenderer draws recorded spectrum rows as an image
type WaterfallRenderer struct {
	config RenderConfig
}

// NewWaterfallRenderer creates a renderer, filling zero config values with defaults
func NewWaterfallRenderer(config RenderConfig) *WaterfallRenderer {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.ColorTheme == "" {
		config.ColorTheme = DefaultTheme
	}

	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{}
	} else {
		if config.BorderConfig.Top == 0 {
			config.BorderConfig.Top = defaultTopBorder
		}
		if config.BorderConfig.Left == 0 {
			config.BorderConfig.Left = defaultLeftBorder
		}
		if config.BorderConfig.Bottom == 0 {
			config.BorderConfig.Bottom = defaultBottomBorder
		}
		if config.BorderConfig.Right == 0 {
			config.BorderConfig.Right = defaultRightBorder
		}
	}

	return &WaterfallRenderer{config: config}
}

// Render creates an image of the waterfall with annotations
func (r *WaterfallRenderer) Render(w *WaterfallData) (*image.RGBA, error) {
	if w.Width == 0 || w.Height == 0 {
		return nil, fmt.Errorf("nothing to render: %dx%d", w.Width, w.Height)
	}

	borders := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, w.Width+borders.Left+borders.Right, w.Height+borders.Top+borders.Bottom))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(borders.Left, borders.Top, borders.Left+w.Width, borders.Top+w.Height)

	bounds := w.BoundsTracker.Current()
	if r.config.Bounds != nil {
		bounds = *r.config.Bounds
	}

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(annotatorConfig{
			TimeFormat:     r.config.TimeFormat,
			DatetimeFormat: r.config.DatetimeFormat,
			Location:       r.config.Location,
			FontSize:       r.config.FontSize,
			Borders:        borders,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, w, bounds); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	colorMap := NewColorMapperWithSize(r.config.ColorTheme, bounds, r.config.ColorMapSize)
	for y, row := range w.Rows {
		for x, power := range row {
			img.Set(area.Min.X+x, area.Min.Y+y, colorMap.Color(float64(power)))
		}
	}

	return img, nil
}

type annotatorConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, w *WaterfallData, bounds PowerBounds) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawFrequencyScale(img, w); err != nil {
		return fmt.Errorf("drawing frequency scale: %w", err)
	}
	if err := a.drawTimeScale(img, w); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, w, bounds); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, w *WaterfallData) error {
	span := w.FrequencyMax - w.FrequencyMin
	if span <= 0 {
		return nil
	}

	step := calculateNiceFrequencyStep(span, w.Width)
	start := math.Ceil(w.FrequencyMin/step) * step

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := a.config.Borders.Top - fontHeight/2

	for freq := start; freq <= w.FrequencyMax; freq += step {
		x := a.config.Borders.Left + int((freq-w.FrequencyMin)/span*float64(w.Width))

		for y := a.config.Borders.Top - tickMarkHeight; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatFrequency(freq)
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(x-width.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, w *WaterfallData) error {
	rowDuration := w.RowDuration()
	if rowDuration <= 0 {
		return nil
	}

	step := calculateNiceTimeStep(rowDuration * rowsPerLabel)
	rowsPerStep := max(int(step/rowDuration), 1)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for y := 0; y < w.Height; y += rowsPerStep {
		imgY := y + a.config.Borders.Top

		for x := a.config.Borders.Left - tickMarkHeight; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		textY := imgY + fontHeight/2 - metrics.Descent.Round()
		at := w.TimestampStart.Add(time.Duration(y) * rowDuration)
		label := at.In(a.config.Location).Format(a.config.TimeFormat)
		if _, err := a.context.DrawString(label, freetype.Pt(10, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, w *WaterfallData, bounds PowerBounds) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Freq: %s - %s", formatFrequency(w.FrequencyMin), formatFrequency(w.FrequencyMax)))
	sb.WriteString(fmt.Sprintf("; Time: %s - %s",
		w.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		w.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString(fmt.Sprintf("; 1px = %s x %s", formatFrequency((w.FrequencyMax-w.FrequencyMin)/float64(w.Width)), w.RowDuration()))
	sb.WriteString(fmt.Sprintf("; Power: %.0f to %.0f dB", bounds.Min, bounds.Max))

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(a.config.Borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

func calculateNiceFrequencyStep(span float64, width int) float64 {
	steps := []float64{
		1_000,       // 1 kHz
		10_000,      // 10 kHz
		50_000,      // 50 kHz
		100_000,     // 100 kHz
		250_000,     // 250 kHz
		500_000,     // 500 kHz
		1_000_000,   // 1 MHz
		10_000_000,  // 10 MHz
		100_000_000, // 100 MHz
	}

	target := span / (float64(width) / pixelsPerLabel)

	for _, step := range steps {
		if step >= target {
			if span/step >= 2 {
				return step
			}
			break
		}
	}

	// at least the centre frequency
	return span / 2
}

func formatFrequency(freq float64) string {
	return humanize.SIWithDigits(freq, 3, "Hz")
}

func calculateNiceTimeStep(d time.Duration) time.Duration {
	intervals := []time.Duration{
		100 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		5 * time.Second,
		10 * time.Second,
		30 * time.Second,
		time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		time.Hour,
	}

	for _, interval := range intervals {
		if d <= interval {
			return interval
		}
	}

	return 6 * time.Hour
}
