package app

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme represents a predefined color scheme for power visualization.
type ColorTheme string

const (
	DefaultTheme   ColorTheme = "default"   // Blue to cyan to yellow to red, enhanced contrast
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white
	HueTheme       ColorTheme = "hue"       // Linear hue sweep from blue to red

	DefaultColorMapSize = 256
)

var validThemes = map[ColorTheme]struct{}{
	DefaultTheme:   {},
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
	HueTheme:       {},
}

// ParseColorTheme validates a theme name.
func ParseColorTheme(name string) (ColorTheme, error) {
	theme := ColorTheme(name)
	if _, ok := validThemes[theme]; !ok {
		return "", fmt.Errorf("unknown color theme: %s", name)
	}
	return theme, nil
}

// ColorMapper maps power values to colors through a pre-computed gradient
type ColorMapper struct {
	colorMap      []color.Color
	theme         func(float64) color.Color
	themeName     ColorTheme
	size          int
	powerPerIndex float64
	boundsMin     float64
}

// NewColorMapper creates a new color mapper with specified theme and bounds,
// using DefaultColorMapSize colors.
func NewColorMapper(theme ColorTheme, bounds PowerBounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a new color mapper with size gradient steps.
func NewColorMapperWithSize(theme ColorTheme, bounds PowerBounds, size int) *ColorMapper {
	if size <= 1 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		size:      size,
	}

	for i := 0; i < cm.size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(cm.size-1))
	}

	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds changes the power range covered by the gradient
func (cm *ColorMapper) UpdateBounds(bounds PowerBounds) {
	cm.boundsMin = bounds.Min
	cm.powerPerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)
}

// Color returns the color for the given power value, clamped to the gradient
func (cm *ColorMapper) Color(power float64) color.Color {
	if cm.powerPerIndex <= 0 || math.IsNaN(power) {
		return cm.colorMap[0]
	}

	index := int((power - cm.boundsMin) / cm.powerPerIndex)
	switch {
	case index < 0:
		return cm.colorMap[0]
	case index >= cm.size:
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// Size returns the color map size
func (cm *ColorMapper) Size() int {
	return cm.size
}

func hsv(h, s, v float64) color.Color {
	return colorful.Hsv(math.Mod(h+360, 360), s, v).Clamped()
}

// getColorTheme returns a gradient function over normalized power [0, 1]
func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(p float64) color.Color {
			return hsv(240-(p*240), 0.9+(p*0.1), math.Pow(p, 0.7))
		}

	case GrayscaleTheme:
		return func(p float64) color.Color {
			v := uint8(math.Pow(p, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	case JungleTheme:
		return func(p float64) color.Color {
			return hsv(120-(p*60), 1.0, 0.3+(math.Pow(p, 0.6)*0.7))
		}

	case ThermalTheme:
		return func(p float64) color.Color {
			switch {
			case p < 0.33:
				return color.RGBA{R: uint8(p * 3 * 255), A: 255}
			case p < 0.66:
				return color.RGBA{R: 255, G: uint8((p - 0.33) * 3 * 255), A: 255}
			default:
				return color.RGBA{R: 255, G: 255, B: uint8(min(1, (p-0.66)*3) * 255), A: 255}
			}
		}

	case MarineTheme:
		return func(p float64) color.Color {
			return hsv(240-(p*60), 1.0-(p*0.8), 0.3+(math.Pow(p, 0.6)*0.7))
		}

	case HueTheme:
		return func(p float64) color.Color {
			return hsv(236*(1-p), 1, 0.9)
		}

	default:
		return func(p float64) color.Color {
			p = math.Max(0, math.Min(1, p))
			enhanced := math.Pow(p, 0.7)

			switch {
			case p < 0.25:
				return hsv(240, 1.0, enhanced*4)
			case p < 0.5:
				return hsv(240-((p-0.25)*240), 1.0, enhanced*1.5)
			case p < 0.75:
				return hsv(180-((p-0.5)*4*120), 1.0, math.Min(1.0, enhanced*1.5))
			default:
				return hsv(60-((p-0.75)*4*60), 1.0, 1.0)
			}
		}
	}
}
