package app

import "math"

const (
	defaultMinPower = -120.0 // dB
	defaultMaxPower = -20.0  // dB

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20

	minimumRange = 30 // dB
)

// PowerBounds represents the calculated power boundaries
type PowerBounds struct {
	Min  float64 // 5th percentile power level in dB, less a margin
	Max  float64 // 95th percentile power level in dB, plus a margin
	Mean float64 // Mean power level in dB
}

func defaultPowerBounds() PowerBounds {
	return PowerBounds{
		Min:  defaultMinPower,
		Max:  defaultMaxPower,
		Mean: (defaultMinPower + defaultMaxPower) / 2,
	}
}

// PowerHistogram maintains a histogram of power values with 1dB bins
type PowerHistogram struct {
	bins       map[int]uint32
	totalCount uint64
	minBin     int
	maxBin     int
}

// NewPowerHistogram creates a new histogram
func NewPowerHistogram() *PowerHistogram {
	return &PowerHistogram{
		bins:   make(map[int]uint32),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

func getBinIndex(power float64) int {
	return int(math.Floor(power))
}

// scaleDown halves all bin counts
func (h *PowerHistogram) scaleDown() {
	h.minBin = math.MaxInt32
	h.maxBin = math.MinInt32

	for bin := range h.bins {
		h.bins[bin] /= 2
		if h.bins[bin] == 0 {
			delete(h.bins, bin)
			continue
		}

		h.minBin = min(h.minBin, bin)
		h.maxBin = max(h.maxBin, bin)
	}
	h.totalCount /= 2
}

// Add records a power reading. Non-finite values are ignored.
func (h *PowerHistogram) Add(power float64) {
	if math.IsNaN(power) || math.IsInf(power, 0) {
		return
	}

	bin := getBinIndex(power)

	if h.bins[bin] == math.MaxUint32 || h.totalCount == math.MaxUint64 {
		h.scaleDown()
	}

	h.bins[bin]++
	h.totalCount++

	h.minBin = min(h.minBin, bin)
	h.maxBin = max(h.maxBin, bin)
}

// Count returns the number of recorded readings.
func (h *PowerHistogram) Count() uint64 {
	return h.totalCount
}

// Clear resets the histogram
func (h *PowerHistogram) Clear() {
	h.bins = make(map[int]uint32)
	h.totalCount = 0
	h.minBin = math.MaxInt32
	h.maxBin = math.MinInt32
}

// PercentileBounds returns power bounds based on the 5th and 95th percentiles,
// widened to at least 30 dB and padded by 10%.
func (h *PowerHistogram) PercentileBounds() PowerBounds {
	if h.totalCount < minimumSampleCount {
		return defaultPowerBounds()
	}

	target := h.totalCount * 5 / 100

	var count uint64
	var low, high int

	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += uint64(h.bins[bin])
		if count >= target {
			low = bin
			break
		}
	}

	count = 0
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += uint64(h.bins[bin])
		if count >= target {
			high = bin
			break
		}
	}

	var sumProduct float64
	for bin, n := range h.bins {
		sumProduct += float64(bin) * float64(n)
	}
	mean := sumProduct / float64(h.totalCount)

	if high-low < minimumRange {
		center := (high + low) / 2
		low = center - minimumRange/2
		high = center + minimumRange/2
	}

	margin := (high - low) / 10

	return PowerBounds{
		Min:  float64(low - margin),
		Max:  float64(high + margin),
		Mean: mean,
	}
}

// SmoothBounds tracks percentile bounds across rows with exponential smoothing.
type SmoothBounds struct {
	hist    *PowerHistogram
	alpha   float64 // Smoothing factor (0-1)
	current PowerBounds
}

// NewSmoothBounds creates a new bounds smoother
func NewSmoothBounds(alpha float64) *SmoothBounds {
	return &SmoothBounds{
		hist:    NewPowerHistogram(),
		alpha:   alpha,
		current: defaultPowerBounds(),
	}
}

// Update adds a row of power readings and returns the smoothed bounds.
func (s *SmoothBounds) Update(powers []float32) PowerBounds {
	if len(powers) == 0 {
		return s.current
	}

	for _, p := range powers {
		s.hist.Add(float64(p))
	}

	bounds := s.hist.PercentileBounds()

	s.current.Min = s.current.Min*(1-s.alpha) + bounds.Min*s.alpha
	s.current.Max = s.current.Max*(1-s.alpha) + bounds.Max*s.alpha
	s.current.Mean = bounds.Mean

	return s.current
}

// Current returns the current smoothed power bounds
func (s *SmoothBounds) Current() PowerBounds {
	return s.current
}

// Clear resets the histogram and bounds
func (s *SmoothBounds) Clear() {
	s.hist.Clear()
	s.current = defaultPowerBounds()
}
