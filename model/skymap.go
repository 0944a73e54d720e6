package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Ordering is the HEALPix pixel ordering scheme of a map.
type Ordering string

const (
	OrderingRing   Ordering = "RING"
	OrderingNested Ordering = "NESTED"
)

// NPix returns the number of pixels of a full-sky map at the given Nside.
func NPix(nside int) int {
	return 12 * nside * nside
}

// SkyMap is a full-sky HEALPix map. Invalid pixels hold NaN.
type SkyMap struct {
	Pixels   []float64
	NSide    int
	Unit     string
	Ordering Ordering
}

// NewSkyMap allocates a zero-valued RING map.
func NewSkyMap(nside int, unit string) *SkyMap {
	return &SkyMap{
		Pixels:   make([]float64, NPix(nside)),
		NSide:    nside,
		Unit:     unit,
		Ordering: OrderingRing,
	}
}

// Len returns the number of pixels.
func (m *SkyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Pixels)
}

// Clone returns a deep copy of the map.
func (m *SkyMap) Clone() *SkyMap {
	if m == nil {
		return nil
	}
	out := *m
	out.Pixels = make([]float64, len(m.Pixels))
	copy(out.Pixels, m.Pixels)
	return &out
}

// Validate checks that the pixel count matches Nside.
func (m *SkyMap) Validate() error {
	if m == nil {
		return fmt.Errorf("nil sky map")
	}
	if m.NSide <= 0 {
		return fmt.Errorf("invalid nside %d", m.NSide)
	}
	if want := NPix(m.NSide); len(m.Pixels) != want {
		return fmt.Errorf("nside %d requires %d pixels, got %d", m.NSide, want, len(m.Pixels))
	}
	return nil
}

// MaskedCount returns the number of NaN pixels.
func (m *SkyMap) MaskedCount() int {
	n := 0
	for _, v := range m.Pixels {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Summary holds basic statistics over the valid pixels of a map.
type Summary struct {
	Valid  int
	Masked int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Summary computes statistics over the non-NaN pixels. With no valid
// pixels every statistic is NaN.
func (m *SkyMap) Summary() Summary {
	valid := make([]float64, 0, len(m.Pixels))
	for _, v := range m.Pixels {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	s := Summary{Valid: len(valid), Masked: len(m.Pixels) - len(valid)}
	if len(valid) == 0 {
		nan := math.NaN()
		s.Min, s.Max, s.Mean, s.StdDev = nan, nan, nan, nan
		return s
	}
	s.Min = floats.Min(valid)
	s.Max = floats.Max(valid)
	if len(valid) == 1 {
		s.Mean = valid[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(valid, nil)
	return s
}
