package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/freefree-simulator/model"
)

const (
	// DustFraction is the effective fraction of line-of-sight dust that
	// absorbs H-alpha.
	DustFraction = 0.33
	// HalphaAbsorptionThreshold [mag] above which the true H-alpha
	// absorption is considered indeterminate.
	HalphaAbsorptionThreshold = 1.0

	// halphaAbsPerDust converts dust intensity [MJy/sr] to H-alpha
	// absorption [mag] (Dickinson et al. 2003, Eq. 1).
	halphaAbsPerDust = 0.0462
	// halphaCorrectionPerDust is the exponent scale of the correction
	// factor (Dickinson et al. 2003, Eq. 3).
	halphaCorrectionPerDust = 0.0185
)

// MaskStats describes the pixels removed from the dust map.
type MaskStats struct {
	Threshold float64
	Masked    int
	Total     int
}

// Percent returns the masked fraction of the sky in percent.
func (s MaskStats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Masked) / float64(s.Total)
}

// DustAbsorptionThreshold converts an H-alpha absorption threshold [mag]
// into the corresponding dust intensity threshold [MJy/sr].
func DustAbsorptionThreshold(halphaAbs, fDust float64) float64 {
	return halphaAbs / halphaAbsPerDust / fDust
}

// MaskDust returns a copy of dust with every pixel above threshold set to
// NaN. The input map is left untouched.
func MaskDust(dust *model.SkyMap, threshold float64) (*model.SkyMap, MaskStats) {
	out := dust.Clone()
	stats := MaskStats{Threshold: threshold, Total: out.Len()}
	for i, v := range out.Pixels {
		if v > threshold {
			out.Pixels[i] = math.NaN()
			stats.Masked++
		}
	}
	return out, stats
}

// CorrectHalpha applies the dust absorption correction
//
//	corrected = halpha * 10^(dust * 0.0185 * fDust)
//
// element-wise. NaN dust pixels yield NaN corrected pixels.
func CorrectHalpha(halpha, dust *model.SkyMap, fDust float64) (*model.SkyMap, error) {
	if halpha.NSide != dust.NSide || halpha.Len() != dust.Len() {
		return nil, fmt.Errorf("H-alpha map (nside %d) and dust map (nside %d) do not match", halpha.NSide, dust.NSide)
	}
	factor := make([]float64, dust.Len())
	for i, d := range dust.Pixels {
		factor[i] = math.Pow(10, d*halphaCorrectionPerDust*fDust)
	}
	out := halpha.Clone()
	floats.Mul(out.Pixels, factor)
	return out, nil
}
