package healpix

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/freefree-simulator/model"
)

// UDGrade upgrades or degrades a map to nsideOut.
//
// Degrading averages the valid (non-NaN) children of each parent pixel; a
// parent whose children are all NaN becomes NaN. Upgrading copies each
// parent value into its children. The output keeps the input ordering.
func UDGrade(m *model.SkyMap, nsideOut int) (*model.SkyMap, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("healpix: ud_grade input: %w", err)
	}
	if !ValidNSide(m.NSide) {
		return nil, fmt.Errorf("healpix: invalid input nside %d", m.NSide)
	}
	if !ValidNSide(nsideOut) {
		return nil, fmt.Errorf("healpix: invalid output nside %d", nsideOut)
	}
	if nsideOut == m.NSide {
		return m.Clone(), nil
	}

	nest := m.Pixels
	if m.Ordering != model.OrderingNested {
		var err error
		if nest, err = ReorderToNest(m.Pixels, m.NSide); err != nil {
			return nil, err
		}
	}

	var out []float64
	if nsideOut < m.NSide {
		out = degradeNested(nest, m.NSide, nsideOut)
	} else {
		out = upgradeNested(nest, m.NSide, nsideOut)
	}

	if m.Ordering != model.OrderingNested {
		var err error
		if out, err = ReorderToRing(out, nsideOut); err != nil {
			return nil, err
		}
	}

	return &model.SkyMap{
		Pixels:   out,
		NSide:    nsideOut,
		Unit:     m.Unit,
		Ordering: m.Ordering,
	}, nil
}

func degradeNested(in []float64, nsideIn, nsideOut int) []float64 {
	ratio := (nsideIn / nsideOut) * (nsideIn / nsideOut)
	out := make([]float64, model.NPix(nsideOut))
	valid := make([]float64, 0, ratio)
	for p := range out {
		valid = valid[:0]
		for _, v := range in[p*ratio : (p+1)*ratio] {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				valid = append(valid, v)
			}
		}
		if len(valid) == 0 {
			out[p] = math.NaN()
			continue
		}
		out[p] = floats.Sum(valid) / float64(len(valid))
	}
	return out
}

func upgradeNested(in []float64, nsideIn, nsideOut int) []float64 {
	ratio := (nsideOut / nsideIn) * (nsideOut / nsideIn)
	out := make([]float64, model.NPix(nsideOut))
	for p, v := range in {
		children := out[p*ratio : (p+1)*ratio]
		for i := range children {
			children[i] = v
		}
	}
	return out
}

// Resampler adapts UDGrade to the pipeline's resampling collaborator.
type Resampler struct{}

// Resample returns m at the target resolution.
func (Resampler) Resample(ctx context.Context, m *model.SkyMap, nside int) (*model.SkyMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return UDGrade(m, nside)
}

// ToRing returns m in RING ordering, reordering NESTED input.
func ToRing(m *model.SkyMap) (*model.SkyMap, error) {
	if m.Ordering != model.OrderingNested {
		return m, nil
	}
	ring, err := ReorderToRing(m.Pixels, m.NSide)
	if err != nil {
		return nil, err
	}
	return &model.SkyMap{Pixels: ring, NSide: m.NSide, Unit: m.Unit, Ordering: model.OrderingRing}, nil
}
