package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/freefree-simulator/internal/logging"
	"github.com/signalsfoundry/freefree-simulator/internal/units"
	"github.com/signalsfoundry/freefree-simulator/model"
)

// MapRole identifies one of the two input maps.
type MapRole int

const (
	RoleHalpha MapRole = iota
	RoleDust
)

func (r MapRole) String() string {
	switch r {
	case RoleHalpha:
		return "H-alpha"
	case RoleDust:
		return "dust"
	default:
		return fmt.Sprintf("MapRole(%d)", int(r))
	}
}

// RequiredUnit is the only unit accepted for the role.
func (r MapRole) RequiredUnit() string {
	if r == RoleDust {
		return units.MJyPerSr
	}
	return units.Rayleigh
}

// MapSource locates an input map and declares its unit. An empty Unit
// falls back to the unit recorded in the file.
type MapSource struct {
	Path string
	Unit string
}

// checkUnit fails with UnsupportedUnitError unless unit denotes the role's
// required unit.
func checkUnit(role MapRole, unit string) error {
	canon, ok := units.CanonicalMapUnit(unit)
	if !ok || canon != role.RequiredUnit() {
		return &UnsupportedUnitError{Role: role, Unit: unit, Want: role.RequiredUnit()}
	}
	return nil
}

// ingest loads one input map, checks its unit and brings it to nside.
func (p *Pipeline) ingest(ctx context.Context, role MapRole, src MapSource) (*model.SkyMap, error) {
	if src.Unit != "" {
		if err := checkUnit(role, src.Unit); err != nil {
			return nil, err
		}
	}

	m, err := p.loader.LoadMap(ctx, src.Path)
	if err != nil {
		return nil, fmt.Errorf("load %s map: %w", role, err)
	}
	if src.Unit == "" {
		if err := checkUnit(role, m.Unit); err != nil {
			return nil, err
		}
	}
	m.Unit = role.RequiredUnit()
	p.log.Info(ctx, "loaded map",
		logging.String("role", role.String()),
		logging.Path(src.Path),
		logging.NSide(m.NSide),
	)

	if m.NSide != p.cfg.NSide {
		native := m.NSide
		m, err = p.resampler.Resample(ctx, m, p.cfg.NSide)
		if err != nil {
			return nil, fmt.Errorf("resample %s map from nside %d to %d: %w", role, native, p.cfg.NSide, err)
		}
		p.log.Info(ctx, "changed map resolution",
			logging.String("role", role.String()),
			logging.Int("from_nside", native),
			logging.Int("to_nside", p.cfg.NSide),
		)
	}
	return m, nil
}
