// Package config loads the JSON simulation configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/signalsfoundry/freefree-simulator/core"
	"github.com/signalsfoundry/freefree-simulator/internal/healpix"
	"github.com/signalsfoundry/freefree-simulator/internal/units"
)

// Frequency grid types.
const (
	FrequencyCustom = "custom"
	FrequencyCalc   = "calc"
)

// Defaults applied to omitted fields.
const (
	DefaultNSide         = 1024
	DefaultFrequencyUnit = units.MHz
	DefaultPrefix        = "gfree"
	DefaultOutputDir     = "output"
	maxFileSize          = 1 * 1024 * 1024
	// maxGridPoints bounds a computed frequency grid.
	maxGridPoints = 100000
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of the simulation configuration file.
type Config struct {
	Common    CommonConfig    `json:"common"`
	Frequency FrequencyConfig `json:"frequency"`
	Output    OutputConfig    `json:"output"`
	Galactic  GalacticConfig  `json:"galactic"`

	// dir is the directory relative paths resolve against.
	dir string
}

// CommonConfig holds settings shared by every component.
type CommonConfig struct {
	NSide int `json:"nside,omitempty"`
}

// FrequencyConfig selects the simulated frequencies, either an explicit
// list (custom) or a start/stop/step grid (calc).
type FrequencyConfig struct {
	Unit        string    `json:"unit,omitempty"`
	Type        string    `json:"type,omitempty"`
	Frequencies []float64 `json:"frequencies,omitempty"`
	Start       *float64  `json:"start,omitempty"`
	Stop        *float64  `json:"stop,omitempty"`
	Step        *float64  `json:"step,omitempty"`
}

// OutputConfig controls how products are written.
type OutputConfig struct {
	FilenamePattern string `json:"filename_pattern,omitempty"`
	FileType        string `json:"filetype,omitempty"`
	UseFloat        *bool  `json:"use_float,omitempty"`
	Checksum        *bool  `json:"checksum,omitempty"`
	Clobber         *bool  `json:"clobber,omitempty"`
	// Manifest is the SQLite database recording written products. Empty
	// keeps the manifest in memory.
	Manifest string `json:"manifest,omitempty"`
	// Quicklook writes a PNG histogram next to every map.
	Quicklook bool `json:"quicklook,omitempty"`
}

// GalacticConfig groups the Galactic emission components.
type GalacticConfig struct {
	FreeFree FreeFreeConfig `json:"freefree"`
}

// FreeFreeConfig configures the free-free component.
type FreeFreeConfig struct {
	HalphaMap     string `json:"halphamap"`
	HalphaMapUnit string `json:"halphamap_unit,omitempty"`
	DustMap       string `json:"dustmap"`
	DustMapUnit   string `json:"dustmap_unit,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Save          *bool  `json:"save,omitempty"`
	OutputDir     string `json:"output_dir,omitempty"`
}

func ptrBool(v bool) *bool { return &v }

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// LoadConfig reads, defaults and validates the configuration at path.
// Relative map and output paths resolve against the file's directory.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(cleanPath))
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg.dir = abs
	return cfg, nil
}

// Parse decodes JSON configuration data. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills omitted fields.
func (c *Config) ApplyDefaults() {
	if c.Common.NSide == 0 {
		c.Common.NSide = DefaultNSide
	}
	if c.Frequency.Unit == "" {
		c.Frequency.Unit = DefaultFrequencyUnit
	}
	if c.Frequency.Type == "" {
		c.Frequency.Type = FrequencyCustom
	}
	if c.Output.FilenamePattern == "" {
		c.Output.FilenamePattern = core.DefaultFilenamePattern
	}
	if c.Output.FileType == "" {
		c.Output.FileType = core.FileTypeFITS
	}
	if c.Output.UseFloat == nil {
		c.Output.UseFloat = ptrBool(true)
	}
	if c.Output.Checksum == nil {
		c.Output.Checksum = ptrBool(false)
	}
	if c.Output.Clobber == nil {
		c.Output.Clobber = ptrBool(false)
	}
	ff := &c.Galactic.FreeFree
	if ff.Prefix == "" {
		ff.Prefix = DefaultPrefix
	}
	if ff.Save == nil {
		ff.Save = ptrBool(true)
	}
	if ff.OutputDir == "" {
		ff.OutputDir = DefaultOutputDir
	}
}

// Validate checks the configuration after defaults have been applied.
// Map units are checked later by the pipeline, which reports the role.
func (c *Config) Validate() error {
	if !healpix.ValidNSide(c.Common.NSide) {
		return fmt.Errorf("%w: common.nside must be a power of two, got %d", ErrInvalid, c.Common.NSide)
	}
	if !units.IsValidFrequencyUnit(c.Frequency.Unit) {
		return fmt.Errorf("%w: frequency.unit %q (valid: %s)", ErrInvalid, c.Frequency.Unit, units.GetValidFrequencyUnitsString())
	}
	if _, err := c.Frequencies(); err != nil {
		return err
	}
	if c.Galactic.FreeFree.HalphaMap == "" {
		return fmt.Errorf("%w: galactic.freefree.halphamap is required", ErrInvalid)
	}
	if c.Galactic.FreeFree.DustMap == "" {
		return fmt.Errorf("%w: galactic.freefree.dustmap is required", ErrInvalid)
	}
	return nil
}

// Frequencies returns the frequencies to simulate in Frequency.Unit.
func (c *Config) Frequencies() ([]float64, error) {
	f := c.Frequency
	switch f.Type {
	case FrequencyCustom:
		if len(f.Frequencies) == 0 {
			return nil, fmt.Errorf("%w: frequency.frequencies is empty", ErrInvalid)
		}
		for _, v := range f.Frequencies {
			if !(v > 0) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: frequency %v must be positive", ErrInvalid, v)
			}
		}
		return append([]float64(nil), f.Frequencies...), nil
	case FrequencyCalc:
		if f.Start == nil || f.Stop == nil || f.Step == nil {
			return nil, fmt.Errorf("%w: frequency.start, stop and step are required for type %q", ErrInvalid, FrequencyCalc)
		}
		start, stop, step := *f.Start, *f.Stop, *f.Step
		if !(start > 0) || stop < start || !(step > 0) {
			return nil, fmt.Errorf("%w: frequency grid start=%v stop=%v step=%v", ErrInvalid, start, stop, step)
		}
		n := int(math.Floor((stop-start)/step+1e-9)) + 1
		if n > maxGridPoints {
			return nil, fmt.Errorf("%w: frequency grid has %d points (max %d)", ErrInvalid, n, maxGridPoints)
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = start + float64(i)*step
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: frequency.type %q (want %q or %q)", ErrInvalid, f.Type, FrequencyCustom, FrequencyCalc)
	}
}

// ResolvePath makes p absolute relative to the configuration file.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// ManifestPath returns the resolved manifest database path, or "".
func (c *Config) ManifestPath() string {
	return c.ResolvePath(c.Output.Manifest)
}

// PipelineConfig translates the file configuration for core.NewPipeline.
func (c *Config) PipelineConfig() core.Config {
	ff := c.Galactic.FreeFree
	return core.Config{
		Halpha:          core.MapSource{Path: c.ResolvePath(ff.HalphaMap), Unit: ff.HalphaMapUnit},
		Dust:            core.MapSource{Path: c.ResolvePath(ff.DustMap), Unit: ff.DustMapUnit},
		NSide:           c.Common.NSide,
		FrequencyUnit:   c.Frequency.Unit,
		Save:            boolOr(ff.Save, true),
		OutputDir:       c.ResolvePath(ff.OutputDir),
		Prefix:          ff.Prefix,
		FilenamePattern: c.Output.FilenamePattern,
		FileType:        c.Output.FileType,
		Float32:         boolOr(c.Output.UseFloat, true),
		Overwrite:       boolOr(c.Output.Clobber, false),
		Checksum:        boolOr(c.Output.Checksum, false),
	}
}
