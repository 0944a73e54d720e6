// Package core simulates the diffuse Galactic free-free emission following
// Dickinson, Davies & Davis (2003): an H-alpha survey map is corrected for
// dust absorption with a 100-micron dust map and converted to brightness
// temperature with a frequency dependent ratio.
package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/freefree-simulator/internal/logging"
	"github.com/signalsfoundry/freefree-simulator/internal/units"
	"github.com/signalsfoundry/freefree-simulator/model"
	"github.com/signalsfoundry/freefree-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/freefree-simulator/core"

// State is the preprocessing stage a Pipeline has reached. It only moves
// forward.
type State int

const (
	StateUninitialized State = iota
	StateIngested
	StateCorrected
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIngested:
		return "ingested"
	case StateCorrected:
		return "corrected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MapLoader reads a full-sky map and its metadata.
type MapLoader interface {
	LoadMap(ctx context.Context, path string) (*model.SkyMap, error)
}

// Resampler changes the resolution of a map.
type Resampler interface {
	Resample(ctx context.Context, m *model.SkyMap, nside int) (*model.SkyMap, error)
}

// MapWriter persists a simulated map.
type MapWriter interface {
	WriteMap(ctx context.Context, path string, m *model.SkyMap, hdr *model.Header, opts model.WriteOptions) (model.WriteResult, error)
}

// ProductRecorder keeps a manifest of written maps.
type ProductRecorder interface {
	RecordProduct(ctx context.Context, p model.Product) error
}

// MetricsRecorder receives pipeline measurements.
type MetricsRecorder interface {
	ObservePreprocess(d time.Duration)
	ObserveSimulation(d time.Duration)
	SetMaskedFraction(fraction float64)
	IncMapsSimulated()
	IncMapsWritten()
}

// Config carries the already validated settings of a pipeline.
type Config struct {
	Halpha MapSource
	Dust   MapSource

	// NSide is the target resolution of every map.
	NSide int
	// FrequencyUnit is the unit of frequencies passed to Simulate.
	FrequencyUnit string

	Save            bool
	OutputDir       string
	Prefix          string
	FilenamePattern string
	FileType        string
	Float32         bool
	Overwrite       bool
	Checksum        bool
}

// Pipeline derives free-free emission maps. Preprocessing (ingestion and
// dust correction) runs once; each simulated frequency is computed fresh.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	cfg Config

	loader    MapLoader
	resampler Resampler
	writer    MapWriter
	products  ProductRecorder
	metrics   MetricsRecorder
	clock     timectrl.Clock
	log       logging.Logger
	tracer    trace.Tracer
	runID     string

	state     State
	halpha    *model.SkyMap
	dust      *model.SkyMap
	corrected *model.SkyMap
	mask      MaskStats
	header    *model.Header
}

// Option customises Pipeline construction.
type Option func(*Pipeline)

// WithLogger sets the reporter for progress and warning events.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithWriter sets the writer used when Config.Save is true.
func WithWriter(w MapWriter) Option {
	return func(p *Pipeline) { p.writer = w }
}

// WithProductRecorder records every written map.
func WithProductRecorder(r ProductRecorder) Option {
	return func(p *Pipeline) { p.products = r }
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock sets the clock used to date output headers.
func WithClock(c timectrl.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithRunID tags log lines and product records with a run identifier.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// NewPipeline wires a pipeline around its loader and resampler.
func NewPipeline(cfg Config, loader MapLoader, resampler Resampler, opts ...Option) (*Pipeline, error) {
	if loader == nil || resampler == nil {
		return nil, fmt.Errorf("%w: loader and resampler are required", ErrNotReady)
	}
	if cfg.NSide <= 0 {
		return nil, fmt.Errorf("%w: invalid nside %d", ErrNotReady, cfg.NSide)
	}
	if !units.IsValidFrequencyUnit(cfg.FrequencyUnit) {
		return nil, fmt.Errorf("%w: unknown frequency unit %q", ErrNotReady, cfg.FrequencyUnit)
	}
	if cfg.FileType == "" {
		cfg.FileType = FileTypeFITS
	}

	p := &Pipeline{
		cfg:       cfg,
		loader:    loader,
		resampler: resampler,
		clock:     timectrl.SystemClock{},
		log:       logging.Noop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.Save && p.writer == nil {
		return nil, fmt.Errorf("%w: saving requested without a map writer", ErrNotReady)
	}
	p.log = p.log.With(logging.String("component", ComponentName))
	if p.runID != "" {
		p.log = p.log.With(logging.String("run_id", p.runID))
	}
	return p, nil
}

// State returns the preprocessing stage reached so far.
func (p *Pipeline) State() State { return p.state }

// MaskStats returns the dust masking statistics; zero before correction.
func (p *Pipeline) MaskStats() MaskStats { return p.mask }

// HalphaMap returns a copy of the ingested H-alpha map, or nil.
func (p *Pipeline) HalphaMap() *model.SkyMap { return p.halpha.Clone() }

// DustMap returns a copy of the dust map; after correction it carries the
// NaN mask.
func (p *Pipeline) DustMap() *model.SkyMap { return p.dust.Clone() }

// CorrectedMap returns a copy of the dust-corrected H-alpha map, or nil.
func (p *Pipeline) CorrectedMap() *model.SkyMap { return p.corrected.Clone() }

// Preprocess ingests both maps and corrects the H-alpha map for dust
// absorption. Calling it again after success does nothing.
func (p *Pipeline) Preprocess(ctx context.Context) (err error) {
	if p.state == StateCorrected {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "FreeFree/Preprocess")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	p.log.Info(ctx, "preprocessing")

	if p.state == StateUninitialized {
		halpha, err := p.ingest(ctx, RoleHalpha, p.cfg.Halpha)
		if err != nil {
			return err
		}
		dust, err := p.ingest(ctx, RoleDust, p.cfg.Dust)
		if err != nil {
			return err
		}
		p.halpha, p.dust = halpha, dust
		p.state = StateIngested
	}

	if err := p.correctDustAbsorption(ctx); err != nil {
		return err
	}
	p.state = StateCorrected

	if p.metrics != nil {
		p.metrics.ObservePreprocess(time.Since(start))
	}
	span.SetAttributes(
		attribute.Int("healpix.nside", p.cfg.NSide),
		attribute.Float64("freefree.masked_percent", p.mask.Percent()),
	)
	return nil
}

func (p *Pipeline) correctDustAbsorption(ctx context.Context) error {
	p.log.Info(ctx, "correcting H-alpha map for dust absorption",
		logging.Float("dust_fraction", DustFraction),
	)

	threshold := DustAbsorptionThreshold(HalphaAbsorptionThreshold, DustFraction)
	p.log.Info(ctx, "dust absorption mask threshold",
		logging.Float("dust_threshold_mjy_sr", threshold),
		logging.Float("halpha_threshold_mag", HalphaAbsorptionThreshold),
	)

	masked, stats := MaskDust(p.dust, threshold)
	p.log.Warn(ctx, "dust map masked fraction",
		logging.MaskedPercent(stats.Percent()),
		logging.Int("masked_pixels", stats.Masked),
	)

	corrected, err := CorrectHalpha(p.halpha, masked, DustFraction)
	if err != nil {
		return err
	}

	p.dust, p.corrected, p.mask = masked, corrected, stats
	if p.metrics != nil {
		p.metrics.SetMaskedFraction(stats.Percent() / 100)
	}
	p.log.Info(ctx, "done dust absorption correction")
	return nil
}

// SimulateFrequency returns the free-free brightness temperature map [K] at
// freq (in the configured frequency unit), writing it out when saving is
// enabled. Nothing is cached between calls.
func (p *Pipeline) SimulateFrequency(ctx context.Context, freq float64) (_ *model.SkyMap, err error) {
	ctx, span := p.tracer.Start(ctx, "FreeFree/SimulateFrequency",
		trace.WithAttributes(
			attribute.Float64("freefree.frequency", freq),
			attribute.String("freefree.frequency_unit", p.cfg.FrequencyUnit),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := p.Preprocess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	p.log.Info(ctx, "simulating map",
		logging.Frequency(freq),
		logging.String("unit", p.cfg.FrequencyUnit),
	)

	nuGHz, err := units.ToGHz(freq, p.cfg.FrequencyUnit)
	if err != nil {
		return nil, err
	}
	ratio := RatioKelvinPerRayleigh(ElectronTemperature, nuGHz)

	out := p.corrected.Clone()
	out.Unit = units.KelvinSymbol
	floats.Scale(ratio, out.Pixels)

	if p.metrics != nil {
		p.metrics.ObserveSimulation(time.Since(start))
		p.metrics.IncMapsSimulated()
	}

	if p.cfg.Save {
		if err := p.output(ctx, out, freq); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Simulate runs SimulateFrequency for every frequency in order. Repeated
// frequencies are recomputed.
func (p *Pipeline) Simulate(ctx context.Context, freqs ...float64) ([]*model.SkyMap, error) {
	maps := make([]*model.SkyMap, 0, len(freqs))
	for _, f := range freqs {
		m, err := p.SimulateFrequency(ctx, f)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, nil
}

// Postprocess runs after all simulations. It currently does nothing.
func (p *Pipeline) Postprocess(ctx context.Context) error {
	return nil
}

func (p *Pipeline) output(ctx context.Context, m *model.SkyMap, freq float64) error {
	path, err := p.OutputPath(freq)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %q: %w", p.cfg.OutputDir, err)
	}

	hdr, err := p.frequencyHeader(freq, p.clock)
	if err != nil {
		return err
	}
	res, err := p.writer.WriteMap(ctx, path, m, hdr, model.WriteOptions{
		Overwrite: p.cfg.Overwrite,
		Checksum:  p.cfg.Checksum,
		Float32:   p.cfg.Float32,
	})
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.IncMapsWritten()
	}
	p.log.Info(ctx, "wrote simulated map", logging.Path(res.Path))

	if p.products != nil {
		rec := model.Product{
			RunID:         p.runID,
			Component:     ComponentName,
			Frequency:     freq,
			FrequencyUnit: p.cfg.FrequencyUnit,
			Path:          res.Path,
			NSide:         m.NSide,
			Unit:          m.Unit,
			Float32:       p.cfg.Float32,
			DataSum:       res.DataSum,
			CreatedAt:     p.clock.Now(),
		}
		if err := p.products.RecordProduct(ctx, rec); err != nil {
			return fmt.Errorf("record product %q: %w", res.Path, err)
		}
	}
	return nil
}
