package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalsfoundry/freefree-simulator/internal/healpix"
	"github.com/signalsfoundry/freefree-simulator/model"
	"github.com/signalsfoundry/freefree-simulator/timectrl"
)

// fakeLoader serves in-memory maps and counts loads per path.
type fakeLoader struct {
	maps  map[string]*model.SkyMap
	loads map[string]int
}

func newFakeLoader(maps map[string]*model.SkyMap) *fakeLoader {
	return &fakeLoader{maps: maps, loads: map[string]int{}}
}

func (f *fakeLoader) LoadMap(_ context.Context, path string) (*model.SkyMap, error) {
	f.loads[path]++
	m, ok := f.maps[path]
	if !ok {
		return nil, fmt.Errorf("load %q: %w", path, errNotFound)
	}
	return m.Clone(), nil
}

var errNotFound = errors.New("not found")

type countingResampler struct {
	calls int
}

func (r *countingResampler) Resample(ctx context.Context, m *model.SkyMap, nside int) (*model.SkyMap, error) {
	r.calls++
	return healpix.Resampler{}.Resample(ctx, m, nside)
}

type writeCall struct {
	path string
	m    *model.SkyMap
	hdr  *model.Header
	opts model.WriteOptions
}

type fakeWriter struct {
	calls []writeCall
}

func (w *fakeWriter) WriteMap(_ context.Context, path string, m *model.SkyMap, hdr *model.Header, opts model.WriteOptions) (model.WriteResult, error) {
	w.calls = append(w.calls, writeCall{path: path, m: m, hdr: hdr, opts: opts})
	return model.WriteResult{Path: path, DataSum: "123"}, nil
}

type fakeProducts struct {
	records []model.Product
}

func (f *fakeProducts) RecordProduct(_ context.Context, p model.Product) error {
	f.records = append(f.records, p)
	return nil
}

type fakeMetrics struct {
	preprocess, simulations, simulated, written int
	masked                                      float64
}

func (f *fakeMetrics) ObservePreprocess(time.Duration) { f.preprocess++ }
func (f *fakeMetrics) ObserveSimulation(time.Duration) { f.simulations++ }
func (f *fakeMetrics) SetMaskedFraction(v float64)     { f.masked = v }
func (f *fakeMetrics) IncMapsSimulated()               { f.simulated++ }
func (f *fakeMetrics) IncMapsWritten()                 { f.written++ }

func halphaMap(nside int) *model.SkyMap {
	m := model.NewSkyMap(nside, "Rayleigh")
	for i := range m.Pixels {
		m.Pixels[i] = 1 + float64(i%17)
	}
	return m
}

func dustMap(nside int) *model.SkyMap {
	return model.NewSkyMap(nside, "MJy/sr")
}

func baseConfig(nside int) Config {
	return Config{
		Halpha:        MapSource{Path: "halpha.fits", Unit: "Rayleigh"},
		Dust:          MapSource{Path: "dust.fits", Unit: "MJy/sr"},
		NSide:         nside,
		FrequencyUnit: "MHz",
		Prefix:        "gfree",
		FileType:      FileTypeFITS,
	}
}

func newTestPipeline(t *testing.T, cfg Config, loader MapLoader, opts ...Option) (*Pipeline, *countingResampler) {
	t.Helper()
	rs := &countingResampler{}
	p, err := NewPipeline(cfg, loader, rs, opts...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p, rs
}

var nanEqual = cmpopts.EquateNaNs()

func TestZeroDustLeavesHalphaUnchanged(t *testing.T) {
	ctx := context.Background()
	halpha := halphaMap(256)
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halpha,
		"dust.fits":   dustMap(256),
	})
	p, rs := newTestPipeline(t, baseConfig(256), loader)

	out, err := p.SimulateFrequency(ctx, 1400)
	if err != nil {
		t.Fatalf("SimulateFrequency: %v", err)
	}
	if rs.calls != 0 {
		t.Fatalf("resampler called %d times, want 0", rs.calls)
	}
	if diff := cmp.Diff(halpha.Pixels, p.CorrectedMap().Pixels); diff != "" {
		t.Fatalf("corrected map differs from raw H-alpha (-raw +corrected):\n%s", diff)
	}
	if got := p.MaskStats().Masked; got != 0 {
		t.Fatalf("masked pixels = %d, want 0", got)
	}

	ratio := RatioKelvinPerRayleigh(ElectronTemperature, 1.4)
	for i, v := range out.Pixels {
		if want := halpha.Pixels[i] * ratio; v != want {
			t.Fatalf("pixel %d = %v, want %v", i, v, want)
		}
	}
	if out.Unit != "K" || out.NSide != 256 {
		t.Fatalf("output unit/nside = %q/%d, want K/256", out.Unit, out.NSide)
	}
}

func TestSingleDustPixelAboveThresholdIsMasked(t *testing.T) {
	ctx := context.Background()
	nside := 16
	dust := dustMap(nside)
	dust.Pixels[42] = 100
	halpha := halphaMap(nside)
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halpha,
		"dust.fits":   dust,
	})
	p, _ := newTestPipeline(t, baseConfig(nside), loader)

	if err := p.Preprocess(ctx); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}

	stats := p.MaskStats()
	wantPercent := 100.0 / float64(model.NPix(nside))
	if stats.Masked != 1 || math.Abs(stats.Percent()-wantPercent) > 1e-15 {
		t.Fatalf("mask stats = %+v (%.6f%%), want 1 pixel (%.6f%%)", stats, stats.Percent(), wantPercent)
	}

	corrected := p.CorrectedMap()
	masked := p.DustMap()
	for i := range corrected.Pixels {
		if i == 42 {
			if !math.IsNaN(corrected.Pixels[i]) || !math.IsNaN(masked.Pixels[i]) {
				t.Fatalf("pixel 42 not masked: corrected=%v dust=%v", corrected.Pixels[i], masked.Pixels[i])
			}
			continue
		}
		if corrected.Pixels[i] != halpha.Pixels[i] {
			t.Fatalf("pixel %d = %v, want %v", i, corrected.Pixels[i], halpha.Pixels[i])
		}
	}

	if loader.maps["dust.fits"].Pixels[42] != 100 {
		t.Fatalf("source dust map was mutated")
	}
}

func TestMaskingThresholdBoundary(t *testing.T) {
	threshold := DustAbsorptionThreshold(HalphaAbsorptionThreshold, DustFraction)
	if math.Abs(threshold-65.59097468188378) > 1e-9 {
		t.Fatalf("threshold = %.12f, want 65.590974681884", threshold)
	}

	dust := dustMap(1)
	dust.Pixels[0] = threshold
	dust.Pixels[1] = math.Nextafter(threshold, math.Inf(1))
	dust.Pixels[2] = 10

	masked, stats := MaskDust(dust, threshold)
	if stats.Masked != 1 || !math.IsNaN(masked.Pixels[1]) || math.IsNaN(masked.Pixels[0]) {
		t.Fatalf("only values strictly above the threshold are masked: %+v %v", stats, masked.Pixels[:3])
	}
	if math.IsNaN(dust.Pixels[1]) {
		t.Fatalf("MaskDust mutated its input")
	}
}

func TestCorrectHalphaFormula(t *testing.T) {
	halpha := halphaMap(1)
	dust := dustMap(1)
	dust.Pixels[3] = 20
	dust.Pixels[4] = math.NaN()

	out, err := CorrectHalpha(halpha, dust, DustFraction)
	if err != nil {
		t.Fatalf("CorrectHalpha: %v", err)
	}
	want := halpha.Pixels[3] * math.Pow(10, 20*0.0185*0.33)
	if math.Abs(out.Pixels[3]-want) > 1e-12 {
		t.Fatalf("pixel 3 = %v, want %v", out.Pixels[3], want)
	}
	if !math.IsNaN(out.Pixels[4]) {
		t.Fatalf("NaN dust pixel should propagate, got %v", out.Pixels[4])
	}

	if _, err := CorrectHalpha(halpha, dustMap(2), DustFraction); err == nil {
		t.Fatalf("expected resolution mismatch error")
	}
}

func TestPreprocessHarmonisesResolution(t *testing.T) {
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(8),
		"dust.fits":   dustMap(2),
	})
	p, rs := newTestPipeline(t, baseConfig(4), loader)

	if err := p.Preprocess(context.Background()); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if rs.calls != 2 {
		t.Fatalf("resampler calls = %d, want 2", rs.calls)
	}
	for name, m := range map[string]*model.SkyMap{
		"halpha":    p.HalphaMap(),
		"dust":      p.DustMap(),
		"corrected": p.CorrectedMap(),
	} {
		if m.NSide != 4 || m.Len() != model.NPix(4) {
			t.Fatalf("%s map nside/len = %d/%d, want 4/%d", name, m.NSide, m.Len(), model.NPix(4))
		}
	}
}

func TestPreprocessIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dust := dustMap(4)
	dust.Pixels[7] = 80
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(4),
		"dust.fits":   dust,
	})
	metrics := &fakeMetrics{}
	p, _ := newTestPipeline(t, baseConfig(4), loader, WithMetricsRecorder(metrics))

	if p.State() != StateUninitialized {
		t.Fatalf("initial state = %v", p.State())
	}
	if err := p.Preprocess(ctx); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	first := p.CorrectedMap()
	firstStats := p.MaskStats()

	if err := p.Preprocess(ctx); err != nil {
		t.Fatalf("second Preprocess: %v", err)
	}
	if p.State() != StateCorrected {
		t.Fatalf("state = %v, want %v", p.State(), StateCorrected)
	}
	if loader.loads["halpha.fits"] != 1 || loader.loads["dust.fits"] != 1 {
		t.Fatalf("maps loaded %v, want once each", loader.loads)
	}
	if diff := cmp.Diff(first, p.CorrectedMap(), nanEqual); diff != "" {
		t.Fatalf("corrected map changed on second Preprocess:\n%s", diff)
	}
	if p.MaskStats() != firstStats || metrics.preprocess != 1 {
		t.Fatalf("mask stats or metrics changed: %+v %+v", p.MaskStats(), metrics)
	}
	if want := 1.0 / float64(model.NPix(4)); math.Abs(metrics.masked-want) > 1e-15 {
		t.Fatalf("masked fraction metric = %v, want %v", metrics.masked, want)
	}
}

func TestSimulateFrequencyRepeatable(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(2),
		"dust.fits":   dustMap(2),
	})
	p, _ := newTestPipeline(t, baseConfig(2), loader)

	a, err := p.SimulateFrequency(ctx, 150)
	if err != nil {
		t.Fatalf("SimulateFrequency: %v", err)
	}
	before := p.CorrectedMap()
	b, err := p.SimulateFrequency(ctx, 150)
	if err != nil {
		t.Fatalf("SimulateFrequency: %v", err)
	}
	if a == b {
		t.Fatalf("expected a fresh map per call")
	}
	if diff := cmp.Diff(a, b, nanEqual); diff != "" {
		t.Fatalf("repeated simulation differs:\n%s", diff)
	}
	if diff := cmp.Diff(before, p.CorrectedMap(), nanEqual); diff != "" {
		t.Fatalf("simulation altered the cached corrected map:\n%s", diff)
	}
}

func TestSimulatePreservesOrder(t *testing.T) {
	ctx := context.Background()
	halpha := halphaMap(2)
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halpha,
		"dust.fits":   dustMap(2),
	})
	cfg := baseConfig(2)
	cfg.FrequencyUnit = "GHz"
	metrics := &fakeMetrics{}
	p, _ := newTestPipeline(t, cfg, loader, WithMetricsRecorder(metrics))

	freqs := []float64{30, 0.1, 1.4, 30}
	maps, err := p.Simulate(ctx, freqs...)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(maps) != len(freqs) {
		t.Fatalf("got %d maps, want %d", len(maps), len(freqs))
	}
	for i, f := range freqs {
		want := halpha.Pixels[5] * RatioKelvinPerRayleigh(ElectronTemperature, f)
		if got := maps[i].Pixels[5]; math.Abs(got-want) > 1e-12*math.Abs(want) {
			t.Fatalf("map %d (%.1f GHz) pixel 5 = %v, want %v", i, f, got, want)
		}
	}
	if maps[0] == maps[3] {
		t.Fatalf("repeated frequency returned the same map instance")
	}
	if metrics.simulated != 4 || metrics.written != 0 {
		t.Fatalf("metrics = %+v, want 4 simulated 0 written", metrics)
	}

	single, err := p.Simulate(ctx, 1.4)
	if err != nil || len(single) != 1 {
		t.Fatalf("Simulate(scalar) = %d maps, %v", len(single), err)
	}
}

func TestHalphaUnitRejectedBeforeLoad(t *testing.T) {
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(1),
		"dust.fits":   dustMap(1),
	})
	cfg := baseConfig(1)
	cfg.Halpha.Unit = "mR"
	p, _ := newTestPipeline(t, cfg, loader)

	_, err := p.SimulateFrequency(context.Background(), 1400)
	var uerr *UnsupportedUnitError
	if !errors.As(err, &uerr) {
		t.Fatalf("error = %v, want UnsupportedUnitError", err)
	}
	if uerr.Role != RoleHalpha || uerr.Want != "Rayleigh" || !errors.Is(err, ErrUnsupportedUnit) {
		t.Fatalf("unexpected error detail: %+v", uerr)
	}
	if loader.loads["halpha.fits"] != 0 {
		t.Fatalf("map loaded despite unit mismatch")
	}
	if p.State() != StateUninitialized {
		t.Fatalf("state advanced to %v", p.State())
	}
}

func TestUnitFromFileWhenNotConfigured(t *testing.T) {
	dust := dustMap(1)
	dust.Unit = "Jy/sr"
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(1),
		"dust.fits":   dust,
	})
	cfg := baseConfig(1)
	cfg.Halpha.Unit = ""
	cfg.Dust.Unit = ""
	p, _ := newTestPipeline(t, cfg, loader)

	err := p.Preprocess(context.Background())
	var uerr *UnsupportedUnitError
	if !errors.As(err, &uerr) || uerr.Role != RoleDust || uerr.Unit != "Jy/sr" {
		t.Fatalf("error = %v, want dust UnsupportedUnitError", err)
	}
}

func TestUnitAliasesAccepted(t *testing.T) {
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(1),
		"dust.fits":   dustMap(1),
	})
	cfg := baseConfig(1)
	cfg.Halpha.Unit = "R"
	cfg.Dust.Unit = "MJy / sr"
	p, _ := newTestPipeline(t, cfg, loader)

	if err := p.Preprocess(context.Background()); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if p.HalphaMap().Unit != "Rayleigh" || p.DustMap().Unit != "MJy/sr" {
		t.Fatalf("units not canonicalised: %q %q", p.HalphaMap().Unit, p.DustMap().Unit)
	}
}

func TestLoaderErrorPropagates(t *testing.T) {
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(1),
	})
	p, _ := newTestPipeline(t, baseConfig(1), loader)

	err := p.Preprocess(context.Background())
	if !errors.Is(err, errNotFound) {
		t.Fatalf("error = %v, want wrapped errNotFound", err)
	}
	if p.State() != StateUninitialized {
		t.Fatalf("state = %v after failed ingestion", p.State())
	}
}

func TestSaveWritesHeaderAndRecordsProduct(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(2),
		"dust.fits":   dustMap(2),
	})
	cfg := baseConfig(2)
	cfg.Save = true
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Float32 = true
	cfg.Checksum = true

	zone := time.FixedZone("CST", 8*3600)
	clock := timectrl.NewFixedClock(time.Date(2016, time.October, 3, 14, 5, 6, 0, zone))
	writer := &fakeWriter{}
	products := &fakeProducts{}
	metrics := &fakeMetrics{}
	p, _ := newTestPipeline(t, cfg, loader,
		WithWriter(writer),
		WithProductRecorder(products),
		WithMetricsRecorder(metrics),
		WithClock(clock),
		WithRunID("run-42"),
	)

	if _, err := p.Simulate(ctx, 1400, 150); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(writer.calls) != 2 {
		t.Fatalf("writer calls = %d, want 2", len(writer.calls))
	}

	call := writer.calls[0]
	if want := filepath.Join(dir, "out", "gfree_1400.00.fits"); call.path != want {
		t.Fatalf("path = %q, want %q", call.path, want)
	}
	if want := (model.WriteOptions{Float32: true, Checksum: true}); call.opts != want {
		t.Fatalf("opts = %+v, want %+v", call.opts, want)
	}
	for key, want := range map[string]any{
		"COMP": "Galactic free-free emission",
		"UNIT": "Kelvin",
		"FREQ": 1400.0,
		"DATE": "2016-10-03T14:05:06.000000+08:00",
	} {
		card, ok := call.hdr.Get(key)
		if !ok || card.Value != want {
			t.Fatalf("header %s = %v (present %v), want %v", key, card.Value, ok, want)
		}
	}
	if card, _ := call.hdr.Get("FREQ"); card.Comment != "Frequency [ MHz ]" {
		t.Fatalf("FREQ comment = %q", card.Comment)
	}
	if got := writer.calls[1].path; filepath.Base(got) != "gfree_150.00.fits" {
		t.Fatalf("second path = %q", got)
	}
	if _, ok := writer.calls[1].hdr.Get("FREQ"); !ok || p.headerTemplate().Len() != 3 {
		t.Fatalf("template header was specialised in place")
	}

	if len(products.records) != 2 {
		t.Fatalf("product records = %d, want 2", len(products.records))
	}
	rec := products.records[0]
	if rec.RunID != "run-42" || rec.DataSum != "123" || rec.Frequency != 1400 || !rec.Float32 {
		t.Fatalf("unexpected product record %+v", rec)
	}
	if metrics.written != 2 {
		t.Fatalf("written metric = %d, want 2", metrics.written)
	}
}

func TestFreqHeaderConvertedToMHz(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(1),
		"dust.fits":   dustMap(1),
	})
	cfg := baseConfig(1)
	cfg.Save = true
	cfg.OutputDir = t.TempDir()
	cfg.FrequencyUnit = "GHz"
	cfg.FilenamePattern = "{prefix}-{frequency}"
	writer := &fakeWriter{}
	p, _ := newTestPipeline(t, cfg, loader, WithWriter(writer))

	if _, err := p.SimulateFrequency(ctx, 1.4); err != nil {
		t.Fatalf("SimulateFrequency: %v", err)
	}
	card, _ := writer.calls[0].hdr.Get("FREQ")
	if v, _ := card.Value.(float64); math.Abs(v-1400) > 1e-9 {
		t.Fatalf("FREQ = %v, want 1400", card.Value)
	}
	if got := filepath.Base(writer.calls[0].path); got != "gfree-1.4.fits" {
		t.Fatalf("file name = %q, want gfree-1.4.fits", got)
	}
}

func TestUnsupportedFileType(t *testing.T) {
	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(1),
		"dust.fits":   dustMap(1),
	})
	cfg := baseConfig(1)
	cfg.Save = true
	cfg.OutputDir = t.TempDir()
	cfg.FileType = "hdf5"
	writer := &fakeWriter{}
	p, _ := newTestPipeline(t, cfg, loader, WithWriter(writer))

	_, err := p.SimulateFrequency(context.Background(), 1400)
	var ferr *UnsupportedFormatError
	if !errors.As(err, &ferr) || ferr.Format != "hdf5" || !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want UnsupportedFormatError", err)
	}
	if len(writer.calls) != 0 {
		t.Fatalf("writer called for unsupported format")
	}
}

func TestNewPipelineValidation(t *testing.T) {
	loader := newFakeLoader(nil)
	rs := &countingResampler{}

	if _, err := NewPipeline(baseConfig(0), loader, rs); !errors.Is(err, ErrNotReady) {
		t.Fatalf("nside 0: error = %v", err)
	}
	cfg := baseConfig(1)
	cfg.FrequencyUnit = "THz"
	if _, err := NewPipeline(cfg, loader, rs); !errors.Is(err, ErrNotReady) {
		t.Fatalf("bad unit: error = %v", err)
	}
	cfg = baseConfig(1)
	cfg.Save = true
	if _, err := NewPipeline(cfg, loader, rs); !errors.Is(err, ErrNotReady) {
		t.Fatalf("save without writer: error = %v", err)
	}
	if _, err := NewPipeline(baseConfig(1), nil, rs); !errors.Is(err, ErrNotReady) {
		t.Fatalf("nil loader: error = %v", err)
	}
}

func TestPipelineSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	loader := newFakeLoader(map[string]*model.SkyMap{
		"halpha.fits": halphaMap(1),
		"dust.fits":   dustMap(1),
	})
	p, _ := newTestPipeline(t, baseConfig(1), loader, WithTracerProvider(tp))

	if _, err := p.Simulate(context.Background(), 1400, 1420); err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	counts := map[string]int{}
	for _, s := range sr.Ended() {
		counts[s.Name()]++
	}
	if counts["FreeFree/Preprocess"] != 1 || counts["FreeFree/SimulateFrequency"] != 2 {
		t.Fatalf("span counts = %v", counts)
	}
}

func TestPostprocessIsNoop(t *testing.T) {
	p, _ := newTestPipeline(t, baseConfig(1), newFakeLoader(nil))
	if err := p.Postprocess(context.Background()); err != nil {
		t.Fatalf("Postprocess: %v", err)
	}
	if p.State() != StateUninitialized {
		t.Fatalf("Postprocess changed state to %v", p.State())
	}
}

func TestFormatPattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
		wantErr bool
	}{
		{"{prefix}_{frequency:06.2f}", "gfree_070.50", false},
		{"{prefix}_{frequency}", "gfree_70.5", false},
		{"sky/{prefix}", "sky/gfree", false},
		{"{prefix}_{freq}", "", true},
		{"{prefix", "", true},
	}
	for _, tt := range tests {
		got, err := formatPattern(tt.pattern, map[string]any{"prefix": "gfree", "frequency": 70.5})
		if (err != nil) != tt.wantErr {
			t.Fatalf("formatPattern(%q) error = %v, wantErr %v", tt.pattern, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("formatPattern(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateCorrected.String() != "corrected" || State(9).String() != "State(9)" {
		t.Fatalf("unexpected State strings")
	}
	if RoleDust.String() != "dust" || RoleDust.RequiredUnit() != "MJy/sr" {
		t.Fatalf("unexpected role metadata")
	}
}
