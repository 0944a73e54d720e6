package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel"

	"github.com/signalsfoundry/freefree-simulator/internal/logging"
)

func TestTracingConfigDefaults(t *testing.T) {
	cfg := tracingConfig(func(string) string { return "" })
	if cfg.Enabled || cfg.Exporter != "stdout" || cfg.ServiceName != "freefree-simulator" || cfg.SampleRatio != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestTracingConfigFromVariables(t *testing.T) {
	env := map[string]string{
		"FREEFREE_TRACING_ENABLED":      "TRUE",
		"FREEFREE_TRACING_EXPORTER":     "OTLP",
		"FREEFREE_TRACING_SERVICE_NAME": "sky",
		"FREEFREE_TRACING_SAMPLE_RATIO": "0.25",
		"FREEFREE_OTLP_ENDPOINT":        "collector:4317",
	}
	cfg := tracingConfig(func(k string) string { return env[k] })
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.ServiceName != "sky" || cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	env["FREEFREE_TRACING_SAMPLE_RATIO"] = "3"
	if cfg := tracingConfig(func(k string) string { return env[k] }); cfg.SampleRatio != 1 {
		t.Fatalf("out-of-range ratio accepted: %v", cfg.SampleRatio)
	}
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	shutdown, err := InitTracing(ctx, TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Output:      &buf,
		Run:         RunAttributes{ID: "run-7", NSide: 1024, Frequencies: 3, FrequencyUnit: "MHz"},
	}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := otel.Tracer("test").Start(ctx, "FreeFree/Test")
	span.End()
	ShutdownWithTimeout(ctx, shutdown, nil)

	if !strings.Contains(buf.String(), "FreeFree/Test") {
		t.Fatalf("span not exported: %s", buf.String())
	}
	for _, attr := range []string{"freefree.run_id", "run-7", "freefree.nside"} {
		if !strings.Contains(buf.String(), attr) {
			t.Fatalf("resource attribute %q missing from exported span: %s", attr, buf.String())
		}
	}

	disabled, err := InitTracing(ctx, TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
	if err := disabled(ctx); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestRunAttributesSkipUnset(t *testing.T) {
	if kvs := (RunAttributes{}).keyValues(); len(kvs) != 0 {
		t.Fatalf("unexpected attributes for empty run: %v", kvs)
	}

	kvs := RunAttributes{ID: "r", ConfigPath: "sim.json", NSide: 64, Frequencies: 2, FrequencyUnit: "GHz"}.keyValues()
	got := map[string]string{}
	for _, kv := range kvs {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	want := map[string]string{
		"freefree.run_id":         "r",
		"freefree.config":         "sim.json",
		"freefree.nside":          "64",
		"freefree.frequencies":    "2",
		"freefree.frequency_unit": "GHz",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}
}
