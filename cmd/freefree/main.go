package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/freefree-simulator/core"
	"github.com/signalsfoundry/freefree-simulator/internal/catalog"
	"github.com/signalsfoundry/freefree-simulator/internal/config"
	"github.com/signalsfoundry/freefree-simulator/internal/fitsmap"
	"github.com/signalsfoundry/freefree-simulator/internal/healpix"
	"github.com/signalsfoundry/freefree-simulator/internal/logging"
	"github.com/signalsfoundry/freefree-simulator/internal/observability"
	"github.com/signalsfoundry/freefree-simulator/internal/quicklook"
)

// options are the command line settings; everything else comes from the
// configuration file.
type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	pushGateway string
	metricsAddr string
	tracing     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("freefree", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to the JSON simulation configuration (required)")
	fs.StringVar(&o.logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level: debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", os.Getenv("LOG_FORMAT"), "log format: json or text")
	fs.StringVar(&o.pushGateway, "push-gateway", "", "Prometheus Pushgateway URL to push run metrics to")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "HTTP address serving Prometheus /metrics while the run lasts")
	fs.BoolVar(&o.tracing, "tracing", false, "enable OpenTelemetry tracing (see FREEFREE_TRACING_* variables)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.configPath == "" {
		return o, errors.New("-config is required")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{Level: opts.logLevel, Format: opts.logFormat})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.Path(opts.configPath), logging.Err(err))
		os.Exit(1)
	}

	ctx, runID := logging.EnsureRunID(ctx)
	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.Enabled = tracingCfg.Enabled || opts.tracing
	tracingCfg.Run = observability.RunAttributes{
		ID:            runID,
		ConfigPath:    opts.configPath,
		NSide:         cfg.Common.NSide,
		FrequencyUnit: cfg.Frequency.Unit,
	}
	if freqs, err := cfg.Frequencies(); err == nil {
		tracingCfg.Run.Frequencies = len(freqs)
	}
	shutdown, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	err = run(ctx, cfg, opts, log)
	observability.ShutdownWithTimeout(context.Background(), shutdown, log)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

// run simulates every configured frequency and records the written maps
// in the manifest.
func run(ctx context.Context, cfg *config.Config, opts options, log logging.Logger) (err error) {
	ctx, runLog := logging.WithRunLogger(ctx, log)
	runID := logging.RunIDFromContext(ctx)

	freqs, err := cfg.Frequencies()
	if err != nil {
		return err
	}

	collector, err := observability.NewPipelineCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("initialise metrics: %w", err)
	}
	if opts.pushGateway != "" {
		defer func() {
			perr := collector.Push(context.WithoutCancel(ctx), opts.pushGateway, "freefree", map[string]string{"run_id": runID})
			if perr != nil {
				runLog.Warn(ctx, "failed to push metrics", logging.Err(perr))
			}
		}()
	}

	if opts.metricsAddr != "" {
		srv, addr, err := serveMetrics(opts.metricsAddr, collector, runLog)
		if err != nil {
			return err
		}
		runLog.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr.String()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var store catalog.Store = catalog.NewMemory()
	if path := cfg.ManifestPath(); path != "" {
		if store, err = catalog.OpenSQLite(ctx, path); err != nil {
			return err
		}
	}
	defer func() {
		if cerr := store.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close manifest: %w", cerr)
		}
	}()

	store.Subscribe(func(ev catalog.Event) {
		runLog.Info(ctx, "recorded product",
			logging.String("id", ev.Entry.ID),
			logging.Path(ev.Entry.Path),
			logging.Frequency(ev.Entry.Frequency),
			logging.String("frequency_unit", ev.Entry.FrequencyUnit),
		)
	})

	var writer core.MapWriter = fitsmap.Writer{}
	if cfg.Output.Quicklook {
		writer = &quicklook.Writer{Next: writer, Log: runLog}
	}

	pipeline, err := core.NewPipeline(cfg.PipelineConfig(), fitsmap.Loader{}, healpix.Resampler{},
		core.WithLogger(log),
		core.WithRunID(runID),
		core.WithWriter(writer),
		core.WithProductRecorder(store),
		core.WithMetricsRecorder(collector),
	)
	if err != nil {
		return err
	}

	runLog.Info(ctx, "starting simulation",
		logging.Int("frequencies", len(freqs)),
		logging.String("frequency_unit", cfg.Frequency.Unit),
		logging.NSide(cfg.Common.NSide),
	)
	if err := pipeline.Preprocess(ctx); err != nil {
		return err
	}
	maps, err := pipeline.Simulate(ctx, freqs...)
	if err != nil {
		return err
	}
	for i, m := range maps {
		s := m.Summary()
		runLog.Debug(ctx, "simulated map summary",
			logging.Frequency(freqs[i]),
			logging.Float("min_k", s.Min),
			logging.Float("max_k", s.Max),
			logging.Float("mean_k", s.Mean),
			logging.Int("masked", s.Masked),
		)
	}
	if err := pipeline.Postprocess(ctx); err != nil {
		return err
	}

	products, err := store.List(ctx, runID)
	if err != nil {
		return err
	}
	written, err := catalog.Frequencies(ctx, store, runID)
	if err != nil {
		return err
	}
	runLog.Info(ctx, "simulation complete",
		logging.Int("maps", len(maps)),
		logging.Int("products", len(products)),
		logging.Any("written_frequencies", written),
		logging.MaskedPercent(pipeline.MaskStats().Percent()),
	)
	return nil
}

// serveMetrics exposes the collector on addr until the returned server is
// shut down.
func serveMetrics(addr string, collector *observability.PipelineCollector, log logging.Logger) (*http.Server, net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen for metrics on %q: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()
	return srv, lis.Addr(), nil
}
