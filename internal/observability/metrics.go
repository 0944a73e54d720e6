package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PipelineCollector bundles the Prometheus metrics of a free-free run. It
// satisfies core.MetricsRecorder.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	PreprocessDuration prometheus.Histogram
	SimulationDuration prometheus.Histogram
	MapsSimulated      prometheus.Counter
	MapsWritten        prometheus.Counter
	MaskedFraction     prometheus.Gauge
}

// NewPipelineCollector registers pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	preprocess, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "freefree_preprocess_duration_seconds",
		Help:    "Duration of map ingestion and dust absorption correction.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}), "freefree_preprocess_duration_seconds")
	if err != nil {
		return nil, err
	}
	simulate, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "freefree_simulate_duration_seconds",
		Help:    "Duration of a single-frequency simulation, excluding output.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "freefree_simulate_duration_seconds")
	if err != nil {
		return nil, err
	}
	simulated, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freefree_maps_simulated_total",
		Help: "Number of brightness temperature maps simulated.",
	}), "freefree_maps_simulated_total")
	if err != nil {
		return nil, err
	}
	written, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freefree_maps_written_total",
		Help: "Number of simulated maps written to disk.",
	}), "freefree_maps_written_total")
	if err != nil {
		return nil, err
	}
	masked, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "freefree_dust_masked_fraction",
		Help: "Fraction of sky pixels masked for indeterminate dust absorption.",
	}), "freefree_dust_masked_fraction")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:           gatherer,
		PreprocessDuration: preprocess,
		SimulationDuration: simulate,
		MapsSimulated:      simulated,
		MapsWritten:        written,
		MaskedFraction:     masked,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PipelineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Push sends the gathered metrics to a Prometheus Pushgateway under job.
// Batch runs end before a scrape could reach them.
func (c *PipelineCollector) Push(ctx context.Context, url, job string, groupings map[string]string) error {
	if c == nil {
		return nil
	}
	p := push.New(url, job).Gatherer(c.Gatherer())
	for k, v := range groupings {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// ObservePreprocess records a preprocessing duration.
func (c *PipelineCollector) ObservePreprocess(d time.Duration) {
	if c == nil || c.PreprocessDuration == nil {
		return
	}
	c.PreprocessDuration.Observe(d.Seconds())
}

// ObserveSimulation records a simulation duration.
func (c *PipelineCollector) ObserveSimulation(d time.Duration) {
	if c == nil || c.SimulationDuration == nil {
		return
	}
	c.SimulationDuration.Observe(d.Seconds())
}

// SetMaskedFraction sets the masked sky fraction, clamped to [0, 1].
func (c *PipelineCollector) SetMaskedFraction(fraction float64) {
	if c == nil || c.MaskedFraction == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	c.MaskedFraction.Set(fraction)
}

// IncMapsSimulated increments the simulated maps counter.
func (c *PipelineCollector) IncMapsSimulated() {
	if c == nil || c.MapsSimulated == nil {
		return
	}
	c.MapsSimulated.Inc()
}

// IncMapsWritten increments the written maps counter.
func (c *PipelineCollector) IncMapsWritten() {
	if c == nil || c.MapsWritten == nil {
		return
	}
	c.MapsWritten.Inc()
}

// register adds collector to reg, returning the already registered
// collector of the same type when one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		var zero T
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return collector, nil
}
