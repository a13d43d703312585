package observability

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/signalsfoundry/regionbench/kb"
)

// Phase and payload label values.
const (
	PhaseSerialize   = "serialize"
	PhaseDeserialize = "deserialize"

	PayloadEncoded = "encoded"
	PayloadWire    = "payload"
)

// BenchCollector bundles the Prometheus metrics of a benchmark run.
type BenchCollector struct {
	gatherer prometheus.Gatherer

	Loops        *prometheus.CounterVec
	PhaseSeconds *prometheus.GaugeVec
	LoopSeconds  *prometheus.GaugeVec
	PayloadBytes *prometheus.GaugeVec

	RegionTypesRegistered prometheus.Gauge
}

// NewBenchCollector registers benchmark metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registering twice against the same registerer returns the existing
// collectors.
func NewBenchCollector(reg prometheus.Registerer) (*BenchCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	loops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bench_loops_total",
		Help: "Completed benchmark loop iterations, labeled by phase.",
	}, []string{"phase"}), "bench_loops_total")
	if err != nil {
		return nil, err
	}

	phaseSeconds, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bench_phase_seconds",
		Help: "Wall time of the last run of each benchmark phase.",
	}, []string{"phase"}), "bench_phase_seconds")
	if err != nil {
		return nil, err
	}

	loopSeconds, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bench_loop_seconds",
		Help: "Mean time per loop of the last run of each benchmark phase.",
	}, []string{"phase"}), "bench_loop_seconds")
	if err != nil {
		return nil, err
	}

	payload, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bench_payload_bytes",
		Help: "Size of the serialized network, labeled by kind (encoded or compressed payload).",
	}, []string{"kind"}), "bench_payload_bytes")
	if err != nil {
		return nil, err
	}

	registered, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bench_region_types_registered",
		Help: "Number of region types currently registered.",
	}), "bench_region_types_registered")
	if err != nil {
		return nil, err
	}

	return &BenchCollector{
		gatherer:              gatherer,
		Loops:                 loops,
		PhaseSeconds:          phaseSeconds,
		LoopSeconds:           loopSeconds,
		PayloadBytes:          payload,
		RegionTypesRegistered: registered,
	}, nil
}

// ObservePhase records a completed phase of loops iterations.
func (c *BenchCollector) ObservePhase(phase string, loops int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Loops != nil {
		c.Loops.WithLabelValues(phase).Add(float64(loops))
	}
	if c.PhaseSeconds != nil {
		c.PhaseSeconds.WithLabelValues(phase).Set(elapsed.Seconds())
	}
	if c.LoopSeconds != nil && loops > 0 {
		c.LoopSeconds.WithLabelValues(phase).Set(elapsed.Seconds() / float64(loops))
	}
}

// SetPayloadBytes records the size of a payload kind.
func (c *BenchCollector) SetPayloadBytes(kind string, n int) {
	if c == nil || c.PayloadBytes == nil {
		return
	}
	c.PayloadBytes.WithLabelValues(kind).Set(float64(n))
}

// WatchRegistry keeps bench_region_types_registered in step with reg until
// the returned function is called.
func (c *BenchCollector) WatchRegistry(reg *kb.Registry) (stop func()) {
	if c == nil || reg == nil || c.RegionTypesRegistered == nil {
		return func() {}
	}
	c.RegionTypesRegistered.Set(float64(reg.Len()))
	return reg.Subscribe(func(ev kb.Event) {
		c.RegionTypesRegistered.Set(float64(ev.Registered))
	})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *BenchCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *BenchCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteText writes every gathered metric family to w in the Prometheus text
// exposition format.
func (c *BenchCollector) WriteText(w io.Writer) error {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
