package bench

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/regionbench/core"
	"github.com/signalsfoundry/regionbench/internal/logging"
	"github.com/signalsfoundry/regionbench/internal/observability"
	"github.com/signalsfoundry/regionbench/internal/regions"
	"github.com/signalsfoundry/regionbench/kb"
	"github.com/signalsfoundry/regionbench/timectrl"
)

// ctxCheckInterval is how many loop iterations run between context checks.
const ctxCheckInterval = 1024

var (
	ErrDigestMismatch    = errors.New("payload digest mismatch")
	ErrRoundTripMismatch = errors.New("network changed across save and load")
)

// Harness runs benchmarks. Every field is optional: a nil Registry gets a
// private one, a nil Clock reads wall time, and nil Logger, Metrics and
// Tracer disable their concern.
type Harness struct {
	Registry *kb.Registry
	Clock    timectrl.Clock
	Logger   logging.Logger
	Metrics  *observability.BenchCollector
	Tracer   trace.Tracer
}

// Run executes one benchmark. The SerializationTestRegion type is registered
// for the duration of the run and unregistered before Run returns, whether
// the run succeeds, fails or is cancelled.
func (h *Harness) Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	defer codec.Close()

	reg := h.Registry
	if reg == nil {
		reg = kb.NewRegistry()
	}
	tracer := h.Tracer
	if tracer == nil {
		tracer = observability.Tracer()
	}

	ctx, log := logging.WithRunLogger(ctx, h.Logger)
	ctx, span := tracer.Start(ctx, "bench.run", trace.WithAttributes(
		attribute.Int("bench.serialization_loops", cfg.SerializationLoops),
		attribute.Int("bench.deserialization_loops", cfg.DeserializationLoops),
		attribute.String("bench.compression", codec.Name()),
	))
	defer span.End()

	stop := h.Metrics.WatchRegistry(reg)
	defer stop()

	r := &run{
		h:      h,
		cfg:    cfg,
		reg:    reg,
		codec:  codec,
		tracer: tracer,
		log:    log,
		report: &Report{
			RunID:       logging.RunIDFromContext(ctx),
			Compression: codec.Name(),
		},
	}
	err = reg.WithRegistered(regions.SerializationTestType(), func() error {
		return r.execute(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "benchmark failed", logging.Err(err))
		return nil, err
	}

	log.Info(ctx, "benchmark complete",
		logging.Int("serialization_loops", r.report.SerializationLoops),
		logging.Duration("serialization_elapsed", r.report.SerializationElapsed),
		logging.Int("deserialization_loops", r.report.DeserializationLoops),
		logging.Duration("deserialization_elapsed", r.report.DeserializationElapsed),
		logging.Int("encoded_bytes", r.report.EncodedBytes),
		logging.Int("payload_bytes", r.report.PayloadBytes),
	)
	return r.report, nil
}

// run carries the state of one Harness.Run while the region type is
// registered.
type run struct {
	h      *Harness
	cfg    Config
	reg    *kb.Registry
	codec  Codec
	tracer trace.Tracer
	log    logging.Logger
	report *Report

	net    *core.Network
	sw     *timectrl.Stopwatch
	digest [32]byte
}

func (r *run) execute(ctx context.Context) error {
	r.net = core.NewNetwork(r.reg)
	if err := r.build(ctx); err != nil {
		return err
	}

	r.sw = timectrl.NewStopwatch(r.h.Clock)
	r.sw.AddListener(func(l timectrl.Lap) {
		r.log.Debug(ctx, "phase timed", logging.String("phase", l.Name), logging.Duration("elapsed", l.Elapsed))
	})

	encoded, err := r.serialize(ctx)
	if err != nil {
		return err
	}
	decoded, err := r.payload(ctx, encoded)
	if err != nil {
		return err
	}
	if err := r.deserialize(ctx, decoded); err != nil {
		return err
	}
	if r.cfg.Verify {
		return r.verify(ctx)
	}
	return nil
}

func (r *run) build(ctx context.Context) error {
	if r.cfg.Scenario != nil {
		sc, err := core.LoadNetworkScenario(r.net, r.cfg.Scenario)
		if err != nil {
			return fmt.Errorf("build network: %w", err)
		}
		r.log.Info(ctx, "network loaded from scenario",
			logging.Int("regions", len(sc.RegionNames)),
			logging.Int("links", sc.LinkCount))
		return nil
	}

	params, err := json.Marshal(regions.SerializationTestParams{
		DataWidth:  r.cfg.DataWidth,
		RandomSeed: r.cfg.RandomSeed,
	})
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	if _, err := r.net.AddRegion(RegionName, regions.SerializationTestRegionType, string(params)); err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	return nil
}

func (r *run) serialize(ctx context.Context) ([]byte, error) {
	ctx, span := r.tracer.Start(ctx, "bench.serialize")
	defer span.End()

	var (
		buf []byte
		err error
	)
	loops := r.cfg.SerializationLoops
	r.sw.Start()
	for i := 0; i < loops; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("serialization loop %d: %w", i, err)
			}
		}
		buf, err = r.net.Save(buf[:0])
		if err != nil {
			return nil, fmt.Errorf("serialization loop %d: %w", i, err)
		}
	}
	elapsed := r.sw.Lap(observability.PhaseSerialize)

	r.report.SerializationLoops = loops
	r.report.SerializationElapsed = elapsed
	r.report.EncodedBytes = len(buf)
	r.h.Metrics.ObservePhase(observability.PhaseSerialize, loops, elapsed)
	r.h.Metrics.SetPayloadBytes(observability.PayloadEncoded, len(buf))
	span.SetAttributes(attribute.Int("bench.loops", loops), attribute.Int("bench.encoded_bytes", len(buf)))
	return buf, nil
}

// payload passes the encoded network through the codec and checks it comes
// back unchanged.
func (r *run) payload(ctx context.Context, encoded []byte) ([]byte, error) {
	_, span := r.tracer.Start(ctx, "bench.payload", trace.WithAttributes(
		attribute.String("bench.compression", r.codec.Name()),
	))
	defer span.End()

	r.digest = blake3.Sum256(encoded)
	r.report.Digest = hex.EncodeToString(r.digest[:])

	wire, err := r.codec.Encode(encoded)
	if err != nil {
		return nil, err
	}
	decoded, err := r.codec.Decode(wire)
	if err != nil {
		return nil, err
	}
	if blake3.Sum256(decoded) != r.digest {
		return nil, fmt.Errorf("%s payload: %w", r.codec.Name(), ErrDigestMismatch)
	}

	r.report.PayloadBytes = len(wire)
	r.h.Metrics.SetPayloadBytes(observability.PayloadWire, len(wire))
	span.SetAttributes(attribute.Int("bench.payload_bytes", len(wire)))
	return decoded, nil
}

func (r *run) deserialize(ctx context.Context, data []byte) error {
	ctx, span := r.tracer.Start(ctx, "bench.deserialize")
	defer span.End()

	loops := r.cfg.DeserializationLoops
	r.sw.Start()
	for i := 0; i < loops; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("deserialization loop %d: %w", i, err)
			}
		}
		if err := r.net.Load(data); err != nil {
			return fmt.Errorf("deserialization loop %d: %w", i, err)
		}
	}
	elapsed := r.sw.Lap(observability.PhaseDeserialize)

	r.report.DeserializationLoops = loops
	r.report.DeserializationElapsed = elapsed
	r.h.Metrics.ObservePhase(observability.PhaseDeserialize, loops, elapsed)
	span.SetAttributes(attribute.Int("bench.loops", loops))
	return nil
}

func (r *run) verify(ctx context.Context) error {
	again, err := r.net.Save(nil)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if blake3.Sum256(again) != r.digest {
		return fmt.Errorf("verify: %w", ErrRoundTripMismatch)
	}
	r.log.Debug(ctx, "round trip verified", logging.String("digest", r.report.Digest))
	return nil
}
