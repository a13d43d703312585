// Command regionbench measures how long it takes to save and load a network
// holding one SerializationTestRegion, and prints the timings to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/regionbench/internal/bench"
	"github.com/signalsfoundry/regionbench/internal/logging"
	"github.com/signalsfoundry/regionbench/internal/observability"
	"github.com/signalsfoundry/regionbench/kb"
)

// Config is the parsed command line.
type Config struct {
	Bench bench.Config

	ScenarioPath string
	MetricsFile  string
	MetricsAddr  string
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		log.Error(ctx, "regionbench failed", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (Config, error) {
	def := bench.DefaultConfig()
	cfg := Config{}

	fs := flag.NewFlagSet("regionbench", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&cfg.Bench.SerializationLoops, "serialization-loops", def.SerializationLoops, "number of timed network saves")
	fs.IntVar(&cfg.Bench.DeserializationLoops, "deserialization-loops", def.DeserializationLoops, "number of timed network loads")
	fs.IntVar(&cfg.Bench.DataWidth, "data-width", def.DataWidth, "width of the test region's ports")
	fs.Uint64Var(&cfg.Bench.RandomSeed, "random-seed", def.RandomSeed, "seed of the test region's generator (0 draws from OS entropy)")
	fs.StringVar(&cfg.Bench.Compression, "compression", def.Compression, "payload codec between the phases: none, zstd or lz4")
	fs.BoolVar(&cfg.Bench.Verify, "verify", def.Verify, "check that a loaded network saves to identical bytes")
	fs.StringVar(&cfg.ScenarioPath, "network", "", "path to a JSON network scenario replacing the single test region")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "write Prometheus text metrics to this file after the run")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "HTTP address serving Prometheus /metrics during the run")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(output, err)
		return Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg Config, log logging.Logger, stdout io.Writer) error {
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	collector, err := observability.NewBenchCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.ScenarioPath != "" {
		f, err := os.Open(cfg.ScenarioPath)
		if err != nil {
			return fmt.Errorf("open network scenario %q: %w", cfg.ScenarioPath, err)
		}
		defer f.Close()
		cfg.Bench.Scenario = f
	}

	h := &bench.Harness{
		Registry: kb.NewRegistry(),
		Logger:   log,
		Metrics:  collector,
	}
	report, err := h.Run(ctx, cfg.Bench)
	if err != nil {
		return err
	}
	if _, err := report.WriteTo(stdout); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.MetricsFile != "" {
		if err := writeMetricsFile(cfg.MetricsFile, collector); err != nil {
			return err
		}
		log.Info(ctx, "wrote metrics", logging.String("path", cfg.MetricsFile))
	}
	return nil
}

func writeMetricsFile(path string, collector *observability.BenchCollector) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close metrics file: %w", cerr)
		}
	}()
	if err := collector.WriteText(f); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

func serveMetrics(addr string, collector *observability.BenchCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
