// Package main implements the chronosynth command line tool: single
// dataset generation, load-and-extend, resampling, batch runs and
// optional NATS publishing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/chrisdreid/chronosynth/batch"
	"github.com/chrisdreid/chronosynth/config"
	"github.com/chrisdreid/chronosynth/engine"
	"github.com/chrisdreid/chronosynth/formats"
	"github.com/chrisdreid/chronosynth/metric"
	"github.com/chrisdreid/chronosynth/output/natspub"
	"github.com/chrisdreid/chronosynth/resample"
	"github.com/chrisdreid/chronosynth/series"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "chronosynth"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("chronosynth failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli := parseFlags()
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cli.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cli.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cli.LogLevel, cli.LogFormat)
	slog.SetDefault(logger)

	loader := config.NewLoader()
	cfg, err := loader.LoadFile(cli.ConfigPath)
	if err != nil {
		return err
	}
	if cli.Validate {
		logger.Info("configuration is valid", "config", cli.ConfigPath, "fields", len(cfg.Fields))
		return nil
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsRegistry *metric.Registry
	if cfg.Metrics.Enabled {
		metricsRegistry = metric.NewRegistry()
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() { _ = server.Stop() }()
		logger.Info("metrics server started", "address", server.Address())
	}

	var publisher *natspub.Publisher
	if cli.Publish {
		if !cfg.NATS.Enabled {
			return fmt.Errorf("-publish requires nats to be enabled in the config")
		}
		var opts []natspub.Option
		opts = append(opts, natspub.WithLogger(logger))
		if metricsRegistry != nil {
			opts = append(opts, natspub.WithMetricsRegistry(metricsRegistry))
		}
		publisher, err = natspub.Connect(ctx, cfg.NATS, opts...)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
	}

	gen := engine.NewGenerator(registry, logger, metricsRegistry)

	if cli.BatchPath != "" {
		return runBatch(ctx, cli, gen, logger, metricsRegistry, publisher)
	}
	return runSingle(ctx, cli, cfg, gen, publisher)
}

// runBatch executes a batch spec and reports per-job outcomes.
func runBatch(
	ctx context.Context,
	cli *CLIConfig,
	gen *engine.Generator,
	logger *slog.Logger,
	metricsRegistry *metric.Registry,
	publisher *natspub.Publisher,
) error {
	spec, err := batch.LoadSpec(cli.BatchPath)
	if err != nil {
		return err
	}

	var opts []batch.Option
	if metricsRegistry != nil {
		opts = append(opts, batch.WithMetricsRegistry(metricsRegistry))
	}
	if publisher != nil {
		opts = append(opts, batch.WithSink(publisher))
	}
	runner := batch.NewRunner(gen, logger, opts...)

	results, err := runner.Run(ctx, spec)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Error("job failed", "job", res.Name, "id", res.ID, "error", res.Err)
			continue
		}
		logger.Info("job complete", "job", res.Name, "id", res.ID,
			"output", res.Output, "duration", res.Duration)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}

// runSingle generates one dataset from config plus flag overrides.
func runSingle(
	ctx context.Context,
	cli *CLIConfig,
	cfg *config.Config,
	gen *engine.Generator,
	publisher *natspub.Publisher,
) error {
	params, err := buildParams(cli, cfg)
	if err != nil {
		return err
	}

	res, err := gen.Generate(ctx, params)
	if err != nil {
		return err
	}

	if err := writeResult(cli, res); err != nil {
		return err
	}
	if publisher != nil {
		if err := publisher.Publish(ctx, cli.Name, res.Series); err != nil {
			return err
		}
	}
	return nil
}

// buildParams merges flag overrides over the config's generation section.
func buildParams(cli *CLIConfig, cfg *config.Config) (engine.Params, error) {
	params := cfg.Generation

	if cli.Total >= 0 {
		params.Total = cli.Total
	}
	if cli.Interval >= 0 {
		params.Interval = cli.Interval
	}
	if len(cli.Keyframes) > 0 {
		params.Keyframes = cli.Keyframes
	}
	if len(cli.Masks) > 0 {
		params.Masks = cli.Masks
	}
	if cli.NormalizeInput {
		params.NormalizeInput = true
	}
	if cli.NormalizeOutput {
		params.NormalizeOutput = true
	}
	if cli.SeedSet {
		seed := cli.Seed
		params.Seed = &seed
	}
	if params.Start.IsZero() || cli.Start != "" {
		params.Start = parseStartTime(cli.Start)
	}

	if cli.ResampleMethod != "" {
		params.Resample = &resample.Spec{
			Method:   resample.Method(cli.ResampleMethod),
			Interval: cli.ResampleInterval,
			Points:   cli.ResamplePoints,
		}
	}

	if cli.Extend != "" {
		prev, err := loadSeries(cli.Extend)
		if err != nil {
			return params, err
		}
		params.Extend = prev
	}
	return params, nil
}

// writeResult saves or prints the generated dataset. The resampled
// projection, when present, replaces the dense data in raw layout and is
// attached per field.
func writeResult(cli *CLIConfig, res *engine.Result) error {
	var doc any
	switch {
	case res.Resampled != nil:
		doc = formats.RawFromColumns(res.Series, res.Resampled)
	case cli.Layout == "raw":
		doc = formats.RawFromSeries(res.Series)
	default:
		doc = formats.FromSeries(res.Series)
	}

	if cli.Output != "" {
		return formats.Save(cli.Output, doc)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// loadSeries reads a dataset saved in either layout. It tries the
// structured loader first and falls back to raw only when the type
// discriminator says the file holds the other layout, so a corrupt file
// surfaces its real decode error instead of a misleading raw-layout one.
func loadSeries(path string) (*series.Series, error) {
	doc, serr := formats.LoadStructured(path)
	if serr == nil {
		return doc.Series()
	}
	// A gob stream of the other layout fails the decode before the
	// discriminator is readable, so gob failures get the raw attempt too.
	if !errors.Is(serr, formats.ErrWrongLayout) && formats.EncodingForPath(path) != formats.EncodingGob {
		return nil, serr
	}
	raw, rerr := formats.LoadRaw(path)
	if rerr != nil {
		if errors.Is(serr, formats.ErrWrongLayout) {
			return nil, rerr
		}
		return nil, serr
	}
	return raw.Series()
}

