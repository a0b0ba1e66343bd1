package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// stringList collects repeatable flags such as -mask.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// CLIConfig holds command-line configuration. Keyframes come from the
// positional arguments, everything else from flags.
type CLIConfig struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	// generation overrides; negative means "use the config value"
	Total    float64
	Interval float64
	Start    string
	Seed     int64
	SeedSet  bool

	NormalizeInput  bool
	NormalizeOutput bool
	Masks           stringList

	// resampling
	ResampleMethod   string
	ResampleInterval float64
	ResamplePoints   int

	// input/output
	Extend string
	Output string
	Layout string
	Name   string

	// modes
	BatchPath string
	Publish   bool
	Validate  bool

	ShowVersion bool
	ShowHelp    bool

	Keyframes []string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("CHRONOSYNTH_CONFIG", ""),
		"Path to configuration file (env: CHRONOSYNTH_CONFIG)")
	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("CHRONOSYNTH_CONFIG", ""),
		"Path to configuration file (env: CHRONOSYNTH_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CHRONOSYNTH_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: CHRONOSYNTH_LOG_LEVEL)")
	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CHRONOSYNTH_LOG_FORMAT", "text"),
		"Log format: json, text (env: CHRONOSYNTH_LOG_FORMAT)")

	flag.Float64Var(&cfg.Total, "total", -1, "Timeline duration in seconds (overrides config)")
	flag.Float64Var(&cfg.Interval, "interval", -1, "Sample interval in seconds (overrides config)")
	flag.StringVar(&cfg.Start, "start", "", "Start timestamp, RFC 3339 (default: now)")
	flag.Int64Var(&cfg.Seed, "seed", 0, "Noise seed for reproducible output")

	flag.BoolVar(&cfg.NormalizeInput, "normalize-input", false,
		"Treat bare keyframe values in [0,1] as fractions of the field range")
	flag.BoolVar(&cfg.NormalizeOutput, "normalize-output", false,
		"Scale output values to [0,1] per field")
	flag.Var(&cfg.Masks, "mask", "Mask expression, repeatable (e.g. 'sin(amp=0.3)' or 'pow=2')")

	flag.StringVar(&cfg.ResampleMethod, "resample", "",
		"Resampling method: mean, minmax, redistribute, lttb")
	flag.Float64Var(&cfg.ResampleInterval, "resample-interval", 0,
		"Bin width in seconds for mean/minmax/redistribute")
	flag.IntVar(&cfg.ResamplePoints, "resample-points", 0, "Target point count for lttb")

	flag.StringVar(&cfg.Extend, "extend", "", "Dataset file whose final values seed this run")
	flag.StringVar(&cfg.Output, "out", "", "Output file; extension picks the encoding (.json, .gob)")
	flag.StringVar(&cfg.Layout, "layout", "structured", "Output layout: structured, raw")
	flag.StringVar(&cfg.Name, "name", "cli", "Dataset name used for publishing")

	flag.StringVar(&cfg.BatchPath, "batch", "", "Batch spec file (YAML); runs jobs instead of a single generation")
	flag.BoolVar(&cfg.Publish, "publish", false, "Publish results to NATS per the config")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = printDetailedHelp
	flag.Parse()

	cfg.Keyframes = flag.Args()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath == "" {
		return fmt.Errorf("a configuration file is required (-config or CHRONOSYNTH_CONFIG)")
	}
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.Layout != "structured" && cfg.Layout != "raw" {
		return fmt.Errorf("invalid layout: %s", cfg.Layout)
	}
	if cfg.Start != "" {
		if _, err := time.Parse(time.RFC3339, cfg.Start); err != nil {
			return fmt.Errorf("invalid start timestamp %q: %w", cfg.Start, err)
		}
	}
	if cfg.BatchPath != "" && len(cfg.Keyframes) > 0 {
		return fmt.Errorf("keyframe arguments and -batch are mutually exclusive")
	}

	cfg.SeedSet = flagWasSet("seed")
	return nil
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - keyframe-driven time series synthesis

Usage: %s [options] [keyframe ...]

Keyframes use the compact form <shorthand><value>@<time> with optional
transitions and behaviors ("g80@30s~", "c90@5m^", "@2m;g50;r+4"), or are
taken from the config file when none are given.

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Generate an hour of data and print it as JSON
  %s -config fields.json "g80@30m~" "c90@45m^"

  # Save a reproducible dataset, downsampled to 500 points
  %s -config fields.json -seed 42 -resample lttb -resample-points 500 -out run.json "g100@1h"

  # Continue from a previous dataset
  %s -config fields.json -extend run.json -out run2.json "g20@30m"

  # Run a batch spec and publish results
  %s -config fields.json -batch nightly.yaml -publish

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// parseStartTime converts the -start flag, defaulting to the current time.
func parseStartTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC().Truncate(time.Second)
	}
	t, _ := time.Parse(time.RFC3339, s) // validated by validateFlags
	return t
}
