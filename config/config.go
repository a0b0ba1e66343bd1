package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chrisdreid/chronosynth/engine"
	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
)

const maxConfigSize = 10 << 20 // refuse config files above 10MB

// Config is the complete application configuration: the field registry,
// default generation parameters, and the optional metrics and NATS
// surfaces used by the CLI and batch runner.
type Config struct {
	Version    string                `json:"version,omitempty" yaml:"version,omitempty"`
	Fields     map[string]field.Spec `json:"fields"            yaml:"fields"`
	Generation engine.Params         `json:"generation"        yaml:"generation"`
	Metrics    MetricsConfig         `json:"metrics"           yaml:"metrics"`
	NATS       NATSConfig            `json:"nats"              yaml:"nats"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"        yaml:"enabled"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// NATSConfig controls dataset publishing.
type NATSConfig struct {
	Enabled       bool          `json:"enabled"                  yaml:"enabled"`
	URLs          []string      `json:"urls,omitempty"           yaml:"urls,omitempty"`
	Subject       string        `json:"subject,omitempty"        yaml:"subject,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"       yaml:"username,omitempty"`
	Password      string        `json:"password,omitempty"       yaml:"password,omitempty"`
	Token         string        `json:"token,omitempty"          yaml:"token,omitempty"`
}

// Registry builds a field.Registry from the configured field specs. The map
// key becomes the field name; shorthand uniqueness is enforced by Add.
func (c *Config) Registry() (*field.Registry, error) {
	reg := field.NewRegistry()
	for _, name := range sortedKeys(c.Fields) {
		spec := c.Fields[name]
		spec.Name = name
		if err := reg.Add(spec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if len(c.Fields) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"at least one field must be defined")
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if c.Generation.Total < 0 || c.Generation.Interval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"generation total and interval must not be negative")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("metrics port %d out of range", c.Metrics.Port))
	}
	if c.NATS.Enabled {
		if len(c.NATS.URLs) == 0 {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				"nats.urls is required when nats is enabled")
		}
		if c.NATS.Subject == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				"nats.subject is required when nats is enabled")
		}
	}
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// SaveToFile writes the configuration as indented JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Loader loads configuration from layered files with environment
// overrides. Later layers win; environment variables win over all layers.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a loader with schema validation enabled and the
// CHRONOSYNTH_ environment prefix.
func NewLoader() *Loader {
	return &Loader{validation: true, envPrefix: "CHRONOSYNTH"}
}

// AddLayer appends a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles schema and structural validation.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file, replacing any layers.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, all layers and environment overrides.
func (l *Loader) Load() (*Config, error) {
	merged := defaultsMap()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		merged = deepMergeMaps(merged, raw)
	}

	if l.validation {
		if err := validateFieldsSchema(merged); err != nil {
			return nil, err
		}
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// defaultsMap returns the built-in defaults in raw-map form so file layers
// merge over them field by field.
func defaultsMap() map[string]any {
	return map[string]any{
		"generation": map[string]any{
			"total":    3600.0,
			"interval": 1.0,
		},
		"metrics": map[string]any{
			"enabled": false,
			"port":    9090,
			"path":    "/metrics",
		},
		"nats": map[string]any{
			"enabled":        false,
			"urls":           []any{"nats://localhost:4222"},
			"subject":        "chronosynth.datasets",
			"max_reconnects": -1,
			"reconnect_wait": "2s",
		},
	}
}

// loadRaw reads a single layer into a raw map. YAML and JSON are both
// accepted, selected by file extension.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// fromMap decodes a merged raw map into a Config. Duration strings such
// as "2s" in nats.reconnect_wait are converted before decoding.
func fromMap(raw map[string]any) (*Config, error) {
	if nats, ok := raw["nats"].(map[string]any); ok {
		if wait, ok := nats["reconnect_wait"].(string); ok {
			d, err := time.ParseDuration(wait)
			if err != nil {
				return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Loader", "Load",
					fmt.Sprintf("nats.reconnect_wait %q", wait))
			}
			nats["reconnect_wait"] = d.Nanoseconds()
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.WrapInternal(err, "Loader", "Load", "encode merged config")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode merged config")
	}
	return &cfg, nil
}

// deepMergeMaps recursively merges two maps, with override taking
// precedence. Nested maps merge key by key; everything else replaces.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies CHRONOSYNTH_* environment variables on top of
// the merged configuration.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_NATS_URLS"); val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val := os.Getenv(l.envPrefix + "_NATS_SUBJECT"); val != "" {
		cfg.NATS.Subject = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}
	if val := os.Getenv(l.envPrefix + "_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if val := os.Getenv(l.envPrefix + "_METRICS_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
}

func sortedKeys(m map[string]field.Spec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
