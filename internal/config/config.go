// Package config loads the YAML configuration shared by the CLI and the
// tool server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot/vg"
	"gopkg.in/yaml.v3"

	"github.com/njchilds90/gotaylor/report"
	"github.com/njchilds90/gotaylor/taylor"
)

// Config holds all settings.
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Plot     PlotConfig     `yaml:"plot"`
	Parallel ParallelConfig `yaml:"parallel"`
	Lagrange LagrangeConfig `yaml:"lagrange"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// PlotConfig sizes are in inches.
type PlotConfig struct {
	Points   int     `yaml:"points"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	LogScale bool    `yaml:"log_scale"`
}

// ParallelConfig sets the worker count for parallel term computation.
// Zero means one worker per CPU.
type ParallelConfig struct {
	Workers int `yaml:"workers"`
}

// LagrangeConfig sets how many points the error bound samples.
type LagrangeConfig struct {
	Samples int `yaml:"samples"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
	MaxSessions  int    `yaml:"max_sessions"` // open tool sessions allowed at once
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Dir: "taylor_output"},
		Plot: PlotConfig{
			Points:   1000,
			Width:    12,
			Height:   8,
			LogScale: true,
		},
		Parallel: ParallelConfig{Workers: 0},
		Lagrange: LagrangeConfig{Samples: taylor.DefaultSamples},
		Logging:  LoggingConfig{Level: "info"},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "30s",
			WriteTimeout: "120s",
			MaxSessions:  1000,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies TAYLOR_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if dir := os.Getenv("TAYLOR_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if level := os.Getenv("TAYLOR_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("TAYLOR_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TAYLOR_WORKERS %q: %w", v, err)
		}
		c.Parallel.Workers = n
	}
	if v := os.Getenv("TAYLOR_LAGRANGE_SAMPLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TAYLOR_LAGRANGE_SAMPLES %q: %w", v, err)
		}
		c.Lagrange.Samples = n
	}
	return nil
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if c.Plot.Points < 2 {
		return fmt.Errorf("plot.points must be at least 2, got %d", c.Plot.Points)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot size must be positive, got %gx%g", c.Plot.Width, c.Plot.Height)
	}
	if c.Parallel.Workers < 0 {
		return fmt.Errorf("parallel.workers must not be negative, got %d", c.Parallel.Workers)
	}
	if c.Lagrange.Samples < 2 {
		return fmt.Errorf("lagrange.samples must be at least 2, got %d", c.Lagrange.Samples)
	}
	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.max_sessions must be at least 1, got %d", c.Server.MaxSessions)
	}
	for name, d := range map[string]string{"server.read_timeout": c.Server.ReadTimeout, "server.write_timeout": c.Server.WriteTimeout} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// PlotOptions converts the plot section for the report package.
func (c *Config) PlotOptions() report.PlotOptions {
	return report.PlotOptions{
		Points:   c.Plot.Points,
		Width:    vg.Length(c.Plot.Width) * vg.Inch,
		Height:   vg.Length(c.Plot.Height) * vg.Inch,
		LogScale: c.Plot.LogScale,
	}
}

// ApproximatorOptions returns the worker and sampling settings as
// approximator options.
func (c *Config) ApproximatorOptions() []taylor.Option {
	return []taylor.Option{
		taylor.WithWorkers(c.Parallel.Workers),
		taylor.WithSamples(c.Lagrange.Samples),
	}
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the server write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}
