// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads archgraph settings from .archgraph.yaml and the
// environment.
//
// Precedence, lowest first: DefaultConfig, the YAML file, ARCHGRAPH_*
// environment variables. The merged result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project root.
const FileName = ".archgraph.yaml"

// Environment variables that override file values.
const (
	EnvLogLevel        = "ARCHGRAPH_LOG_LEVEL"
	EnvCacheDir        = "ARCHGRAPH_CACHE_DIR"
	EnvTraceExporter   = "ARCHGRAPH_TRACE_EXPORTER"
	EnvMetricsExporter = "ARCHGRAPH_METRICS_EXPORTER"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the full archgraph configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Cache     CacheConfig     `yaml:"cache"`
	Policy    PolicyConfig    `yaml:"policy"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

type AnalysisConfig struct {
	// IgnoreDirs are added to the built-in ignored directory names.
	IgnoreDirs []string `yaml:"ignore_dirs,omitempty"`

	// Exclude holds doublestar globs over root-relative paths.
	Exclude []string `yaml:"exclude,omitempty"`

	RespectGitignore bool          `yaml:"respect_gitignore"`
	ImpactDepth      int           `yaml:"impact_depth" validate:"gte=1,lte=50"`
	ScanDepth        int           `yaml:"scan_depth" validate:"gte=1,lte=32"`
	Churn            bool          `yaml:"churn"`
	ChurnTimeout     time.Duration `yaml:"churn_timeout" validate:"gte=0"`
}

type CacheConfig struct {
	// Dir is the badger directory. Empty keeps scans in memory only.
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl" validate:"gt=0"`
	LRUSize int           `yaml:"lru_size" validate:"gte=1"`
}

// PolicyConfig selects the rules run by validate.
type PolicyConfig struct {
	Cycles    bool            `yaml:"cycles"`
	Layering  bool            `yaml:"layering"`
	Forbidden []ForbiddenRule `yaml:"forbidden,omitempty" validate:"dive"`
}

// ForbiddenRule forbids imports between two module globs.
type ForbiddenRule struct {
	Name     string `yaml:"name"`
	From     string `yaml:"from" validate:"required"`
	To       string `yaml:"to" validate:"required"`
	Severity string `yaml:"severity" validate:"omitempty,oneof=Critical Warning Info"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	RateLimit       float64       `yaml:"rate_limit" validate:"gte=0"`
	RateBurst       int           `yaml:"rate_burst" validate:"gte=1"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" validate:"required"`
	TraceExporter   string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricsExporter string `yaml:"metrics_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint    string `yaml:"otlp_endpoint"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Analysis: AnalysisConfig{
			ImpactDepth:  3,
			ScanDepth:    4,
			Churn:        true,
			ChurnTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			LRUSize: 64,
		},
		Policy: PolicyConfig{Cycles: true, Layering: true},
		Server: ServerConfig{
			Addr:            ":12218",
			RateLimit:       10,
			RateBurst:       20,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:     "archgraph",
			TraceExporter:   "none",
			MetricsExporter: "prometheus",
		},
	}
}

// Load reads configuration.
//
// Description:
//
//	When path is empty, FileName in the current directory is used if it
//	exists and defaults otherwise. An explicit path that does not exist is
//	an error. Environment overrides are applied last.
//
// Outputs:
//
//	*Config - Validated configuration.
//	error   - Read, parse, or ErrInvalidConfig failures.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Write saves c as YAML, creating parent directories.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(c *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv(EnvTraceExporter); v != "" {
		c.Telemetry.TraceExporter = v
	}
	if v := os.Getenv(EnvMetricsExporter); v != "" {
		c.Telemetry.MetricsExporter = v
	}
	if v := os.Getenv(EnvOTLPEndpoint); v != "" && c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = v
	}
}
