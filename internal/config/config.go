// Package config defines the options a host process supplies to Serve,
// loadable from a YAML file and overlaid with explicit in-code overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// BatchDefaults are the per-model batching knobs applied to any registered
// model that does not set its own MaxBatchSize/BatchTimeout.
type BatchDefaults struct {
	MaxBatchSize int           `yaml:"max_batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout_ms"`
}

// ServeOptions is the full set of options Serve accepts. Zero-value fields
// are filled in from Defaults() by Load.
type ServeOptions struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	WorkerPoolSize int           `yaml:"worker_pool_size"`
	GracePeriod    time.Duration `yaml:"grace_period_ms"`
	// BatchingEnabled is a pointer so that an explicit "false" (from YAML
	// or from a CLI override) is distinguishable from "unset". Load copies
	// a non-nil value over the merged result itself: mergo.WithOverride
	// dereferences pointers and treats a bool false as an empty value, so
	// it would otherwise silently drop the disable.
	BatchingEnabled *bool         `yaml:"batching_enabled"`
	Batch           BatchDefaults `yaml:"batch_defaults"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
	// MetricsAddr is the bind address for the /metrics HTTP endpoint.
	// Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Batching reports whether batching is enabled, defaulting to true if
// BatchingEnabled was never set.
func (o ServeOptions) Batching() bool {
	return o.BatchingEnabled == nil || *o.BatchingEnabled
}

func boolPtr(b bool) *bool { return &b }

// Defaults returns the baseline ServeOptions used when a caller-supplied
// struct leaves a field at its zero value.
func Defaults() ServeOptions {
	return ServeOptions{
		Host:            "0.0.0.0",
		Port:            50051,
		WorkerPoolSize:  0, // unbounded
		GracePeriod:     10 * time.Second,
		BatchingEnabled: boolPtr(true),
		Batch: BatchDefaults{
			MaxBatchSize: 8,
			BatchTimeout: 10 * time.Millisecond,
		},
		LogLevel:    "info",
		MetricsAddr: ":9090",
	}
}

// Load reads a YAML config file, if path is non-empty, and merges the
// caller-supplied overrides on top of it, then merges the result on top of
// Defaults(). A caller that wants pure defaults can pass an empty path and
// a zero-value ServeOptions.
func Load(path string, overrides ServeOptions) (ServeOptions, error) {
	opts := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return ServeOptions{}, fmt.Errorf("reading config file %q: %w", path, err)
		}
		var fromFile ServeOptions
		if err := yaml.Unmarshal(raw, &fromFile); err != nil {
			return ServeOptions{}, fmt.Errorf("parsing config file %q: %w", path, err)
		}
		if err := mergo.Merge(&opts, fromFile, mergo.WithOverride); err != nil {
			return ServeOptions{}, fmt.Errorf("merging config file %q: %w", path, err)
		}
		if fromFile.BatchingEnabled != nil {
			opts.BatchingEnabled = fromFile.BatchingEnabled
		}
	}

	if err := mergo.Merge(&opts, overrides, mergo.WithOverride); err != nil {
		return ServeOptions{}, fmt.Errorf("merging explicit overrides: %w", err)
	}
	if overrides.BatchingEnabled != nil {
		opts.BatchingEnabled = overrides.BatchingEnabled
	}
	return opts, nil
}
