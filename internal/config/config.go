// Package config handles baker configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/internal/importer"
	"github.com/Faultbox/lightbake/internal/logger"
	"github.com/Faultbox/lightbake/pkg/accel"
	"github.com/Faultbox/lightbake/pkg/formats"
)

// Config holds all baker settings.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Import  ImportConfig  `yaml:"import"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds acceleration structure settings.
type BuildConfig struct {
	GridSize     int     `yaml:"grid_size"`     // cells per axis, power of two
	BoundsMargin float32 `yaml:"bounds_margin"` // world units added around the scene
	Verbose      bool    `yaml:"verbose"`
}

// ImportConfig holds scene import settings.
type ImportConfig struct {
	Scene           int  `yaml:"scene"` // -1 selects the document default
	ApplyTransforms bool `yaml:"apply_transforms"`
}

// OutputConfig holds dump file settings.
type OutputConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			GridSize:     accel.DefaultGridSize,
			BoundsMargin: accel.DefaultBoundsMargin,
		},
		Import: ImportConfig{
			Scene:           -1,
			ApplyTransforms: true,
		},
		Output: OutputConfig{
			Path:     "scene.lmas",
			Compress: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if e := accel.ValidateGridSize(c.Build.GridSize); e != nil {
		err = multierr.Append(err, fmt.Errorf("build.grid_size: %w", e))
	}
	m := float64(c.Build.BoundsMargin)
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		err = multierr.Append(err, fmt.Errorf("build.bounds_margin: %w: %v", accel.ErrBoundsMargin, c.Build.BoundsMargin))
	}
	if c.Import.Scene < -1 {
		err = multierr.Append(err, fmt.Errorf("import.scene: must be -1 or a scene index, got %d", c.Import.Scene))
	}
	if c.Output.Path == "" {
		err = multierr.Append(err, errors.New("output.path: must not be empty"))
	}
	if _, e := logger.ParseLevel(c.Logging.Level); e != nil {
		err = multierr.Append(err, fmt.Errorf("logging.level: %w", e))
	}
	return err
}

// BuildOptions converts the build section into builder options.
func (c *Config) BuildOptions(log *zap.Logger) accel.Options {
	return accel.Options{
		GridSize:     c.Build.GridSize,
		BoundsMargin: c.Build.BoundsMargin,
		Verbose:      c.Build.Verbose,
		Logger:       log,
	}
}

// ImportOptions converts the import section into importer options.
func (c *Config) ImportOptions(log *zap.Logger) importer.Options {
	return importer.Options{
		Scene:           c.Import.Scene,
		ApplyTransforms: c.Import.ApplyTransforms,
		Logger:          log,
	}
}

// WriteOptions converts the output section into dump writer options.
func (c *Config) WriteOptions() formats.AccelWriteOptions {
	return formats.AccelWriteOptions{Compress: c.Output.Compress}
}
