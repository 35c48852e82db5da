// Package config provides configuration loading and management for focusblur.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"focusblur/internal/models"
)

// Blur holds the user-tunable blur parameters. The frequency-domain core and
// its collaborators read it, and the core may switch features off when their
// data cannot be refreshed.
type Blur struct {
	// Quality is the tier used when rendering the final image
	Quality models.Quality `yaml:"quality"`

	// QualityPreview is the tier used when rendering an interactive preview
	QualityPreview models.Quality `yaml:"qualityPreview"`

	// ModelRadius is the defocus radius in pixels, without softness
	ModelRadius float64 `yaml:"modelRadius"`

	// Softness widens the kernel edge by this many pixels
	Softness float64 `yaml:"softness"`

	// EnableDepthMap turns on depth-aware blur
	EnableDepthMap bool `yaml:"enableDepthMap"`

	// FocalDepth is the in-focus depth as a percentage of the depth range
	FocalDepth float64 `yaml:"focalDepth"`

	// DepthInvert treats dark depth map pixels as far instead of near
	DepthInvert bool `yaml:"depthInvert"`

	// EnableShine turns on highlight boosting
	EnableShine bool `yaml:"enableShine"`

	// ShineLevel is the highlight strength in percent
	ShineLevel float64 `yaml:"shineLevel"`

	// ShineSigma places the highlight threshold this many standard
	// deviations above the mean luminance
	ShineSigma float64 `yaml:"shineSigma"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Blur parameters shared with the blur core
	Blur Blur `yaml:"blur"`

	// Processing limits
	Processing struct {
		// MaxSourceBytes caps the size of a single source pixel buffer
		MaxSourceBytes int `yaml:"maxSourceBytes"`

		// MaxWorkElements caps the number of float64 elements in one
		// frequency work array
		MaxWorkElements int `yaml:"maxWorkElements"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// LogLevel is a logrus level name
		LogLevel string `yaml:"logLevel"`

		// Profile enables profiling, one of "", "cpu" or "mem"
		Profile string `yaml:"profile"`
	} `yaml:"output"`
}

// DefaultBlur returns the default blur parameters
func DefaultBlur() Blur {
	return Blur{
		Quality:        models.QualityNormal,
		QualityPreview: models.QualityLow,
		ModelRadius:    8,
		Softness:       0,
		EnableDepthMap: false,
		FocalDepth:     0,
		EnableShine:    false,
		ShineLevel:     50,
		ShineSigma:     2,
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Blur = DefaultBlur()

	// 256 MiB of pixels, 32M float64 elements per work array
	cfg.Processing.MaxSourceBytes = 256 << 20
	cfg.Processing.MaxWorkElements = 32 << 20

	cfg.Output.LogLevel = "info"
	cfg.Output.Profile = ""

	return cfg
}

// Validate checks the ranges that the blur core relies on
func (c *Config) Validate() error {
	b := &c.Blur
	if !b.Quality.Valid() || !b.QualityPreview.Valid() {
		return fmt.Errorf("invalid quality tier")
	}
	if b.ModelRadius < 0 {
		return fmt.Errorf("modelRadius must be non-negative, got %g", b.ModelRadius)
	}
	if b.Softness < 0 {
		return fmt.Errorf("softness must be non-negative, got %g", b.Softness)
	}
	if b.FocalDepth < 0 || b.FocalDepth > 100 {
		return fmt.Errorf("focalDepth must be within 0..100, got %g", b.FocalDepth)
	}
	if c.Processing.MaxSourceBytes <= 0 || c.Processing.MaxWorkElements <= 0 {
		return fmt.Errorf("processing limits must be positive")
	}
	return nil
}

// LoadConfig reads a YAML file over the defaults and validates the result.
// A missing or empty file yields the defaults; unknown keys are rejected so
// that a misspelt parameter does not silently keep its default.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig validates cfg and writes it as YAML, creating the directory
func SaveConfig(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile writes the defaults to configPath. An existing
// file is left alone and reported with fs.ErrExist.
func CreateDefaultConfigFile(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file %s: %w", configPath, fs.ErrExist)
	}
	return SaveConfig(DefaultConfig(), configPath)
}
