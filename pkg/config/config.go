// Package config provides configuration loading and management for isovolume.
// It handles loading configuration from YAML files and provides default values
// that reproduce the head scan demo.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// OpacityPoint is one node of the scalar opacity transfer function
type OpacityPoint struct {
	X         float64 `yaml:"x"`
	Value     float64 `yaml:"value"`
	Midpoint  float64 `yaml:"midpoint"`
	Sharpness float64 `yaml:"sharpness"`
}

// ColorPoint is one node of the color transfer function
type ColorPoint struct {
	X         float64    `yaml:"x"`
	RGB       [3]float64 `yaml:"rgb,flow"`
	Midpoint  float64    `yaml:"midpoint"`
	Sharpness float64    `yaml:"sharpness"`
}

// Accepted enum names
var (
	RenderModes    = []string{"default", "raycast", "gpu"}
	BlendModes     = []string{"composite", "maximum", "minimum", "average"}
	Interpolations = []string{"nearest", "linear"}
	AnimationModes = []string{"jump", "animate", "off"}
	CoordSystems   = []string{"display", "normalizedDisplay"}
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input data
	Data struct {
		// Path of the .vti file to load
		Path string `yaml:"path"`

		// PhantomSize is the edge length in voxels of the synthetic head used
		// when no file is given
		PhantomSize int `yaml:"phantomSize"`
	} `yaml:"data"`

	// Direct volume rendering parameters
	Volume struct {
		Opacity []OpacityPoint `yaml:"opacity"`
		Color   []ColorPoint   `yaml:"color"`

		// RenderMode is one of default, raycast, gpu
		RenderMode string `yaml:"renderMode"`

		// BlendMode is one of composite, maximum, minimum, average
		BlendMode string `yaml:"blendMode"`

		// Interpolation is nearest or linear
		Interpolation string `yaml:"interpolation"`

		Shade         bool    `yaml:"shade"`
		Ambient       float64 `yaml:"ambient"`
		Diffuse       float64 `yaml:"diffuse"`
		Specular      float64 `yaml:"specular"`
		SpecularPower float64 `yaml:"specularPower"`

		// SampleDistance along each ray in world units, 0 picks half the
		// smallest voxel spacing
		SampleDistance float64 `yaml:"sampleDistance"`
	} `yaml:"volume"`

	// Isosurface parameters
	Isosurface struct {
		// Value is the initial threshold
		Value            float64    `yaml:"value"`
		ComputeNormals   bool       `yaml:"computeNormals"`
		Color            [3]float64 `yaml:"color,flow"`
		ScalarVisibility bool       `yaml:"scalarVisibility"`

		// Smoothing is the Gaussian standard deviation in voxels applied to
		// the extractor input, 0 extracts from the raw samples
		Smoothing float64 `yaml:"smoothing"`
	} `yaml:"isosurface"`

	// Slider widget bound to the threshold
	Slider struct {
		Min         float64    `yaml:"min"`
		Max         float64    `yaml:"max"`
		Value       float64    `yaml:"value"`
		Title       string     `yaml:"title"`
		LabelFormat string     `yaml:"labelFormat"`
		Point1      [2]float64 `yaml:"point1,flow"`
		Point2      [2]float64 `yaml:"point2,flow"`

		// Coordinates is display or normalizedDisplay
		Coordinates string `yaml:"coordinates"`

		// Animation is one of jump, animate, off
		Animation      string `yaml:"animation"`
		AnimationSteps int    `yaml:"animationSteps"`
		Enabled        bool   `yaml:"enabled"`
	} `yaml:"slider"`

	// Window parameters
	Window struct {
		Width       int        `yaml:"width"`
		Height      int        `yaml:"height"`
		Title       string     `yaml:"title"`
		Background  [3]float64 `yaml:"background,flow"`
		Background2 [3]float64 `yaml:"background2,flow"`

		// RenderScale below 1 renders a smaller frame and upscales it
		RenderScale float64 `yaml:"renderScale"`
	} `yaml:"window"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// LogFile enables a rotating JSON log when set
		LogFile string `yaml:"logFile"`

		// SlicesDir receives color mapped axial slices when set
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Data.Path = "../data/headsq-half.vti"
	cfg.Data.PhantomSize = 64

	cfg.Volume.Opacity = []OpacityPoint{
		{X: -3024, Value: 0, Midpoint: 0.5, Sharpness: 0},
		{X: -16, Value: 0, Midpoint: 0.49, Sharpness: 0.61},
		{X: 3071, Value: 0.71, Midpoint: 0.5, Sharpness: 0},
	}
	cfg.Volume.Color = []ColorPoint{
		{X: -3024, RGB: [3]float64{0, 0, 0}, Midpoint: 0.5, Sharpness: 0},
		{X: -16, RGB: [3]float64{0.73, 0.25, 0.30}, Midpoint: 0.49, Sharpness: 0.61},
		{X: 641, RGB: [3]float64{0.90, 0.82, 0.56}, Midpoint: 0.5, Sharpness: 0},
		{X: 3071, RGB: [3]float64{1, 1, 1}, Midpoint: 0.5, Sharpness: 0},
	}
	cfg.Volume.RenderMode = "gpu"
	cfg.Volume.BlendMode = "composite"
	cfg.Volume.Interpolation = "linear"
	cfg.Volume.Shade = true
	cfg.Volume.Ambient = 0
	cfg.Volume.Diffuse = 0.7
	cfg.Volume.Specular = 0.2
	cfg.Volume.SpecularPower = 10

	cfg.Isosurface.Value = 500
	cfg.Isosurface.ComputeNormals = true
	cfg.Isosurface.Color = [3]float64{1, 1, 1}
	cfg.Isosurface.ScalarVisibility = false

	cfg.Slider.Min = 0
	cfg.Slider.Max = 4100
	cfg.Slider.Value = 100
	cfg.Slider.Title = "Iso Value"
	cfg.Slider.LabelFormat = "%0.1f"
	cfg.Slider.Point1 = [2]float64{100, 100}
	cfg.Slider.Point2 = [2]float64{300, 100}
	cfg.Slider.Coordinates = "display"
	cfg.Slider.Animation = "animate"
	cfg.Slider.AnimationSteps = 24
	cfg.Slider.Enabled = true

	cfg.Window.Width = 1000
	cfg.Window.Height = 600
	cfg.Window.Title = "isovolume"
	cfg.Window.Background = [3]float64{0, 0, 0}
	cfg.Window.Background2 = [3]float64{0.2, 0.2, 0.2}
	cfg.Window.RenderScale = 0.5

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate reports every inconsistent setting at once
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Data.PhantomSize < 2 {
		fail("phantom size %d must be at least 2", c.Data.PhantomSize)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		fail("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Window.RenderScale <= 0 || c.Window.RenderScale > 1 {
		fail("render scale %g must be in (0,1]", c.Window.RenderScale)
	}
	if c.Slider.Min > c.Slider.Max {
		fail("slider min %g is above max %g", c.Slider.Min, c.Slider.Max)
	}
	if c.Slider.AnimationSteps < 0 {
		fail("slider animation steps %d must not be negative", c.Slider.AnimationSteps)
	}

	if len(c.Volume.Opacity) == 0 {
		fail("opacity transfer function has no points")
	}
	for i, p := range c.Volume.Opacity {
		if !unit(p.Value) || !unit(p.Midpoint) || !unit(p.Sharpness) {
			fail("opacity point %d has values outside [0,1]", i)
		}
	}
	if len(c.Volume.Color) == 0 {
		fail("color transfer function has no points")
	}
	for i, p := range c.Volume.Color {
		if !unit(p.RGB[0]) || !unit(p.RGB[1]) || !unit(p.RGB[2]) || !unit(p.Midpoint) || !unit(p.Sharpness) {
			fail("color point %d has values outside [0,1]", i)
		}
	}
	if c.Isosurface.Smoothing < 0 {
		fail("isosurface smoothing %g must not be negative", c.Isosurface.Smoothing)
	}
	if c.Volume.SampleDistance < 0 {
		fail("sample distance %g must not be negative", c.Volume.SampleDistance)
	}

	enums := []struct {
		field, value string
		allowed      []string
	}{
		{"volume.renderMode", c.Volume.RenderMode, RenderModes},
		{"volume.blendMode", c.Volume.BlendMode, BlendModes},
		{"volume.interpolation", c.Volume.Interpolation, Interpolations},
		{"slider.animation", c.Slider.Animation, AnimationModes},
		{"slider.coordinates", c.Slider.Coordinates, CoordSystems},
	}
	for _, e := range enums {
		if !contains(e.allowed, e.value) {
			fail("%s: unknown value %q, expected one of %v", e.field, e.value, e.allowed)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
