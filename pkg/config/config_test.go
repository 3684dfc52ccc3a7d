package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaultConfig verifies the demo values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}
	if cfg.Isosurface.Value != 500 {
		t.Errorf("Expected iso value 500, got %f", cfg.Isosurface.Value)
	}
	if cfg.Slider.Min != 0 || cfg.Slider.Max != 4100 || cfg.Slider.Value != 100 {
		t.Errorf("Expected slider [0,4100] at 100, got [%f,%f] at %f", cfg.Slider.Min, cfg.Slider.Max, cfg.Slider.Value)
	}
	if len(cfg.Volume.Opacity) != 3 {
		t.Errorf("Expected 3 opacity points, got %d", len(cfg.Volume.Opacity))
	}
	if len(cfg.Volume.Color) != 4 {
		t.Errorf("Expected 4 color points, got %d", len(cfg.Volume.Color))
	}
	if cfg.Window.Width != 1000 || cfg.Window.Height != 600 {
		t.Errorf("Expected 1000x600 window, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Processing.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", cfg.Processing.NumCores)
	}
}

// TestLoadMissingConfig verifies that a missing file yields defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(os.TempDir(), "isovolume-does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Isosurface.Value != 500 {
		t.Errorf("Expected default iso value, got %f", cfg.Isosurface.Value)
	}
}

// TestSaveAndLoadConfig verifies that a saved config loads back unchanged
func TestSaveAndLoadConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "isovolume-config-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Isosurface.Value = 1234
	cfg.Slider.Animation = "jump"
	cfg.Volume.Opacity[1].Sharpness = 0.25

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Isosurface.Value != 1234 {
		t.Errorf("Expected iso value 1234, got %f", loaded.Isosurface.Value)
	}
	if loaded.Slider.Animation != "jump" {
		t.Errorf("Expected animation jump, got %s", loaded.Slider.Animation)
	}
	if loaded.Volume.Opacity[1].Sharpness != 0.25 {
		t.Errorf("Expected sharpness 0.25, got %f", loaded.Volume.Opacity[1].Sharpness)
	}
	if loaded.Volume.Color[2].RGB != cfg.Volume.Color[2].RGB {
		t.Errorf("Expected color %v, got %v", cfg.Volume.Color[2].RGB, loaded.Volume.Color[2].RGB)
	}
}

// TestPartialConfig verifies that unspecified keys keep their defaults
func TestPartialConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "isovolume-config-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("isosurface:\n  value: 800\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Isosurface.Value != 800 {
		t.Errorf("Expected iso value 800, got %f", cfg.Isosurface.Value)
	}
	if cfg.Slider.Max != 4100 {
		t.Errorf("Expected default slider max, got %f", cfg.Slider.Max)
	}

	if err := os.WriteFile(path, []byte("isosurface: [broken"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected a parse error")
	}
}

// TestValidate verifies that every class of bad setting is reported
func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Window.Width = 0
	cfg.Slider.Min = 5000
	cfg.Volume.Opacity[0].Value = 2
	cfg.Volume.Color[1].RGB[0] = -0.1
	cfg.Volume.BlendMode = "additive"
	cfg.Isosurface.Smoothing = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	for _, want := range []string{"window size", "slider min", "opacity point 0", "color point 1", "volume.blendMode", "isosurface smoothing"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got %v", want, err)
		}
	}

	cfg = DefaultConfig()
	cfg.Volume.Color = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Expected an error for an empty color function")
	}

	for _, scale := range []float64{0, -0.5, 1.5} {
		cfg = DefaultConfig()
		cfg.Window.RenderScale = scale
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "render scale") {
			t.Errorf("Expected a render scale error for %g, got %v", scale, err)
		}
	}
	cfg = DefaultConfig()
	cfg.Window.RenderScale = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected render scale 1 to be valid, got %v", err)
	}
}
