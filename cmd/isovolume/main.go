package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"isovolume/internal/logging"
	"isovolume/internal/models"
	"isovolume/internal/phantom"
	"isovolume/internal/ui"
	"isovolume/pkg/config"
	"isovolume/pkg/scene"
	"isovolume/pkg/vti"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "isovolume: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command line arguments
	configPath := flag.String("config", "isovolume.yaml", "Configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	input := flag.String("input", "", "VTK ImageData (.vti) file to show, overrides data.path")
	usePhantom := flag.Bool("phantom", false, "Show a synthetic head instead of a file")
	phantomSize := flag.Int("phantom-size", 0, "Edge length of the synthetic head in voxels")
	iso := flag.Float64("iso", 0, "Initial isosurface value")
	smooth := flag.Float64("smooth", 0, "Gaussian smoothing of the isosurface input in voxels")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: from config)")
	snapshot := flag.String("snapshot", "", "Render one frame into this PNG or JPEG file and exit")
	stlPath := flag.String("stl", "", "Write the isosurface as binary STL")
	slicesDir := flag.String("slices-dir", "", "Directory to save color mapped axial slices")
	vtiPath := flag.String("write-vti", "", "Write the loaded volume as compressed .vti")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	logFile := flag.String("log-file", "", "Rotating JSON log file")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			return err
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return nil
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	// Only flags given on the command line override the configuration
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Data.Path = *input
		case "phantom-size":
			cfg.Data.PhantomSize = *phantomSize
		case "iso":
			cfg.Isosurface.Value = *iso
		case "smooth":
			cfg.Isosurface.Smoothing = *smooth
		case "cores":
			cfg.Processing.NumCores = *numCores
		case "slices-dir":
			cfg.Output.SlicesDir = *slicesDir
		case "verbose":
			cfg.Output.Verbose = *verbose
		case "log-file":
			cfg.Output.LogFile = *logFile
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Output.Verbose, cfg.Output.LogFile)
	if err != nil {
		return err
	}
	restore := logging.Install(logger)
	defer restore()
	defer logger.Sync()

	vol, err := loadVolume(cfg, *usePhantom, *input != "")
	if err != nil {
		return err
	}
	stats := vol.Stats(16)
	logger.Info("Volume loaded",
		zap.Int("width", vol.Width),
		zap.Int("height", vol.Height),
		zap.Int("depth", vol.Depth),
		zap.Float64("min", stats.Min),
		zap.Float64("max", stats.Max),
		zap.Float64("mean", stats.Mean))

	startTime := time.Now()
	s, err := scene.Build(cfg, vol)
	if err != nil {
		return err
	}
	logger.Debug("Pipelines ready", zap.Duration("elapsed", time.Since(startTime)))

	if *vtiPath != "" {
		if err := vti.WriteFile(*vtiPath, vol, vti.WriteOptions{Compress: true}); err != nil {
			return err
		}
		logger.Info("Exported volume", zap.String("file", *vtiPath))
	}
	if *stlPath != "" {
		if err := s.ExportSTL(*stlPath); err != nil {
			return err
		}
	}
	if cfg.Output.SlicesDir != "" {
		if err := s.ExportSlices(cfg.Output.SlicesDir); err != nil {
			return err
		}
	}

	if *snapshot != "" {
		if err := s.Snapshot(*snapshot); err != nil {
			return err
		}
		logger.Info("Saved snapshot", zap.String("file", *snapshot))
		return nil
	}

	return ui.Run(s, cfg.Window.Title)
}

// loadVolume reads the configured file, or builds the synthetic head when
// asked to or when the default data file is missing
func loadVolume(cfg *config.Config, usePhantom, explicit bool) (*models.Volume, error) {
	if usePhantom || cfg.Data.Path == "" {
		return phantom.Head(cfg.Data.PhantomSize), nil
	}
	vol, err := vti.Read(cfg.Data.Path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("Data file not found, showing the synthetic head",
			zap.String("path", cfg.Data.Path),
			zap.Int("size", cfg.Data.PhantomSize))
		return phantom.Head(cfg.Data.PhantomSize), nil
	}
	return vol, err
}
