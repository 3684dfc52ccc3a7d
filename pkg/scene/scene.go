// Package scene assembles the head viewer: a ray cast volume, an isosurface
// and a slider driving the isosurface threshold, all in one window.
package scene

import (
	"fmt"

	"go.uber.org/zap"

	"isovolume/internal/models"
	"isovolume/pkg/config"
	"isovolume/pkg/filter"
	"isovolume/pkg/interaction"
	"isovolume/pkg/isosurface"
	"isovolume/pkg/stl"
	"isovolume/pkg/transfer"
	"isovolume/pkg/visualization"
	"isovolume/pkg/volume"
)

// Scene holds every stage of both pipelines
type Scene struct {
	Input *models.Volume

	// SurfaceInput is the volume the isosurface is extracted from, Input
	// itself unless smoothing is configured
	SurfaceInput *models.Volume

	Mapper   *volume.Mapper
	Property *volume.Property
	Volume   *volume.Volume

	Renderer *visualization.Renderer
	Window   *visualization.RenderWindow

	Extractor *isosurface.Extractor
	Surface   *isosurface.Actor

	SliderRep    *interaction.SliderRepresentation2D
	SliderWidget *interaction.SliderWidget
	Interactor   *interaction.Interactor
}

// Build wires the pipelines for vol as described by cfg
func Build(cfg *config.Config, vol *models.Volume) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := vol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input volume: %w", err)
	}
	s := &Scene{Input: vol}
	workers := cfg.Processing.NumCores

	// Direct volume rendering
	s.Mapper = volume.NewMapper()
	s.Mapper.SetInput(vol)
	renderMode, err := parseRenderMode(cfg.Volume.RenderMode)
	if err != nil {
		return nil, err
	}
	s.Mapper.SetRequestedRenderMode(renderMode)
	blendMode, err := parseBlendMode(cfg.Volume.BlendMode)
	if err != nil {
		return nil, err
	}
	s.Mapper.SetBlendMode(blendMode)
	s.Mapper.SetSampleDistance(cfg.Volume.SampleDistance)
	s.Mapper.SetWorkers(workers)

	opacity := transfer.NewPiecewiseFunction()
	for _, p := range cfg.Volume.Opacity {
		opacity.AddPointMS(p.X, p.Value, p.Midpoint, p.Sharpness)
	}
	colors := transfer.NewColorTransferFunction()
	for _, p := range cfg.Volume.Color {
		colors.AddRGBPointMS(p.X, p.RGB[0], p.RGB[1], p.RGB[2], p.Midpoint, p.Sharpness)
	}

	s.Property = volume.NewProperty()
	s.Property.SetScalarOpacity(opacity)
	s.Property.SetColor(colors)
	if cfg.Volume.Interpolation == "linear" {
		s.Property.SetInterpolationType(volume.LinearInterpolation)
	} else {
		s.Property.SetInterpolationType(volume.NearestInterpolation)
	}
	if cfg.Volume.Shade {
		s.Property.ShadeOn()
	}
	s.Property.SetLighting(cfg.Volume.Ambient, cfg.Volume.Diffuse, cfg.Volume.Specular, cfg.Volume.SpecularPower)

	s.Volume = volume.NewVolume()
	s.Volume.SetProperty(s.Property)
	s.Volume.SetMapper(s.Mapper)

	s.Renderer = visualization.NewRenderer()
	s.Renderer.GradientBackgroundOn()
	bg, bg2 := cfg.Window.Background, cfg.Window.Background2
	s.Renderer.SetBackground(bg[0], bg[1], bg[2])
	s.Renderer.SetBackground2(bg2[0], bg2[1], bg2[2])
	s.Renderer.SetWorkers(workers)
	s.Renderer.AddVolume(s.Volume)

	s.Window = visualization.NewRenderWindow(cfg.Window.Width, cfg.Window.Height)
	s.Window.SetRenderScale(cfg.Window.RenderScale)
	s.Window.AddRenderer(s.Renderer)

	// Isosurface
	s.SurfaceInput = vol
	if cfg.Isosurface.Smoothing > 0 {
		smoothed, err := filter.NewGaussian(cfg.Isosurface.Smoothing, workers).Apply(vol)
		if err != nil {
			return nil, err
		}
		s.SurfaceInput = smoothed
	}
	s.Extractor = isosurface.New(s.SurfaceInput)
	s.Extractor.SetWorkers(workers)
	s.Extractor.SetComputeNormals(cfg.Isosurface.ComputeNormals)
	s.Extractor.SetNumberOfContours(1)
	s.Extractor.SetValue(0, cfg.Isosurface.Value)
	if err := s.Extractor.Update(); err != nil {
		return nil, err
	}

	s.Surface = isosurface.NewActor(s.Extractor)
	c := cfg.Isosurface.Color
	s.Surface.SetColor(c[0], c[1], c[2])
	s.Surface.SetLookupTable(s.Property.Color())
	s.Surface.SetScalarVisibility(cfg.Isosurface.ScalarVisibility)
	s.Renderer.AddActor(s.Surface)

	// Slider
	s.SliderRep = interaction.NewSliderRepresentation2D()
	if err := s.SliderRep.SetMaximumValue(cfg.Slider.Max); err != nil {
		return nil, err
	}
	if err := s.SliderRep.SetMinimumValue(cfg.Slider.Min); err != nil {
		return nil, err
	}
	s.SliderRep.SetValue(cfg.Slider.Value)
	if cfg.Slider.Coordinates == "normalizedDisplay" {
		s.SliderRep.SetCoordinateSystem(interaction.NormalizedDisplay)
	} else {
		s.SliderRep.SetCoordinateSystem(interaction.Display)
	}
	s.SliderRep.SetPoint1(cfg.Slider.Point1[0], cfg.Slider.Point1[1])
	s.SliderRep.SetPoint2(cfg.Slider.Point2[0], cfg.Slider.Point2[1])
	s.SliderRep.SetTitleText(cfg.Slider.Title)
	s.SliderRep.SetLabelFormat(cfg.Slider.LabelFormat)

	s.Interactor = interaction.NewInteractor()
	s.Interactor.SetRenderWindow(s.Window)

	s.SliderWidget = interaction.NewSliderWidget()
	s.SliderWidget.SetInteractor(s.Interactor)
	s.SliderWidget.SetRepresentation(s.SliderRep)
	animation, err := parseAnimationMode(cfg.Slider.Animation)
	if err != nil {
		return nil, err
	}
	s.SliderWidget.SetAnimationMode(animation)
	s.SliderWidget.SetNumberOfAnimationSteps(cfg.Slider.AnimationSteps)
	s.SliderWidget.SetEnabled(cfg.Slider.Enabled)

	extractor := s.Extractor
	s.SliderWidget.AddObserver(interaction.InteractionEvent,
		interaction.CommandFunc(func(caller any, _ interaction.EventID, _ any) {
			slider, ok := caller.(*interaction.SliderWidget)
			if !ok {
				return
			}
			value := slider.Representation().Value()
			extractor.SetValue(0, value)
			if err := extractor.Update(); err != nil {
				zap.L().Error("Failed to update isosurface", zap.Float64("value", value), zap.Error(err))
			}
		}))

	zap.L().Info("Scene built",
		zap.Int("width", vol.Width),
		zap.Int("height", vol.Height),
		zap.Int("depth", vol.Depth),
		zap.Stringer("renderMode", s.Mapper.EffectiveRenderMode()),
		zap.Float64("isoValue", s.Extractor.Value(0)),
		zap.Int("triangles", s.Extractor.Output().NumTriangles()))
	return s, nil
}

// Run renders the first frame, runs the loop until the window closes and
// releases the window
func (s *Scene) Run(loop interaction.EventLoop) error {
	if err := s.Interactor.Initialize(); err != nil {
		return err
	}
	if err := s.Interactor.Start(loop); err != nil {
		return err
	}
	s.Window.Finalize()
	return nil
}

// IsoValue returns the current isosurface threshold
func (s *Scene) IsoValue() float64 {
	return s.Extractor.Value(0)
}

// SetIsoValue moves the slider to v and updates the isosurface as a slider
// interaction would
func (s *Scene) SetIsoValue(v float64) {
	s.SliderRep.SetValue(v)
	s.SliderWidget.InvokeEvent(interaction.InteractionEvent, nil)
}

// Snapshot renders one frame into a PNG or JPEG file
func (s *Scene) Snapshot(path string) error {
	return s.Window.SaveSnapshot(path)
}

// ExportSTL writes the current isosurface as binary STL
func (s *Scene) ExportSTL(path string) error {
	triangles := s.Extractor.Output().Triangles()
	if err := stl.SaveToSTL(path, triangles); err != nil {
		return err
	}
	zap.L().Info("Exported isosurface", zap.String("file", path), zap.Int("triangles", len(triangles)))
	return nil
}

// ExportSlices writes color mapped axial slices into dir
func (s *Scene) ExportSlices(dir string) error {
	viewer := visualization.NewViewer(s.Input, s.Property.Color())
	if err := viewer.SaveSliceSequence("z", dir); err != nil {
		return fmt.Errorf("error exporting slices: %w", err)
	}
	zap.L().Info("Exported slices", zap.String("dir", dir), zap.Int("count", s.Input.Depth))
	return nil
}

func parseRenderMode(s string) (volume.RenderMode, error) {
	switch s {
	case "default":
		return volume.DefaultRenderMode, nil
	case "raycast":
		return volume.RayCastRenderMode, nil
	case "gpu":
		return volume.GPURenderMode, nil
	}
	return 0, fmt.Errorf("unknown render mode %q", s)
}

func parseBlendMode(s string) (volume.BlendMode, error) {
	switch s {
	case "composite":
		return volume.CompositeBlend, nil
	case "maximum":
		return volume.MaximumIntensityBlend, nil
	case "minimum":
		return volume.MinimumIntensityBlend, nil
	case "average":
		return volume.AverageIntensityBlend, nil
	}
	return 0, fmt.Errorf("unknown blend mode %q", s)
}

func parseAnimationMode(s string) (interaction.AnimationMode, error) {
	switch s {
	case "off":
		return interaction.AnimateOff, nil
	case "jump":
		return interaction.Jump, nil
	case "animate":
		return interaction.Animate, nil
	}
	return 0, fmt.Errorf("unknown animation mode %q", s)
}
