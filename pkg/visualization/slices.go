// Package visualization renders volumes and surfaces into images: a camera,
// a renderer with a depth-buffered rasterizer, a render window with
// snapshots, and color mapped slice export.
package visualization

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
	"isovolume/pkg/transfer"
)

// Viewer exports 2-D slices of a volume colored by a transfer function
type Viewer struct {
	volume *models.Volume

	// colors maps scalars to RGB; when nil the scalar range maps to gray
	colors *transfer.ColorTransferFunction
}

// NewViewer creates a slice viewer
func NewViewer(vol *models.Volume, colors *transfer.ColorTransferFunction) *Viewer {
	return &Viewer{volume: vol, colors: colors}
}

// sliceCount returns how many slices exist along axis
func (v *Viewer) sliceCount(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return v.volume.Width, nil
	case "y", "Y":
		return v.volume.Height, nil
	case "z", "Z":
		return v.volume.Depth, nil
	}
	return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts a colored 2-D slice perpendicular to axis. X slices
// are laid out depth by height, Y slices width by depth and Z slices width
// by height.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.RGBA, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	count, err := v.sliceCount(axis)
	if err != nil {
		return nil, err
	}
	if position >= count {
		return nil, fmt.Errorf("position %d exceeds %s extent %d", position, axis, count)
	}

	vol := v.volume
	lo, hi := vol.ScalarRange()
	mapColor := func(s float64) mgl64.Vec3 {
		if v.colors != nil {
			return v.colors.Color(s)
		}
		if hi <= lo {
			return mgl64.Vec3{}
		}
		g := (s - lo) / (hi - lo)
		return mgl64.Vec3{g, g, g}
	}

	var img *image.RGBA
	switch axis {
	case "x", "X":
		img = image.NewRGBA(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetRGBA(z, y, toRGBA(mapColor(vol.At(position, y, z))))
			}
		}
	case "y", "Y":
		img = image.NewRGBA(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetRGBA(x, z, toRGBA(mapColor(vol.At(x, position, z))))
			}
		}
	default:
		img = image.NewRGBA(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetRGBA(x, y, toRGBA(mapColor(vol.At(x, y, position))))
			}
		}
	}
	return img, nil
}

// SaveSlice saves an extracted slice as JPEG or PNG by file extension
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return SaveImage(img, filename)
}

// SaveSliceSequence extracts and saves every slice along axis as JPEG
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	count, err := v.sliceCount(axis)
	if err != nil {
		return err
	}

	for pos := 0; pos < count; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
