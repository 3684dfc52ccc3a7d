package visualization

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// RenderWindow composes the frames of its renderers
type RenderWindow struct {
	mu sync.Mutex

	width, height int

	// renderScale below 1 renders the 3-D scene into a smaller buffer that
	// is scaled up to the window size; overlays are drawn at full size
	renderScale float64

	renderers []*Renderer
	frame     *image.RGBA
	frames    int
}

// NewRenderWindow creates a window of the given size rendering at full
// resolution
func NewRenderWindow(width, height int) *RenderWindow {
	w := &RenderWindow{renderScale: 1}
	w.SetSize(width, height)
	return w
}

// SetSize changes the frame size
func (w *RenderWindow) SetSize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	w.width, w.height = width, height
}

// Size returns the frame size
func (w *RenderWindow) Size() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// SetRenderScale sets the 3-D resolution relative to the window, in (0,1]
func (w *RenderWindow) SetRenderScale(s float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s <= 0 || s > 1 {
		s = 1
	}
	w.renderScale = s
}

// AddRenderer adds a renderer drawn over the previous ones
func (w *RenderWindow) AddRenderer(r *Renderer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.renderers = append(w.renderers, r)
}

// Renderers returns the renderers in drawing order
func (w *RenderWindow) Renderers() []*Renderer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Renderer(nil), w.renderers...)
}

// Render draws a new frame and returns it. Each call allocates a fresh
// image, so earlier frames stay valid.
func (w *RenderWindow) Render() (*image.RGBA, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	full := image.Rect(0, 0, w.width, w.height)
	sw := int(math.Max(1, math.Round(float64(w.width)*w.renderScale)))
	sh := int(math.Max(1, math.Round(float64(w.height)*w.renderScale)))

	scene := image.NewRGBA(image.Rect(0, 0, sw, sh))
	for _, r := range w.renderers {
		if err := r.Render(scene); err != nil {
			return nil, fmt.Errorf("error rendering scene: %w", err)
		}
	}

	frame := scene
	if sw != w.width || sh != w.height {
		frame = image.NewRGBA(full)
		xdraw.BiLinear.Scale(frame, full, scene, scene.Bounds(), xdraw.Src, nil)
	}
	for _, r := range w.renderers {
		r.DrawOverlays(frame)
	}

	w.frame = frame
	w.frames++
	zap.L().Debug("Rendered frame",
		zap.Int("frame", w.frames),
		zap.Int("width", sw),
		zap.Int("height", sh),
		zap.Duration("duration", time.Since(start)))
	return frame, nil
}

// Frame returns the last rendered frame, nil before the first render
func (w *RenderWindow) Frame() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame
}

// Frames returns how many frames were rendered
func (w *RenderWindow) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// SaveSnapshot renders a frame and stores it as PNG, or JPEG when the file
// name ends in .jpg or .jpeg
func (w *RenderWindow) SaveSnapshot(filename string) error {
	frame, err := w.Render()
	if err != nil {
		return err
	}
	return SaveImage(frame, filename)
}

// SaveImage stores img as PNG, or JPEG when the file name ends in .jpg or
// .jpeg
func SaveImage(img image.Image, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating image directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating image file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		return fmt.Errorf("error encoding image: %w", err)
	}
	return file.Close()
}

// Finalize releases the last frame
func (w *RenderWindow) Finalize() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frame = nil
}
