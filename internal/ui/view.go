// Package ui hosts a scene in a fyne window. Frames rendered by the
// interactor are shown in an image and pointer input is forwarded to the
// interactor in display coordinates.
package ui

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"isovolume/pkg/interaction"
)

// View shows the frames of an interactor and feeds it mouse events
type View struct {
	widget.BaseWidget

	interactor *interaction.Interactor
	image      *canvas.Image

	mu      sync.Mutex
	pressed bool
	lastX   float64
	lastY   float64
	frames  int
}

var (
	_ desktop.Mouseable = (*View)(nil)
	_ desktop.Hoverable = (*View)(nil)
	_ fyne.Draggable    = (*View)(nil)
	_ fyne.Scrollable   = (*View)(nil)
)

// NewView returns a view bound to i. It installs itself as the frame sink
// of i, so it must be created before the interactor starts.
func NewView(i *interaction.Interactor) *View {
	v := &View{interactor: i}
	v.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	v.image.FillMode = canvas.ImageFillStretch
	v.image.ScaleMode = canvas.ImageScaleFastest

	width, height := i.Size()
	v.image.SetMinSize(fyne.NewSize(float32(width)/2, float32(height)/2))

	i.SetFrameSink(v.showFrame)
	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget
func (v *View) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.image)
}

// Frames returns how many frames the view received
func (v *View) Frames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

func (v *View) showFrame(frame *image.RGBA) {
	v.mu.Lock()
	v.frames++
	v.mu.Unlock()
	v.image.Image = frame
	v.image.Refresh()
}

// toDisplay maps a position inside the widget to window pixels with the
// origin at the bottom left
func (v *View) toDisplay(pos fyne.Position) (x, y float64) {
	size := v.Size()
	width, height := v.interactor.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return float64(pos.X), float64(height) - float64(pos.Y)
	}
	x = float64(pos.X) / float64(size.Width) * float64(width)
	y = float64(height) - float64(pos.Y)/float64(size.Height)*float64(height)
	return x, y
}

// MouseDown implements desktop.Mouseable
func (v *View) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	x, y := v.toDisplay(ev.Position)
	v.mu.Lock()
	v.pressed = true
	v.lastX, v.lastY = x, y
	v.mu.Unlock()
	v.interactor.LeftButtonPress(x, y)
}

// MouseUp implements desktop.Mouseable
func (v *View) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	x, y := v.toDisplay(ev.Position)
	v.release(x, y)
}

// MouseIn implements desktop.Hoverable
func (v *View) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable
func (v *View) MouseMoved(ev *desktop.MouseEvent) {
	x, y := v.toDisplay(ev.Position)
	v.move(x, y)
}

// MouseOut implements desktop.Hoverable
func (v *View) MouseOut() {}

// Dragged implements fyne.Draggable. fyne reports motion with a held button
// as drags rather than moves.
func (v *View) Dragged(ev *fyne.DragEvent) {
	x, y := v.toDisplay(ev.Position)
	v.move(x, y)
}

// DragEnd implements fyne.Draggable
func (v *View) DragEnd() {
	v.mu.Lock()
	x, y := v.lastX, v.lastY
	v.mu.Unlock()
	v.release(x, y)
}

// Scrolled implements fyne.Scrollable
func (v *View) Scrolled(ev *fyne.ScrollEvent) {
	x, y := v.toDisplay(ev.Position)
	switch {
	case ev.Scrolled.DY > 0:
		v.interactor.MouseWheelForward(x, y)
	case ev.Scrolled.DY < 0:
		v.interactor.MouseWheelBackward(x, y)
	}
}

func (v *View) move(x, y float64) {
	v.mu.Lock()
	v.lastX, v.lastY = x, y
	v.mu.Unlock()
	v.interactor.MouseMove(x, y)
}

// release sends one release per press, whichever of MouseUp and DragEnd
// arrives first
func (v *View) release(x, y float64) {
	v.mu.Lock()
	pressed := v.pressed
	v.pressed = false
	v.mu.Unlock()
	if pressed {
		v.interactor.LeftButtonRelease(x, y)
	}
}
