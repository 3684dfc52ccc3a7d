package interaction

import (
	"errors"
	"image"
	"math"
	"sync"

	"go.uber.org/zap"

	"isovolume/pkg/visualization"
)

// Event is a pointer event in display coordinates, origin at the bottom left
type Event struct {
	ID   EventID
	X, Y float64
}

// Widget receives events before the interactor style
type Widget interface {
	ProcessEvent(ev Event) bool
}

// Style turns the events no widget consumed into camera motion. It reports
// whether the view changed.
type Style interface {
	ProcessEvent(i *Interactor, ev Event) bool
}

// EventLoop delivers window events to the interactor until the window
// closes
type EventLoop interface {
	Run()
}

// FrameSink receives every rendered frame
type FrameSink func(frame *image.RGBA)

// ErrNoRenderWindow is returned when the interactor has nothing to drive
var ErrNoRenderWindow = errors.New("interactor has no render window")

// Interactor routes window events to widgets and a camera style and
// re-renders after anything changed
type Interactor struct {
	Object

	mu sync.Mutex

	window  *visualization.RenderWindow
	style   Style
	widgets []Widget
	sink    FrameSink

	initialized bool
}

// NewInteractor returns an interactor with a trackball camera style
func NewInteractor() *Interactor {
	i := &Interactor{style: NewTrackballCamera()}
	i.SetOwner(i)
	return i
}

// SetRenderWindow sets the window that is rendered and resized
func (i *Interactor) SetRenderWindow(w *visualization.RenderWindow) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.window = w
}

// RenderWindow returns the driven window
func (i *Interactor) RenderWindow() *visualization.RenderWindow {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.window
}

// SetInteractorStyle sets the camera style; nil disables camera motion
func (i *Interactor) SetInteractorStyle(s Style) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.style = s
}

// InteractorStyle returns the camera style
func (i *Interactor) InteractorStyle() Style {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.style
}

// AddWidget registers w. Widgets that can draw themselves are added as
// overlays of the first renderer.
func (i *Interactor) AddWidget(w Widget) {
	i.mu.Lock()
	i.widgets = append(i.widgets, w)
	window := i.window
	i.mu.Unlock()

	if overlay, ok := w.(visualization.Overlay); ok && window != nil {
		if renderers := window.Renderers(); len(renderers) > 0 {
			renderers[0].AddOverlay(overlay)
		}
	}
}

// SetFrameSink sets the receiver of rendered frames
func (i *Interactor) SetFrameSink(sink FrameSink) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sink = sink
}

// Size returns the window size in pixels
func (i *Interactor) Size() (width, height int) {
	if w := i.RenderWindow(); w != nil {
		return w.Size()
	}
	return 0, 0
}

// SetSize resizes the window and renders
func (i *Interactor) SetSize(width, height int) {
	w := i.RenderWindow()
	if w == nil {
		return
	}
	if cw, ch := w.Size(); cw == width && ch == height {
		return
	}
	w.SetSize(width, height)
	i.Render()
}

// Initialize prepares the interactor and renders the first frame
func (i *Interactor) Initialize() error {
	if i.RenderWindow() == nil {
		return ErrNoRenderWindow
	}
	i.mu.Lock()
	i.initialized = true
	i.mu.Unlock()
	return i.Render()
}

// Start runs the event loop and returns when it ends
func (i *Interactor) Start(loop EventLoop) error {
	i.mu.Lock()
	initialized := i.initialized
	i.mu.Unlock()
	if !initialized {
		if err := i.Initialize(); err != nil {
			return err
		}
	}
	loop.Run()
	i.InvokeEvent(ExitEvent, nil)
	return nil
}

// Render draws a frame and hands it to the sink and RenderEvent observers
func (i *Interactor) Render() error {
	i.mu.Lock()
	window, sink := i.window, i.sink
	i.mu.Unlock()
	if window == nil {
		return ErrNoRenderWindow
	}

	frame, err := window.Render()
	if err != nil {
		return err
	}
	i.InvokeEvent(RenderEvent, frame)
	if sink != nil {
		sink(frame)
	}
	return nil
}

// LeftButtonPress handles a press at display position (x, y)
func (i *Interactor) LeftButtonPress(x, y float64) {
	i.dispatch(Event{ID: LeftButtonPressEvent, X: x, Y: y})
}

// LeftButtonRelease handles a release at display position (x, y)
func (i *Interactor) LeftButtonRelease(x, y float64) {
	i.dispatch(Event{ID: LeftButtonReleaseEvent, X: x, Y: y})
}

// MouseMove handles pointer motion to display position (x, y)
func (i *Interactor) MouseMove(x, y float64) {
	i.dispatch(Event{ID: MouseMoveEvent, X: x, Y: y})
}

// MouseWheelForward handles one wheel notch away from the user
func (i *Interactor) MouseWheelForward(x, y float64) {
	i.dispatch(Event{ID: MouseWheelForwardEvent, X: x, Y: y})
}

// MouseWheelBackward handles one wheel notch toward the user
func (i *Interactor) MouseWheelBackward(x, y float64) {
	i.dispatch(Event{ID: MouseWheelBackwardEvent, X: x, Y: y})
}

// dispatch offers ev to the observers, then the widgets in order, then the
// style, and renders when any of them changed something
func (i *Interactor) dispatch(ev Event) {
	i.InvokeEvent(ev.ID, ev)

	i.mu.Lock()
	widgets := append([]Widget(nil), i.widgets...)
	style := i.style
	i.mu.Unlock()

	changed := false
	for _, w := range widgets {
		if w.ProcessEvent(ev) {
			changed = true
			break
		}
	}
	if !changed && style != nil {
		changed = style.ProcessEvent(i, ev)
	}
	if changed {
		if err := i.Render(); err != nil && !errors.Is(err, ErrNoRenderWindow) {
			zap.L().Error("Failed to render", zap.Error(err))
		}
	}
}

// Motion constants of the trackball style
const (
	motionFactor           = 10.0
	mouseWheelMotionFactor = 1.0
)

// TrackballCamera rotates the camera while the left button is held and
// dollies on the wheel
type TrackballCamera struct {
	mu       sync.Mutex
	rotating bool
	lastX    float64
	lastY    float64
}

// NewTrackballCamera returns an idle trackball style
func NewTrackballCamera() *TrackballCamera {
	return &TrackballCamera{}
}

// ProcessEvent moves the camera of the first renderer
func (s *TrackballCamera) ProcessEvent(i *Interactor, ev Event) bool {
	window := i.RenderWindow()
	if window == nil {
		return false
	}
	renderers := window.Renderers()
	if len(renderers) == 0 {
		return false
	}
	cam := renderers[0].ActiveCamera()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.ID {
	case LeftButtonPressEvent:
		s.rotating = true
		s.lastX, s.lastY = ev.X, ev.Y
	case LeftButtonReleaseEvent:
		s.rotating = false
	case MouseMoveEvent:
		if !s.rotating {
			return false
		}
		width, height := window.Size()
		dx, dy := ev.X-s.lastX, ev.Y-s.lastY
		s.lastX, s.lastY = ev.X, ev.Y
		if dx == 0 && dy == 0 {
			return false
		}
		cam.Azimuth(dx * -20 / float64(width) * motionFactor)
		cam.Elevation(dy * -20 / float64(height) * motionFactor)
		cam.OrthogonalizeViewUp()
		return true
	case MouseWheelForwardEvent:
		cam.Dolly(math.Pow(1.1, motionFactor*0.2*mouseWheelMotionFactor))
		return true
	case MouseWheelBackwardEvent:
		cam.Dolly(math.Pow(1.1, -motionFactor*0.2*mouseWheelMotionFactor))
		return true
	}
	return false
}
