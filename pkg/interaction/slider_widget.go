package interaction

import (
	"image"
	"sync"
)

// AnimationMode decides what a press on the tube or an end cap does
type AnimationMode int

const (
	// AnimateOff consumes presses off the knob without changing the value
	AnimateOff AnimationMode = iota
	// Jump moves the knob to the pointer in one step
	Jump
	// Animate moves the knob to the pointer in a number of steps
	Animate
)

func (m AnimationMode) String() string {
	switch m {
	case Jump:
		return "jump"
	case Animate:
		return "animate"
	}
	return "off"
}

// DefaultAnimationSteps is the step count of a new widget
const DefaultAnimationSteps = 24

type widgetState int

const (
	widgetIdle widgetState = iota
	widgetSliding
	widgetAnimating
	// widgetPressed holds a tube or cap press while animation is off
	widgetPressed
)

// SliderWidget turns pointer events on a slider representation into value
// changes. Observers receive StartInteractionEvent on press,
// InteractionEvent for every value change and EndInteractionEvent on
// release, with the widget as caller.
type SliderWidget struct {
	Object

	mu sync.Mutex

	rep        *SliderRepresentation2D
	interactor *Interactor

	enabled bool
	mode    AnimationMode
	steps   int

	state  widgetState
	target float64
}

// NewSliderWidget returns a disabled widget that jumps on tube presses
func NewSliderWidget() *SliderWidget {
	w := &SliderWidget{mode: Jump, steps: DefaultAnimationSteps}
	w.SetOwner(w)
	return w
}

// SetRepresentation sets the slider geometry and value
func (w *SliderWidget) SetRepresentation(rep *SliderRepresentation2D) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rep = rep
}

// Representation returns the slider geometry and value
func (w *SliderWidget) Representation() *SliderRepresentation2D {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rep
}

// SetInteractor registers the widget with the interactor, which then
// forwards its events and draws the slider over its first renderer
func (w *SliderWidget) SetInteractor(i *Interactor) {
	w.mu.Lock()
	w.interactor = i
	w.mu.Unlock()
	if i != nil {
		i.AddWidget(w)
	}
}

// SetAnimationMode sets the tube press behavior
func (w *SliderWidget) SetAnimationMode(m AnimationMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = m
}

// SetAnimationModeToAnimate moves the knob in steps on tube presses
func (w *SliderWidget) SetAnimationModeToAnimate() {
	w.SetAnimationMode(Animate)
}

// AnimationMode returns the tube press behavior
func (w *SliderWidget) AnimationMode() AnimationMode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// SetNumberOfAnimationSteps sets how many InteractionEvents an animated
// move fires
func (w *SliderWidget) SetNumberOfAnimationSteps(n int) {
	if n < 1 {
		n = 1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps = n
}

// SetEnabled turns event processing and drawing on or off
func (w *SliderWidget) SetEnabled(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = on
	if !on {
		w.state = widgetIdle
	}
}

// EnabledOn enables the widget
func (w *SliderWidget) EnabledOn() {
	w.SetEnabled(true)
}

// Enabled reports whether the widget processes events
func (w *SliderWidget) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// Draw paints the representation when the widget is enabled
func (w *SliderWidget) Draw(dst *image.RGBA) {
	w.mu.Lock()
	rep, enabled := w.rep, w.enabled
	w.mu.Unlock()
	if enabled && rep != nil {
		rep.Draw(dst)
	}
}

// ProcessEvent handles a pointer event and reports whether it was consumed
func (w *SliderWidget) ProcessEvent(ev Event) bool {
	w.mu.Lock()
	rep, enabled, interactor := w.rep, w.enabled, w.interactor
	w.mu.Unlock()
	if !enabled || rep == nil {
		return false
	}
	if interactor != nil {
		rep.SetDisplaySize(interactor.Size())
	}

	switch ev.ID {
	case LeftButtonPressEvent:
		return w.press(rep, ev)
	case MouseMoveEvent:
		return w.move(rep, ev)
	case LeftButtonReleaseEvent:
		return w.release(rep)
	}
	return false
}

func (w *SliderWidget) press(rep *SliderRepresentation2D, ev Event) bool {
	picked := rep.Pick(ev.X, ev.Y)

	w.mu.Lock()
	switch picked {
	case Outside:
		w.mu.Unlock()
		return false
	case Slider:
		w.state = widgetSliding
	default:
		if w.mode == AnimateOff {
			w.state = widgetPressed
			break
		}
		w.state = widgetAnimating
		switch picked {
		case LeftCap:
			w.target = rep.MinimumValue()
		case RightCap:
			w.target = rep.MaximumValue()
		default:
			w.target = rep.ValueAt(ev.X, ev.Y)
		}
	}
	w.mu.Unlock()

	rep.SetHighlighted(true)
	w.InvokeEvent(StartInteractionEvent, nil)
	return true
}

func (w *SliderWidget) move(rep *SliderRepresentation2D, ev Event) bool {
	w.mu.Lock()
	sliding := w.state == widgetSliding
	w.mu.Unlock()
	if !sliding {
		return false
	}
	rep.SetValue(rep.ValueAt(ev.X, ev.Y))
	w.InvokeEvent(InteractionEvent, nil)
	return true
}

func (w *SliderWidget) release(rep *SliderRepresentation2D) bool {
	w.mu.Lock()
	state, mode, steps, target, interactor := w.state, w.mode, w.steps, w.target, w.interactor
	w.state = widgetIdle
	w.mu.Unlock()

	if state == widgetIdle {
		return false
	}
	if state == widgetAnimating {
		if mode == Jump {
			rep.SetValue(target)
			w.InvokeEvent(InteractionEvent, nil)
		} else {
			start := rep.Value()
			for i := 1; i <= steps; i++ {
				rep.SetValue(start + (target-start)*float64(i)/float64(steps))
				w.InvokeEvent(InteractionEvent, nil)
				if interactor != nil && i < steps {
					interactor.Render()
				}
			}
		}
	}

	rep.SetHighlighted(false)
	w.InvokeEvent(EndInteractionEvent, nil)
	return true
}
