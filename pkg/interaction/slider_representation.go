package interaction

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CoordinateSystem tells how the end points of a slider are given
type CoordinateSystem int

const (
	// Display coordinates are pixels with the origin at the bottom left
	Display CoordinateSystem = iota
	// NormalizedDisplay coordinates are fractions of the window size
	NormalizedDisplay
)

// InteractionState is the part of the slider under the pointer
type InteractionState int

const (
	Outside InteractionState = iota
	Tube
	LeftCap
	RightCap
	Slider
)

func (s InteractionState) String() string {
	switch s {
	case Tube:
		return "Tube"
	case LeftCap:
		return "LeftCap"
	case RightCap:
		return "RightCap"
	case Slider:
		return "Slider"
	}
	return "Outside"
}

// ErrInvalidRange is returned when the minimum would exceed the maximum
var ErrInvalidRange = errors.New("slider minimum exceeds maximum")

// Geometry sizes are fractions of the slider length
const (
	defaultSliderLength = 0.05
	defaultSliderWidth  = 0.05
	defaultEndCapLength = 0.025
	defaultEndCapWidth  = 0.05
	defaultTubeWidth    = 0.025
)

// SliderRepresentation2D is the geometry and value of a slider drawn over
// the window
type SliderRepresentation2D struct {
	mu sync.Mutex

	min, max, value float64

	title       string
	labelFormat string
	showLabel   bool

	point1, point2 mgl64.Vec2
	coords         CoordinateSystem
	displayWidth   int
	displayHeight  int

	sliderLength float64
	sliderWidth  float64
	endCapLength float64
	endCapWidth  float64
	tubeWidth    float64

	tubeColor     color.RGBA
	sliderColor   color.RGBA
	selectedColor color.RGBA
	textColor     color.RGBA

	highlighted bool
}

// NewSliderRepresentation2D returns a slider over [0,1] at 0 drawn from
// (0.1,0.1) to (0.4,0.1) in normalized display coordinates
func NewSliderRepresentation2D() *SliderRepresentation2D {
	return &SliderRepresentation2D{
		min:           0,
		max:           1,
		labelFormat:   "%g",
		showLabel:     true,
		point1:        mgl64.Vec2{0.1, 0.1},
		point2:        mgl64.Vec2{0.4, 0.1},
		coords:        NormalizedDisplay,
		displayWidth:  1,
		displayHeight: 1,
		sliderLength:  defaultSliderLength,
		sliderWidth:   defaultSliderWidth,
		endCapLength:  defaultEndCapLength,
		endCapWidth:   defaultEndCapWidth,
		tubeWidth:     defaultTubeWidth,
		tubeColor:     color.RGBA{255, 255, 255, 255},
		sliderColor:   color.RGBA{51, 153, 230, 255},
		selectedColor: color.RGBA{255, 64, 64, 255},
		textColor:     color.RGBA{255, 255, 255, 255},
	}
}

// SetMinimumValue sets the lower end of the range. It fails when v is above
// the maximum; the value is clamped into the new range.
func (r *SliderRepresentation2D) SetMinimumValue(v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v > r.max {
		return fmt.Errorf("%w: %g > %g", ErrInvalidRange, v, r.max)
	}
	r.min = v
	r.value = mgl64.Clamp(r.value, r.min, r.max)
	return nil
}

// SetMaximumValue sets the upper end of the range. It fails when v is below
// the minimum; the value is clamped into the new range.
func (r *SliderRepresentation2D) SetMaximumValue(v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v < r.min {
		return fmt.Errorf("%w: %g < %g", ErrInvalidRange, r.min, v)
	}
	r.max = v
	r.value = mgl64.Clamp(r.value, r.min, r.max)
	return nil
}

// MinimumValue returns the lower end of the range
func (r *SliderRepresentation2D) MinimumValue() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.min
}

// MaximumValue returns the upper end of the range
func (r *SliderRepresentation2D) MaximumValue() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.max
}

// SetValue sets the value, clamped into the range
func (r *SliderRepresentation2D) SetValue(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = mgl64.Clamp(v, r.min, r.max)
}

// Value returns the current value
func (r *SliderRepresentation2D) Value() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// SetTitleText sets the text drawn below the tube
func (r *SliderRepresentation2D) SetTitleText(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title = s
}

// TitleText returns the title
func (r *SliderRepresentation2D) TitleText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.title
}

// SetLabelFormat sets the printf format of the value label
func (r *SliderRepresentation2D) SetLabelFormat(f string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labelFormat = f
}

// SetShowSliderLabel toggles the value label
func (r *SliderRepresentation2D) SetShowSliderLabel(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showLabel = on
}

// Label returns the value formatted for display
func (r *SliderRepresentation2D) Label() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf(r.labelFormat, r.value)
}

// SetPoint1 sets the start of the slider in the given coordinate system
func (r *SliderRepresentation2D) SetPoint1(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.point1 = mgl64.Vec2{x, y}
}

// SetPoint2 sets the end of the slider in the given coordinate system
func (r *SliderRepresentation2D) SetPoint2(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.point2 = mgl64.Vec2{x, y}
}

// SetCoordinateSystem sets how Point1 and Point2 are interpreted
func (r *SliderRepresentation2D) SetCoordinateSystem(c CoordinateSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coords = c
}

// SetDisplaySize tells the representation the window size in pixels
func (r *SliderRepresentation2D) SetDisplaySize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.displayWidth, r.displayHeight = width, height
}

// SetHighlighted shows the knob in its selected color
func (r *SliderRepresentation2D) SetHighlighted(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlighted = on
}

// geometry is the slider laid out in display coordinates
type geometry struct {
	p1, p2 mgl64.Vec2
	axis   mgl64.Vec2 // unit vector from p1 to p2
	normal mgl64.Vec2
	length float64

	// Knob travel: t = 0 puts the knob center at start, t = 1 at end
	start, end mgl64.Vec2
}

// layout converts the end points to display pixels. Callers hold r.mu.
func (r *SliderRepresentation2D) layout() geometry {
	p1, p2 := r.point1, r.point2
	if r.coords == NormalizedDisplay {
		scale := mgl64.Vec2{float64(r.displayWidth), float64(r.displayHeight)}
		p1 = mgl64.Vec2{p1[0] * scale[0], p1[1] * scale[1]}
		p2 = mgl64.Vec2{p2[0] * scale[0], p2[1] * scale[1]}
	}
	g := geometry{p1: p1, p2: p2, length: p2.Sub(p1).Len()}
	if g.length == 0 {
		g.axis = mgl64.Vec2{1, 0}
	} else {
		g.axis = p2.Sub(p1).Mul(1 / g.length)
	}
	g.normal = mgl64.Vec2{-g.axis[1], g.axis[0]}

	inset := (r.endCapLength + r.sliderLength/2) * g.length
	g.start = p1.Add(g.axis.Mul(inset))
	g.end = p2.Sub(g.axis.Mul(inset))
	return g
}

// fraction returns the knob position in [0,1] for the current value
func (r *SliderRepresentation2D) fraction() float64 {
	if r.max == r.min {
		return 0
	}
	return (r.value - r.min) / (r.max - r.min)
}

// Pick returns the part of the slider at display position (x, y)
func (r *SliderRepresentation2D) Pick(x, y float64) InteractionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.layout()
	rel := mgl64.Vec2{x, y}.Sub(g.p1)
	along := rel.Dot(g.axis)
	across := math.Abs(rel.Dot(g.normal))

	knob := g.start.Add(g.end.Sub(g.start).Mul(r.fraction()))
	knobAlong := knob.Sub(g.p1).Dot(g.axis)
	if math.Abs(along-knobAlong) <= r.sliderLength*g.length/2 && across <= r.sliderWidth*g.length/2 {
		return Slider
	}

	capLen := r.endCapLength * g.length
	if across <= r.endCapWidth*g.length/2 {
		if along >= 0 && along <= capLen {
			return LeftCap
		}
		if along >= g.length-capLen && along <= g.length {
			return RightCap
		}
	}
	if along >= 0 && along <= g.length && across <= math.Max(r.tubeWidth, r.sliderWidth)*g.length/2 {
		return Tube
	}
	return Outside
}

// ValueAt returns the value the knob would have centered at the projection
// of (x, y) onto the slider, clamped into the range
func (r *SliderRepresentation2D) ValueAt(x, y float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.layout()
	travel := g.end.Sub(g.start).Len()
	if travel == 0 {
		return r.min
	}
	t := mgl64.Vec2{x, y}.Sub(g.start).Dot(g.axis) / travel
	t = mgl64.Clamp(t, 0, 1)
	return r.min + t*(r.max-r.min)
}

// Draw paints the slider into dst, whose size is taken as the display size
func (r *SliderRepresentation2D) Draw(dst *image.RGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := dst.Bounds()
	r.displayWidth, r.displayHeight = b.Dx(), b.Dy()
	g := r.layout()
	if g.length == 0 {
		return
	}

	// Display y grows upward, image rows downward
	toImage := func(p mgl64.Vec2) mgl64.Vec2 {
		return mgl64.Vec2{p[0] + float64(b.Min.X), float64(b.Max.Y-1) - p[1]}
	}

	fillBox(dst, toImage(g.p1), toImage(g.p2), r.tubeWidth*g.length/2, r.tubeColor)

	capLen := r.endCapLength * g.length
	fillBox(dst, toImage(g.p1), toImage(g.p1.Add(g.axis.Mul(capLen))), r.endCapWidth*g.length/2, r.tubeColor)
	fillBox(dst, toImage(g.p2.Sub(g.axis.Mul(capLen))), toImage(g.p2), r.endCapWidth*g.length/2, r.tubeColor)

	knob := g.start.Add(g.end.Sub(g.start).Mul(r.fraction()))
	half := g.axis.Mul(r.sliderLength * g.length / 2)
	knobColor := r.sliderColor
	if r.highlighted {
		knobColor = r.selectedColor
	}
	fillBox(dst, toImage(knob.Sub(half)), toImage(knob.Add(half)), r.sliderWidth*g.length/2, knobColor)

	center := g.p1.Add(g.p2).Mul(0.5)
	offset := g.normal.Mul(r.sliderWidth*g.length/2 + 4)
	if r.showLabel {
		label := fmt.Sprintf(r.labelFormat, r.value)
		drawText(dst, label, toImage(knob.Add(offset)), true, r.textColor)
	}
	if strings.TrimSpace(r.title) != "" {
		drawText(dst, r.title, toImage(center.Sub(offset)), false, r.textColor)
	}
}

// fillBox fills the rectangle of half width halfWidth around the segment
// a-b, in image coordinates
func fillBox(dst *image.RGBA, a, b mgl64.Vec2, halfWidth float64, c color.RGBA) {
	seg := b.Sub(a)
	length := seg.Len()
	if length == 0 {
		return
	}
	axis := seg.Mul(1 / length)
	normal := mgl64.Vec2{-axis[1], axis[0]}

	pad := halfWidth + 1
	minX := int(math.Floor(math.Min(a[0], b[0]) - pad))
	maxX := int(math.Ceil(math.Max(a[0], b[0]) + pad))
	minY := int(math.Floor(math.Min(a[1], b[1]) - pad))
	maxY := int(math.Ceil(math.Max(a[1], b[1]) + pad))
	area := image.Rect(minX, minY, maxX+1, maxY+1).Intersect(dst.Bounds())

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			rel := mgl64.Vec2{float64(x), float64(y)}.Sub(a)
			along := rel.Dot(axis)
			if along < 0 || along > length || math.Abs(rel.Dot(normal)) > halfWidth {
				continue
			}
			dst.SetRGBA(x, y, c)
		}
	}
}

// drawText centers s horizontally at p. above places the text with its
// baseline at p, otherwise its top is at p.
func drawText(dst *image.RGBA, s string, p mgl64.Vec2, above bool, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	width := d.MeasureString(s)
	baseline := p[1]
	if !above {
		baseline += float64(face.Ascent)
	}
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(p[0]*64) - width/2,
		Y: fixed.Int26_6(baseline * 64),
	}
	d.DrawString(s)
}
