package layout

import (
	"math"

	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
)

// Default sizing parameters.
const (
	DefaultSOIRadius               = 300.0
	DefaultNestingShrink           = 0.75
	DefaultSubsystemRadiusFraction = 0.25
	DefaultZoomStep                = 1.1
)

// Zoom bounds.
const (
	MinZoom = 0.2
	MaxZoom = 5.0
)

// Element dimensions at scale 1.
const (
	InterfaceWidthHalf      = 12.0
	InterfaceHeightHalf     = 25.0
	ExternalEntityWidthHalf = 15.0
	ExternalEntityHeight    = 60.0
	FlowEndLength           = 50.0
	FlowHeadLength          = 14.0
	FlowHeadWidthHalf       = 7.0
	MoveRight               = 40.0
)

// Stroke widths at scale 1.
const (
	SystemStrokeWidth    = 3.0
	InterfaceStrokeWidth = 2.0
	FlowStrokeWidth      = 3.0
	HelperStrokeWidth    = 1.5
)

// Draw-order depths. Larger values are drawn on top.
const (
	SystemZ         = 0.0
	SubsystemZ      = 10.0
	ExternalEntityZ = 50.0
	FlowZ           = 80.0
	InterfaceZ      = 100.0
	LabelZ          = 200.0
	HelperZ         = 1.0
	TerminalZ       = 150.0
)

// LabelOffset is where a name label sits relative to its element.
var LabelOffset = geom.V(100, 100)

// Params are the tunable sizing parameters, normally read from config.
type Params struct {
	SOIRadius               float64
	NestingShrink           float64
	SubsystemRadiusFraction float64
	ZoomStep                float64
}

// DefaultParams returns the built-in sizing parameters.
func DefaultParams() Params {
	return Params{
		SOIRadius:               DefaultSOIRadius,
		NestingShrink:           DefaultNestingShrink,
		SubsystemRadiusFraction: DefaultSubsystemRadiusFraction,
		ZoomStep:                DefaultZoomStep,
	}
}

// NestingScale returns zoom · ratio^level.
func NestingScale(level int, zoom, ratio float64) float64 {
	return zoom * math.Pow(ratio, float64(level))
}

// Scale is [NestingScale] using p's shrink ratio.
func (p Params) Scale(level int, zoom float64) float64 {
	return NestingScale(level, zoom, p.NestingShrink)
}

// SubsystemRadius returns the radius of a subsystem of a parent with the
// given radius.
func (p Params) SubsystemRadius(parent float64) float64 {
	return parent * p.SubsystemRadiusFraction
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// ZoomIn multiplies z by p's step and clamps.
func (p Params) ZoomIn(z float64) float64 { return ClampZoom(z * p.ZoomStep) }

// ZoomOut divides z by p's step and clamps.
func (p Params) ZoomOut(z float64) float64 { return ClampZoom(z / p.ZoomStep) }

// LeftAnchoredDefault is the default position of a new subsystem inside its
// parent frame: one radius to the left of the origin, scaled by zoom.
func LeftAnchoredDefault(radius, zoom float64) geom.Vec2 {
	return geom.V(-radius*zoom, 0)
}

// FlowEndpointAnchor returns where a flow attached to an interface leaves it
// and the direction it leaves in, both in the interface's parent frame.
// The point sits on the outer edge of the interface along its local +x axis.
func FlowEndpointAnchor(iface geom.Transform, scale, zoom float64) (geom.Vec2, geom.Vec2) {
	right := iface.Right()
	point := iface.Translation.Add(right.Scale(InterfaceWidthHalf * scale))
	return point, right.Scale(FlowEndLength * zoom)
}

// StrokeForZoom returns a stroke width that stays visually constant when the
// drawing is scaled by zoom.
func StrokeForZoom(width, zoom float64) float64 {
	if zoom == 0 {
		return width
	}
	return width / zoom
}
