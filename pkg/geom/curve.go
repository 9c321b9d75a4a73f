package geom

// FlowLength is the unscaled length of a freshly spawned flow.
const FlowLength = 200.0

// FlowCurve is the cubic Bézier drawn for a flow.
//
// StartDirection and EndDirection are unit tangents pointing from each end
// toward its control point.
type FlowCurve struct {
	Start          Vec2 `json:"start"`
	StartDirection Vec2 `json:"start_direction"`
	End            Vec2 `json:"end"`
	EndDirection   Vec2 `json:"end_direction"`
}

// TangentLength is the Bézier handle magnitude for a taut S-curve between p0
// and p1: one third of the chord.
func TangentLength(p0, p1 Vec2) float64 {
	return p1.Sub(p0).Len() / 3
}

// InflowCurve lays out a flow ending at initial (scaled by zoom) and arriving
// along direction from FlowLength·scale away.
func InflowCurve(zoom float64, initial, direction Vec2, scale float64) FlowCurve {
	return FlowCurve{
		Start:          initial.Add(direction.Scale(FlowLength * scale)).Scale(zoom),
		StartDirection: direction.Neg(),
		End:            initial.Scale(zoom),
		EndDirection:   direction,
	}
}

// OutflowCurve mirrors [InflowCurve]: the flow leaves initial along direction.
func OutflowCurve(zoom float64, initial, direction Vec2, scale float64) FlowCurve {
	return FlowCurve{
		Start:          initial.Scale(zoom),
		StartDirection: direction,
		End:            initial.Add(direction.Scale(FlowLength * scale)).Scale(zoom),
		EndDirection:   direction.Neg(),
	}
}

// TangentLength returns the handle magnitude for this curve.
func (c FlowCurve) TangentLength() float64 { return TangentLength(c.Start, c.End) }

// HeadRotation is the rotation of the arrow head drawn at End.
func (c FlowCurve) HeadRotation() float64 { return c.EndDirection.Angle() }

// ControlPoints returns the four Bézier control points.
func (c FlowCurve) ControlPoints() [4]Vec2 {
	l := c.TangentLength()
	return [4]Vec2{
		c.Start,
		c.Start.Add(c.StartDirection.Scale(l)),
		c.End.Add(c.EndDirection.Scale(l)),
		c.End,
	}
}

// Eval evaluates the curve at t in [0, 1].
func (c FlowCurve) Eval(t float64) Vec2 {
	p := c.ControlPoints()
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	d := 3 * u * t * t
	e := t * t * t
	return Vec2{
		X: a*p[0].X + b*p[1].X + d*p[2].X + e*p[3].X,
		Y: a*p[0].Y + b*p[1].Y + d*p[2].Y + e*p[3].Y,
	}
}

// Flatten samples the curve into n+1 points including both ends.
func (c FlowCurve) Flatten(n int) []Vec2 {
	if n < 1 {
		n = 1
	}
	pts := make([]Vec2, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = c.Eval(float64(i) / float64(n))
	}
	return pts
}

// Translate returns the curve shifted by d.
func (c FlowCurve) Translate(d Vec2) FlowCurve {
	c.Start = c.Start.Add(d)
	c.End = c.End.Add(d)
	return c
}
