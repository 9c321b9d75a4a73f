package geom

import "math"

// InterfacePlacement returns the transform of an interface sitting on the
// circumference of a disk at angle theta. The interface's local +x axis
// points away from the center.
func InterfacePlacement(center Vec2, radius, theta float64) Transform {
	theta = NormalizeAngle(theta)
	return Transform{
		Translation: center.Add(FromAngle(theta).Scale(radius)),
		Rotation:    theta,
		Scale:       Vec2{1, 1},
	}
}

// EndAndDirectionFromSubsystem returns where a flow coming from anchor meets
// a subsystem disk, and the outward normal at that point.
func EndAndDirectionFromSubsystem(center Vec2, radius float64, anchor Vec2) (Vec2, Vec2) {
	dir := anchor.Sub(center).Normalize()
	return center.Add(dir.Scale(radius)), dir
}

// CirclePath returns n points evenly spaced on a circle, counter-clockwise
// starting at angle 0.
func CirclePath(center Vec2, radius float64, n int) []Vec2 {
	if n < 3 {
		n = 3
	}
	pts := make([]Vec2, n)
	for i := range pts {
		pts[i] = center.Add(FromAngle(2 * math.Pi * float64(i) / float64(n)).Scale(radius))
	}
	return pts
}

// RectPath returns the closed outline of an axis-aligned rectangle centered on
// the origin with the given half extents.
func RectPath(halfW, halfH float64) []Vec2 {
	return []Vec2{
		{-halfW, -halfH},
		{halfW, -halfH},
		{halfW, halfH},
		{-halfW, halfH},
	}
}

// ScalePath returns a copy of pts scaled by s around the origin.
func ScalePath(pts []Vec2, s float64) []Vec2 {
	out := make([]Vec2, len(pts))
	for i, p := range pts {
		out[i] = p.Scale(s)
	}
	return out
}
