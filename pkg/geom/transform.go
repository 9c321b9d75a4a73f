package geom

import "math"

// Transform places an element in its parent's frame.
//
// Rotation is about the Z axis in radians. Z orders drawing: larger values
// are drawn on top. The zero value is not the identity because Scale is zero;
// use [Identity] or [At].
type Transform struct {
	Translation Vec2    `json:"translation"`
	Z           float64 `json:"z"`
	Rotation    float64 `json:"rotation"`
	Scale       Vec2    `json:"scale"`
}

// Identity returns the identity transform.
func Identity() Transform { return Transform{Scale: Vec2{1, 1}} }

// At returns a transform translated to p at depth z.
func At(p Vec2, z float64) Transform {
	return Transform{Translation: p, Z: z, Scale: Vec2{1, 1}}
}

// WithRotation returns a copy of t rotated to theta.
func (t Transform) WithRotation(theta float64) Transform {
	t.Rotation = theta
	return t
}

// Right is the local +x axis expressed in the parent frame.
func (t Transform) Right() Vec2 { return FromAngle(t.Rotation) }

// Up is the local +y axis expressed in the parent frame.
func (t Transform) Up() Vec2 { return FromAngle(t.Rotation + math.Pi/2) }

// Apply maps a point from the local frame into the parent frame.
func (t Transform) Apply(p Vec2) Vec2 {
	return p.Mul(t.Scale).Rotate(t.Rotation).Add(t.Translation)
}

// Mul composes t with a child transform, yielding the child's transform in
// t's parent frame.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.Apply(child.Translation),
		Z:           t.Z + child.Z,
		Rotation:    NormalizeAngle(t.Rotation + child.Rotation),
		Scale:       t.Scale.Mul(child.Scale),
	}
}

// Fold composes a chain of transforms ordered from the outermost ancestor to
// the element itself. An empty chain folds to the identity.
func Fold(chain ...Transform) Transform {
	out := Identity()
	for _, t := range chain {
		out = out.Mul(t)
	}
	return out
}

// UITransformFromButton turns the transform of a toolbar button into the
// world transform of the element it creates.
//
// The button position is divided by zoom to get the zoom-independent initial
// position, shifted by moveRight along the button's local +x, and scaled back
// by zoom. Rotation is preserved and the result sits at depth z.
func UITransformFromButton(button Transform, z, moveRight, zoom float64) (Transform, Vec2) {
	position := button.Translation.Scale(1 / zoom)
	position = position.Add(button.Right().Scale(moveRight))

	world := Transform{
		Translation: position.Scale(zoom),
		Z:           z,
		Rotation:    button.Rotation,
		Scale:       Vec2{1, 1},
	}
	return world, position
}

// FromPointAndDirection builds a transform at p whose +x axis points along dir.
func FromPointAndDirection(p, dir Vec2, z float64) Transform {
	return Transform{Translation: p, Z: z, Rotation: dir.Angle(), Scale: Vec2{1, 1}}
}

// Unapply maps a point from the parent frame back into t's local frame.
func (t Transform) Unapply(p Vec2) Vec2 {
	local := p.Sub(t.Translation).Rotate(-t.Rotation)
	if t.Scale.X != 0 {
		local.X /= t.Scale.X
	}
	if t.Scale.Y != 0 {
		local.Y /= t.Scale.Y
	}
	return local
}

// UnapplyDir maps a direction from the parent frame into t's local frame.
// Scale is ignored so unit vectors stay unit.
func (t Transform) UnapplyDir(d Vec2) Vec2 { return d.Rotate(-t.Rotation) }
