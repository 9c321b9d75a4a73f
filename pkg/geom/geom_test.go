package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"Zero", 0, 0},
		{"InRange", 1.5, 1.5},
		{"Pi", math.Pi, math.Pi},
		{"ThreeHalvesPi", 3 * math.Pi / 2, -math.Pi / 2},
		{"NegativeWrap", -3 * math.Pi / 2, math.Pi / 2},
		{"FullTurn", 2 * math.Pi, 0},
		{"ManyTurns", 7*math.Pi + 0.25, -math.Pi + 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAngle(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got < -math.Pi || got > math.Pi {
				t.Errorf("NormalizeAngle(%v) = %v out of range", tt.in, got)
			}
		})
	}
}

func TestVec2Normalize(t *testing.T) {
	if got := V(3, 4).Normalize(); !got.ApproxEqual(V(0.6, 0.8), eps) {
		t.Errorf("Normalize = %v", got)
	}
	if got := Zero.Normalize(); got != V(1, 0) {
		t.Errorf("zero Normalize = %v, want +x", got)
	}
}

func TestTransformMul(t *testing.T) {
	parent := Transform{Translation: V(10, 0), Z: 1, Rotation: math.Pi / 2, Scale: V(2, 2)}
	child := Transform{Translation: V(5, 0), Z: 2, Rotation: math.Pi / 2, Scale: V(1, 1)}

	got := parent.Mul(child)
	if !got.Translation.ApproxEqual(V(10, 10), eps) {
		t.Errorf("translation = %v, want (10,10)", got.Translation)
	}
	if got.Z != 3 {
		t.Errorf("z = %v, want 3", got.Z)
	}
	if math.Abs(got.Rotation-math.Pi) > eps {
		t.Errorf("rotation = %v, want π", got.Rotation)
	}
	if got.Scale != V(2, 2) {
		t.Errorf("scale = %v", got.Scale)
	}
}

func TestFold(t *testing.T) {
	if got := Fold(); got != Identity() {
		t.Errorf("empty Fold = %v", got)
	}

	a := At(V(100, 0), 0)
	b := At(V(0, 50), 10)
	c := At(V(1, 1), 100)
	got := Fold(a, b, c)
	if !got.Translation.ApproxEqual(V(101, 51), eps) || got.Z != 110 {
		t.Errorf("Fold = %+v", got)
	}
}

func TestUITransformFromButton(t *testing.T) {
	button := Transform{Translation: V(200, 0), Rotation: 0, Scale: V(1, 1)}

	world, initial := UITransformFromButton(button, 100, 10, 2)
	if !initial.ApproxEqual(V(110, 0), eps) {
		t.Errorf("initial = %v, want (110,0)", initial)
	}
	if !world.Translation.ApproxEqual(V(220, 0), eps) {
		t.Errorf("world = %v, want (220,0)", world.Translation)
	}
	if world.Z != 100 {
		t.Errorf("z = %v", world.Z)
	}

	rotated := button.WithRotation(math.Pi / 2)
	_, initial = UITransformFromButton(rotated, 0, 10, 1)
	if !initial.ApproxEqual(V(200, 10), eps) {
		t.Errorf("rotated initial = %v, want (200,10)", initial)
	}
}

func TestTangentLength(t *testing.T) {
	if got := TangentLength(V(0, 0), V(300, 0)); math.Abs(got-100) > eps {
		t.Errorf("TangentLength = %v, want 100", got)
	}
	if got := TangentLength(V(1, 1), V(1, 1)); got != 0 {
		t.Errorf("degenerate TangentLength = %v", got)
	}
}

func TestFlowCurves(t *testing.T) {
	in := InflowCurve(1, V(100, 0), V(1, 0), 1)
	if !in.End.ApproxEqual(V(100, 0), eps) || !in.Start.ApproxEqual(V(300, 0), eps) {
		t.Errorf("inflow = %+v", in)
	}
	if math.Abs(in.HeadRotation()) > eps {
		t.Errorf("inflow head = %v", in.HeadRotation())
	}

	out := OutflowCurve(2, V(100, 0), V(1, 0), 0.5)
	if !out.Start.ApproxEqual(V(200, 0), eps) || !out.End.ApproxEqual(V(400, 0), eps) {
		t.Errorf("outflow = %+v", out)
	}
	if math.Abs(math.Abs(out.HeadRotation())-math.Pi) > eps {
		t.Errorf("outflow head = %v, want ±π", out.HeadRotation())
	}
}

func TestFlowCurveEval(t *testing.T) {
	c := FlowCurve{Start: V(0, 0), StartDirection: V(1, 0), End: V(300, 0), EndDirection: V(-1, 0)}
	if got := c.Eval(0); !got.ApproxEqual(c.Start, eps) {
		t.Errorf("Eval(0) = %v", got)
	}
	if got := c.Eval(1); !got.ApproxEqual(c.End, eps) {
		t.Errorf("Eval(1) = %v", got)
	}
	if got := c.Eval(0.5); !got.ApproxEqual(V(150, 0), eps) {
		t.Errorf("Eval(0.5) = %v", got)
	}
	if pts := c.Flatten(8); len(pts) != 9 {
		t.Errorf("Flatten len = %d", len(pts))
	}
}

func TestInterfacePlacement(t *testing.T) {
	tr := InterfacePlacement(V(0, 0), 300, math.Pi/2)
	if !tr.Translation.ApproxEqual(V(0, 300), 1e-6) {
		t.Errorf("translation = %v", tr.Translation)
	}
	if !tr.Right().ApproxEqual(V(0, 1), 1e-9) {
		t.Errorf("right = %v, want outward normal", tr.Right())
	}
}

func TestEndAndDirectionFromSubsystem(t *testing.T) {
	p, n := EndAndDirectionFromSubsystem(V(10, 10), 5, V(10, 100))
	if !p.ApproxEqual(V(10, 15), eps) || !n.ApproxEqual(V(0, 1), eps) {
		t.Errorf("got %v %v", p, n)
	}
}

func TestTransformUnapply(t *testing.T) {
	tr := Transform{Translation: V(10, 5), Rotation: math.Pi / 3, Scale: V(2, 2)}
	p := V(3, -7)
	if got := tr.Unapply(tr.Apply(p)); !got.ApproxEqual(p, 1e-9) {
		t.Errorf("Unapply(Apply(p)) = %v, want %v", got, p)
	}
	if got := tr.UnapplyDir(FromAngle(math.Pi / 3)); !got.ApproxEqual(V(1, 0), 1e-9) {
		t.Errorf("UnapplyDir = %v", got)
	}
}
