package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
)

func TestNestingScale(t *testing.T) {
	tests := []struct {
		name  string
		level int
		zoom  float64
		want  float64
	}{
		{"Root", 0, 1, 1},
		{"Zoomed root", 0, 2, 2},
		{"Level one", 1, 1, 0.75},
		{"Level two zoomed", 2, 2, 2 * 0.5625},
		{"Environment", -1, 1, 1 / 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NestingScale(tt.level, tt.zoom, 0.75); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("NestingScale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZoomClamp(t *testing.T) {
	p := DefaultParams()

	z := 1.0
	for range 100 {
		z = p.ZoomIn(z)
	}
	if z != MaxZoom {
		t.Errorf("zoom in saturates at %v, want %v", z, MaxZoom)
	}
	if p.ZoomIn(z) != MaxZoom {
		t.Error("zoom moved past max")
	}

	for range 100 {
		z = p.ZoomOut(z)
	}
	if z != MinZoom {
		t.Errorf("zoom out saturates at %v, want %v", z, MinZoom)
	}
}

func TestSubsystemRadius(t *testing.T) {
	if got := DefaultParams().SubsystemRadius(300); got != 75 {
		t.Errorf("SubsystemRadius = %v, want 75", got)
	}
}

func TestLeftAnchoredDefault(t *testing.T) {
	if got := LeftAnchoredDefault(75, 2); got != geom.V(-150, 0) {
		t.Errorf("LeftAnchoredDefault = %v", got)
	}
}

func TestFlowEndpointAnchor(t *testing.T) {
	iface := geom.InterfacePlacement(geom.Zero, 300, 0)
	p, d := FlowEndpointAnchor(iface, 1, 1)
	if !p.ApproxEqual(geom.V(300+InterfaceWidthHalf, 0), 1e-9) {
		t.Errorf("anchor = %v", p)
	}
	if !d.ApproxEqual(geom.V(FlowEndLength, 0), 1e-9) {
		t.Errorf("direction = %v", d)
	}
}

func TestCacheWriteWindow(t *testing.T) {
	c := NewCache(DefaultParams())

	if _, err := c.Ensure(0, 1); !errors.Is(err, ErrCacheSealed) {
		t.Fatalf("Ensure on sealed cache err = %v", err)
	}

	c.Open()
	g, err := c.Ensure(1, 1.004)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(g.Scale-0.75) > 1e-12 {
		t.Errorf("Scale = %v", g.Scale)
	}
	again, _ := c.Ensure(1, 0.998)
	if again != g {
		t.Error("same bucket should share the entry")
	}
	c.Seal()

	if _, ok := c.Get(1, 1); !ok {
		t.Error("Get after seal should still read entries")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestStrokeForZoom(t *testing.T) {
	if got := StrokeForZoom(3, 2); got != 1.5 {
		t.Errorf("StrokeForZoom = %v", got)
	}
}
