package cli

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

func TestCanvasCoordinates(t *testing.T) {
	c := newCanvas(80, 20)

	tests := []struct {
		x, y int
	}{
		{0, 0}, {40, 10}, {10, 5}, {79, 19},
	}
	for _, tt := range tests {
		p := c.toWorld(tt.x, tt.y)
		x, y, ok := c.toCell(p)
		if !ok || x != tt.x || y != tt.y {
			t.Errorf("toCell(toWorld(%d, %d)) = (%d, %d, %v)", tt.x, tt.y, x, y, ok)
		}
	}

	if p := c.toWorld(40, 10); p != geom.V(0, 0) {
		t.Errorf("center cell maps to %v, want the origin", p)
	}
	if p := c.toWorld(40, 9); p.Y <= 0 {
		t.Errorf("row above center maps to y = %v, want positive", p.Y)
	}
	if _, _, ok := c.toCell(geom.V(1e6, 0)); ok {
		t.Error("far point should fall outside the canvas")
	}
}

func TestNewCanvasClampsSize(t *testing.T) {
	c := newCanvas(0, -3)
	if c.width != 1 || c.height != 1 {
		t.Errorf("size = %dx%d, want 1x1", c.width, c.height)
	}
}

func TestCanvasDraw(t *testing.T) {
	sc := scene.New("Plant", scene.WithLogger(log.New(io.Discard)))
	iface, err := sc.SpawnInterface(scene.InterfaceSpec{System: sc.Root(), Angle: math.Pi / 2, Type: scene.Import})
	if err != nil {
		t.Fatal(err)
	}
	if err := sc.Select(iface, true); err != nil {
		t.Fatal(err)
	}
	sc.Update()
	if err := sc.Layout(); err != nil {
		t.Fatal(err)
	}

	c := newCanvas(80, 20)
	c.draw(sc)

	x, y, ok := c.toCell(sc.WorldTransform(iface).Translation)
	if !ok {
		t.Fatal("interface should be on the canvas")
	}
	got := c.cells[y*c.width+x]
	if got.r != 'I' {
		t.Errorf("interface cell = %q, want 'I'", got.r)
	}
	if got.p != paintSelected {
		t.Errorf("selected interface paint = %d, want paintSelected", got.p)
	}

	out := c.String()
	if !strings.Contains(out, "Plant") {
		t.Error("canvas should show the system name")
	}
	if n := strings.Count(out, "\n"); n != c.height-1 {
		t.Errorf("rows = %d, want %d", n+1, c.height)
	}
}

func TestArrowHead(t *testing.T) {
	tests := []struct {
		d    geom.Vec2
		want rune
	}{
		{geom.V(1, 0), '>'},
		{geom.V(-1, 0), '<'},
		{geom.V(0, 1), '^'},
		{geom.V(0, -1), 'v'},
		{geom.V(10, 4), '>'},
		{geom.V(1, 4), '^'},
	}
	for _, tt := range tests {
		if got := arrowHead(tt.d); got != tt.want {
			t.Errorf("arrowHead(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFlowPaint(t *testing.T) {
	tests := []struct {
		t    scene.SubstanceType
		want paint
	}{
		{scene.Matter, paintMatter},
		{scene.Energy, paintEnergy},
		{scene.Message, paintMessage},
	}
	for _, tt := range tests {
		if got := flowPaint(tt.t); got != tt.want {
			t.Errorf("flowPaint(%v) = %d, want %d", tt.t, got, tt.want)
		}
	}
}
