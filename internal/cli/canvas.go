package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Jtensminger/deep-systems-analysis/pkg/editor"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

// World units covered by one terminal cell. Cells are about twice as tall
// as they are wide.
const (
	cellWidth  = 20.0
	cellHeight = 40.0
)

const flowSamples = 48

// paint indexes canvasPalette.
type paint uint8

const (
	paintNone paint = iota
	paintSystem
	paintMatter
	paintEnergy
	paintMessage
	paintInterface
	paintSource
	paintSink
	paintTerminal
	paintLabel
	paintSelected
)

var canvasPalette = [...]lipgloss.Style{
	paintNone:      lipgloss.NewStyle(),
	paintSystem:    lipgloss.NewStyle().Foreground(colorGray),
	paintMatter:    lipgloss.NewStyle().Foreground(lipgloss.Color("137")),
	paintEnergy:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	paintMessage:   lipgloss.NewStyle().Foreground(colorBlue),
	paintInterface: lipgloss.NewStyle().Bold(true).Foreground(colorCyan),
	paintSource:    lipgloss.NewStyle().Bold(true).Foreground(colorGreen),
	paintSink:      lipgloss.NewStyle().Bold(true).Foreground(colorRed),
	paintTerminal:  lipgloss.NewStyle().Foreground(colorYellow),
	paintLabel:     lipgloss.NewStyle().Foreground(colorWhite),
	paintSelected:  lipgloss.NewStyle().Reverse(true).Foreground(colorYellow),
}

type cell struct {
	r rune
	p paint
}

// canvas rasterizes a scene onto terminal cells. The world origin is the
// center of the canvas and world +y points up.
type canvas struct {
	width, height int
	cells         []cell
}

func newCanvas(width, height int) *canvas {
	width, height = max(width, 1), max(height, 1)
	c := &canvas{width: width, height: height, cells: make([]cell, width*height)}
	c.clear()
	return c
}

func (c *canvas) clear() {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
}

// toCell maps a world point to a cell.
func (c *canvas) toCell(p geom.Vec2) (int, int, bool) {
	x := int(math.Round(p.X/cellWidth)) + c.width/2
	y := c.height/2 - int(math.Round(p.Y/cellHeight))
	return x, y, x >= 0 && x < c.width && y >= 0 && y < c.height
}

// toWorld maps a cell to the world point at its center.
func (c *canvas) toWorld(x, y int) geom.Vec2 {
	return geom.V(float64(x-c.width/2)*cellWidth, float64(c.height/2-y)*cellHeight)
}

func (c *canvas) set(p geom.Vec2, r rune, pt paint) {
	if x, y, ok := c.toCell(p); ok {
		c.cells[y*c.width+x] = cell{r: r, p: pt}
	}
}

func (c *canvas) text(p geom.Vec2, s string, pt paint) {
	x, y, _ := c.toCell(p)
	x -= len([]rune(s)) / 2
	if y < 0 || y >= c.height {
		return
	}
	for i, r := range []rune(s) {
		if cx := x + i; cx >= 0 && cx < c.width {
			c.cells[y*c.width+cx] = cell{r: r, p: pt}
		}
	}
}

// draw paints sc back to front: system outlines, flows, external entities,
// interfaces, terminals, then labels.
func (c *canvas) draw(sc *scene.Scene) {
	c.clear()
	z := sc.AppliedZoom()

	for _, e := range sc.Systems() {
		sys, _ := sc.System(e)
		center := sc.WorldTransform(e).Translation
		r := sys.Radius * z
		n := max(16, int(2*math.Pi*r/cellWidth))
		for i := range n {
			theta := 2 * math.Pi * float64(i) / float64(n)
			c.set(center.Add(geom.FromAngle(theta).Scale(r)), '·', paintSystem)
		}
	}

	for _, e := range sc.Flows() {
		f, _ := sc.Flow(e)
		pt := flowPaint(f.SubstanceType)
		if sc.Selected(e) {
			pt = paintSelected
		}
		pts := editor.FlowPath(sc, e, flowSamples)
		for _, p := range pts {
			c.set(p, '~', pt)
		}
		if n := len(pts); n > 1 {
			c.set(pts[n-1], arrowHead(pts[n-1].Sub(pts[n-2])), pt)
		}
	}

	for _, e := range sc.ExternalEntities() {
		ext, _ := sc.ExternalEntity(e)
		r, pt := 'S', paintSource
		if ext.Type == scene.Sink {
			r, pt = 'K', paintSink
		}
		if sc.Selected(e) {
			pt = paintSelected
		}
		c.set(sc.WorldTransform(e).Translation, r, pt)
	}

	for _, e := range sc.Interfaces() {
		iface, _ := sc.Interface(e)
		r := 'H'
		switch iface.Type {
		case scene.Import:
			r = 'I'
		case scene.Export:
			r = 'E'
		}
		pt := paintInterface
		if sc.Selected(e) {
			pt = paintSelected
		}
		c.set(sc.WorldTransform(e).Translation, r, pt)
	}

	for _, e := range sc.Terminals() {
		c.set(sc.WorldTransform(e).Translation, 'o', paintTerminal)
	}

	for _, e := range sc.Labels() {
		l, _ := sc.Label(e)
		c.text(sc.WorldTransform(e).Translation, l.Text, paintLabel)
	}
	if info := sc.Info(sc.Root()); info.Name != "" {
		c.text(sc.WorldTransform(sc.Root()).Translation, info.Name, paintLabel)
	}
}

func flowPaint(t scene.SubstanceType) paint {
	switch t {
	case scene.Energy:
		return paintEnergy
	case scene.Message:
		return paintMessage
	}
	return paintMatter
}

// arrowHead picks the glyph pointing along d.
func arrowHead(d geom.Vec2) rune {
	if math.Abs(d.X)*cellHeight >= math.Abs(d.Y)*cellWidth {
		if d.X >= 0 {
			return '>'
		}
		return '<'
	}
	if d.Y >= 0 {
		return '^'
	}
	return 'v'
}

// String renders the canvas, styling runs of equally painted cells
// together.
func (c *canvas) String() string {
	var b strings.Builder
	var run strings.Builder
	for y := range c.height {
		row := c.cells[y*c.width : (y+1)*c.width]
		cur := row[0].p
		for _, cl := range row {
			if cl.p != cur {
				b.WriteString(canvasPalette[cur].Render(run.String()))
				run.Reset()
				cur = cl.p
			}
			run.WriteRune(cl.r)
		}
		b.WriteString(canvasPalette[cur].Render(run.String()))
		run.Reset()
		if y < c.height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
