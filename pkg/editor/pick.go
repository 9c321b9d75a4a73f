package editor

import (
	"math"

	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/layout"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Hit-test tolerances in world units.
const (
	terminalPickRadius = 10.0
	flowPickSlack      = 4.0
	flowPickSamples    = 32
)

// Pick returns the element drawn on top at world point p, or store.None.
// Terminals win over interfaces, interfaces over external entities, those
// over flows, and flows over systems; among systems the most deeply nested
// one containing p wins.
func Pick(sc *scene.Scene, p geom.Vec2) store.Entity {
	for _, e := range sc.Terminals() {
		if sc.WorldTransform(e).Translation.Dist(p) <= terminalPickRadius {
			return e
		}
	}
	for _, e := range sc.Interfaces() {
		local := sc.WorldTransform(e).Unapply(p)
		s := sc.Scale(e)
		if math.Abs(local.X) <= layout.InterfaceWidthHalf*s && math.Abs(local.Y) <= layout.InterfaceHeightHalf*s {
			return e
		}
	}
	for _, e := range sc.ExternalEntities() {
		local := sc.WorldTransform(e).Unapply(p)
		s := sc.Scale(e)
		if math.Abs(local.X) <= layout.ExternalEntityWidthHalf*s && math.Abs(local.Y) <= layout.ExternalEntityHeight/2*s {
			return e
		}
	}
	for _, e := range sc.Flows() {
		if onFlow(sc, e, p) {
			return e
		}
	}
	return systemAt(sc, p)
}

// FlowPath flattens the curve of flow e into n segments in world
// coordinates.
func FlowPath(sc *scene.Scene, e store.Entity, n int) []geom.Vec2 {
	f, ok := sc.Flow(e)
	if !ok {
		return nil
	}
	frame := geom.Identity()
	if f.Frame.Valid() {
		frame = sc.WorldTransform(f.Frame)
	}
	z := sc.AppliedZoom()
	pts := f.Curve.Flatten(n)
	for i, p := range pts {
		pts[i] = frame.Apply(p.Scale(z))
	}
	return pts
}

func onFlow(sc *scene.Scene, e store.Entity, p geom.Vec2) bool {
	tol := layout.FlowStrokeWidth*sc.Scale(e) + flowPickSlack
	pts := FlowPath(sc, e, flowPickSamples)
	for i := 1; i < len(pts); i++ {
		if segmentDist(p, pts[i-1], pts[i]) <= tol {
			return true
		}
	}
	return false
}

func segmentDist(p, a, b geom.Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Dist(a)
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return p.Dist(a.Add(ab.Scale(t)))
}

// systemAt returns the deepest system whose disk contains p.
func systemAt(sc *scene.Scene, p geom.Vec2) store.Entity {
	best, depth := store.None, -1
	for _, e := range sc.Systems() {
		sys, _ := sc.System(e)
		center := sc.WorldTransform(e).Translation
		if center.Dist(p) > sys.Radius*sc.AppliedZoom() {
			continue
		}
		if lvl := sc.Level(e); lvl > depth {
			best, depth = e, lvl
		}
	}
	return best
}
