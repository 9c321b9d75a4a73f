package scene

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/layout"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Layout recomputes derived geometry from the post-invariants state: it
// fills the geometry cache for every nesting level in use, re-anchors the
// attached ends of every flow, and moves terminal markers and flow helpers
// along. The geometry cache is writable only for the duration of this call.
func (s *Scene) Layout() error {
	s.cache.Open()
	defer s.cache.Seal()

	levels := map[int]bool{}
	for _, e := range s.st.Entities() {
		levels[s.Level(e)] = true
	}
	for lvl := range levels {
		if _, err := s.cache.Ensure(lvl, s.appliedZoom); err != nil {
			return err
		}
	}

	for _, e := range s.flows.Entities() {
		if !s.refreshCurve(e) {
			continue
		}
		f, _ := s.flows.Get(e)
		for _, c := range s.st.Children(e) {
			if t, ok := s.terminals.Get(c); ok {
				s.movePlaced(c, terminalPosition(f.Curve, t.End))
			}
			if _, ok := s.helpers.Get(c); ok {
				s.syncHelper(c)
			}
		}
	}
	return nil
}

// refreshCurve re-anchors the attached ends of flow e. It reports whether
// the curve changed.
func (s *Scene) refreshCurve(e store.Entity) bool {
	f, ok := s.flows.Get(e)
	if !ok {
		return false
	}
	c := f.Curve
	if p, d, ok := s.anchor(f.Source, f.Frame); ok {
		c.Start, c.StartDirection = p, d
	}
	if p, d, ok := s.anchor(f.Sink, f.Frame); ok {
		c.End, c.EndDirection = p, d
	}
	if c == f.Curve {
		return false
	}
	f.Curve = c
	wrote, _ := s.flows.Set(e, f)
	return wrote
}

// anchor returns where a flow end attaches and the direction the curve
// leaves it in, both zoom independent and in frame's coordinates.
func (s *Scene) anchor(p Endpoint, frame store.Entity) (geom.Vec2, geom.Vec2, bool) {
	var point, dir geom.Vec2
	switch {
	case p.Interface.Valid() && s.st.Alive(p.Interface):
		world := s.WorldTransform(p.Interface)
		pt, d := layout.FlowEndpointAnchor(world, s.Scale(p.Interface), s.appliedZoom)
		point, dir = pt, d.Normalize()
	case p.ExternalEntity.Valid() && s.st.Alive(p.ExternalEntity):
		world := s.WorldTransform(p.ExternalEntity)
		right := world.Right()
		point = world.Translation.Add(right.Scale(layout.ExternalEntityWidthHalf * s.Scale(p.ExternalEntity)))
		dir = right
	default:
		return geom.Vec2{}, geom.Vec2{}, false
	}
	fw := s.frameWorld(frame)
	return fw.Unapply(point).Scale(1 / s.appliedZoom), fw.UnapplyDir(dir), true
}
