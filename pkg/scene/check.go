package scene

import (
	stderrors "errors"
	"math"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/layout"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// positionTolerance bounds the interface placement check.
const positionTolerance = 1e-4

// Check verifies the structural properties every valid scene satisfies and
// returns all violations joined, or nil. Call it after [Scene.Update]; the
// engine is what restores derived state after edits.
func (s *Scene) Check() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, errors.New(errors.ErrCodeInvariantViolation, format, args...))
	}

	// Exactly one root, at level 0.
	var roots []store.Entity
	s.systems.Each(func(e store.Entity, v System) {
		if v.IsRoot() {
			roots = append(roots, e)
		}
	})
	if len(roots) != 1 {
		fail("scene has %d root systems, want 1", len(roots))
	} else if roots[0] != s.root || s.Level(s.root) != 0 {
		fail("root %s is not the System of Interest at level 0", roots[0])
	}

	// Interfaces sit on their system's circumference.
	s.interfaces.Each(func(e store.Entity, i Interface) {
		sys, ok := s.systems.Get(i.System)
		if !ok || !s.st.Alive(i.System) {
			fail("interface %s has no parent system", e)
			return
		}
		if s.st.Parent(e) != i.System {
			fail("interface %s is not a child of its system %s", e, i.System)
		}
		if i.Angle < -math.Pi || i.Angle > math.Pi {
			fail("interface %s angle %v out of range", e, i.Angle)
		}
		want := s.WorldTransform(i.System).Apply(geom.FromAngle(i.Angle).Scale(sys.Radius * s.appliedZoom))
		if got := s.WorldTransform(e).Translation; !got.ApproxEqual(want, positionTolerance) {
			fail("interface %s at %v, want %v", e, got, want)
		}
	})

	// Flows are complete or explicitly incomplete.
	s.flows.Each(func(e store.Entity, f Flow) {
		incomplete := s.Incomplete(e)
		if !f.Complete() && !incomplete {
			fail("flow %s has a free end but is not marked incomplete", e)
		}
		if f.Complete() && incomplete {
			fail("flow %s is complete but marked incomplete", e)
		}
		for _, end := range []End{StartEnd, FinishEnd} {
			p := f.Endpoint(end)
			if p.Interface.Valid() && !s.st.Alive(p.Interface) {
				fail("flow %s %s references dead interface %s", e, end, p.Interface)
			}
			if p.ExternalEntity.Valid() && !s.st.Alive(p.ExternalEntity) {
				fail("flow %s %s references dead external entity %s", e, end, p.ExternalEntity)
			}
		}
	})

	// Interface subsystems carry the sum of their interface's traffic.
	s.systems.Each(func(e store.Entity, v System) {
		if !v.IsInterfaceSubsystem() {
			return
		}
		agg, _ := s.aggregates.Get(e)
		var in, out float64
		s.flows.Each(func(_ store.Entity, f Flow) {
			if f.Sink.Interface == v.Interface {
				in += f.Amount
			}
			if f.Source.Interface == v.Interface {
				out += f.Amount
			}
		})
		if math.Abs(agg.TotalInflow-in) > 1e-9 || math.Abs(agg.TotalOutflow-out) > 1e-9 {
			fail("interface subsystem %s totals (%v, %v), want (%v, %v)", e, agg.TotalInflow, agg.TotalOutflow, in, out)
		}
		if v.ChildOfInterface {
			if s.WorldTransform(e).Z >= s.WorldTransform(v.Interface).Z {
				fail("interface subsystem %s is not drawn below interface %s", e, v.Interface)
			}
		}
	})

	// Subsystems nest one level down at a fixed fraction of the radius.
	s.systems.Each(func(e store.Entity, v System) {
		if v.IsRoot() {
			return
		}
		parent, ok := s.systems.Get(v.Parent)
		if !ok {
			fail("subsystem %s has dead parent %s", e, v.Parent)
			return
		}
		if s.Level(e) != s.Level(v.Parent)+1 {
			fail("subsystem %s at level %d, parent at %d", e, s.Level(e), s.Level(v.Parent))
		}
		if want := parent.Radius * s.params.SubsystemRadiusFraction; math.Abs(v.Radius-want) > 1e-9 {
			fail("subsystem %s radius %v, want %v", e, v.Radius, want)
		}
	})

	if z := s.zoom; z < layout.MinZoom || z > layout.MaxZoom {
		fail("zoom %v outside [%v, %v]", z, layout.MinZoom, layout.MaxZoom)
	}
	return stderrors.Join(errs...)
}
