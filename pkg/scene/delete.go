package scene

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Delete removes an element.
//
// Deleting a system removes its interfaces, its subsystems (recursively)
// and the sources and sinks of its environment. Flows are never removed by
// a cascade: ends that pointed at removed elements are cleared, the flow
// becomes incomplete, and flows drawn inside a removed system move to the
// nearest surviving system's frame. The System of Interest cannot be
// deleted.
func (s *Scene) Delete(e store.Entity) error {
	if err := s.st.Check(e); err != nil {
		return err
	}
	switch s.Kind(e) {
	case KindSystem:
		if e == s.root {
			return errors.New(errors.ErrCodeInvariantViolation, "the System of Interest cannot be deleted")
		}
		return s.deleteSystem(e)
	case KindInterface:
		return s.deleteInterface(e)
	case KindExternalEntity:
		s.detachFlowsFrom(map[store.Entity]bool{e: true})
		_, err := s.st.DespawnRecursive(e)
		return err
	case KindFlow:
		_, err := s.st.DespawnRecursive(e)
		return err
	case KindLabel, KindHelper, KindTerminal:
		return errors.New(errors.ErrCodeInvalidInput, "%s %s is managed by the scene and cannot be deleted", s.Kind(e), e)
	}
	return errors.New(errors.ErrCodeInternal, "entity %s has no kind", e)
}

func (s *Scene) deleteInterface(iface store.Entity) error {
	if sub, ok := s.InterfaceSubsystemOf(iface); ok && s.st.Alive(sub) {
		if err := s.deleteSystem(sub); err != nil {
			return err
		}
	}
	s.detachFlowsFrom(map[store.Entity]bool{iface: true})
	_, err := s.st.DespawnRecursive(iface)
	return err
}

func (s *Scene) deleteSystem(sys store.Entity) error {
	doomed := map[store.Entity]bool{sys: true}
	for _, e := range s.systems.Entities() {
		for p := s.parentSystem(e); p.Valid(); p = s.parentSystem(p) {
			if p == sys {
				doomed[e] = true
				break
			}
		}
	}
	ends := map[store.Entity]bool{}
	for _, e := range s.interfaces.Entities() {
		if i, _ := s.interfaces.Get(e); doomed[i.System] {
			ends[e] = true
		}
	}
	var externals []store.Entity
	for _, e := range s.externals.Entities() {
		if x, _ := s.externals.Get(e); doomed[x.System] {
			ends[e] = true
			externals = append(externals, e)
		}
	}

	survivor := s.parentSystem(sys)
	for _, e := range s.flows.Entities() {
		f, _ := s.flows.Get(e)
		if !s.withinSystems(f.Frame, doomed) {
			continue
		}
		f.Curve = s.ReframeCurve(f.Curve, f.Frame, survivor)
		f.Frame = survivor
		_ = s.flows.Insert(e, f)
		_ = s.levels.Insert(e, s.frameLevel(survivor))
		_ = s.st.SetParent(e, survivor)
	}
	s.detachFlowsFrom(ends)

	for _, x := range externals {
		if s.st.Alive(x) {
			if _, err := s.st.DespawnRecursive(x); err != nil {
				return err
			}
		}
	}
	removed, err := s.st.DespawnRecursive(sys)
	if err != nil {
		return err
	}
	s.logger.Debug("deleted system", "system", sys, "entities", len(removed))
	return nil
}

// withinSystems reports whether frame is, or lies inside, one of systems.
// Frames may be interfaces or systems.
func (s *Scene) withinSystems(frame store.Entity, systems map[store.Entity]bool) bool {
	for p := frame; p.Valid(); p = s.st.Parent(p) {
		if systems[p] {
			return true
		}
	}
	return false
}

// detachFlowsFrom clears every flow end attached to one of ends and marks
// the flow incomplete.
func (s *Scene) detachFlowsFrom(ends map[store.Entity]bool) {
	for _, e := range s.flows.Entities() {
		f, _ := s.flows.Get(e)
		changed := false
		for _, end := range []End{StartEnd, FinishEnd} {
			p := f.Endpoint(end)
			if ends[p.Interface] || ends[p.ExternalEntity] {
				f.setEndpoint(end, Endpoint{})
				changed = true
			}
		}
		if !changed {
			continue
		}
		_ = s.flows.Insert(e, f)
		_ = s.st.AddTag(e, TagIncomplete)
		s.logger.Debug("flow detached", "flow", e)
	}
}
