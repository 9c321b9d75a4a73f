package document

import (
	"math"
	"slices"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
)

// Validate checks the schema of a decoded document: kinds of every Id,
// value ranges, enum values and Id uniqueness. It does not resolve
// references; see [References].
func Validate(wm *WorldModel) error {
	v := validator{seen: map[string]bool{}}
	soi := &wm.SystemOfInterest
	if !soi.Info.Id.Equal(NewId(KindSystem, 0)) {
		return v.fail("system of interest must have id System[0], got %s", soi.Info.Id)
	}
	if soi.Parent != nil {
		return v.fail("system of interest must not have a parent")
	}
	if soi.Info.Level != 0 {
		return v.fail("system of interest must be at level 0, got %d", soi.Info.Level)
	}
	return v.system(soi)
}

type validator struct {
	seen map[string]bool
}

func (v *validator) fail(format string, args ...any) error {
	return errors.New(errors.ErrCodeDocumentParse, format, args...)
}

func (v *validator) info(info Info, kind IdKind) error {
	if info.Id.Ty != kind {
		return v.fail("expected %s id, got %s", kind, info.Id)
	}
	if len(info.Id.Indices) == 0 {
		return v.fail("%s id has no indices", kind)
	}
	key := info.Id.Key()
	if v.seen[key] {
		return v.fail("duplicate id %s", info.Id)
	}
	v.seen[key] = true
	return nil
}

func (v *validator) system(s *System) error {
	if err := v.info(s.Info, KindSystem); err != nil {
		return err
	}
	switch s.Complexity.Kind {
	case Atomic, Complex, Multiset:
	default:
		return v.fail("%s has unknown complexity %q", s.Info.Id, s.Complexity.Kind)
	}
	if err := v.info(s.Environment.Info, KindEnvironment); err != nil {
		return err
	}
	if err := v.info(s.Boundary.Info, KindBoundary); err != nil {
		return err
	}
	if p := s.Boundary.Porosity; p < 0 || p > 1 || math.IsNaN(p) {
		return v.fail("%s porosity %v out of [0, 1]", s.Boundary.Info.Id, p)
	}
	if p := s.Boundary.PerceptiveFuzziness; p < 0 || p > 1 || math.IsNaN(p) {
		return v.fail("%s perceptive fuzziness %v out of [0, 1]", s.Boundary.Info.Id, p)
	}
	for _, i := range s.Boundary.Interfaces {
		if err := v.info(i.Info, KindInterface); err != nil {
			return err
		}
		switch i.Ty {
		case Import, Export, Hybrid:
		default:
			return v.fail("%s has unknown type %q", i.Info.Id, i.Ty)
		}
		if i.Angle != nil && (math.IsNaN(*i.Angle) || math.IsInf(*i.Angle, 0)) {
			return v.fail("%s angle is not finite", i.Info.Id)
		}
	}
	for _, e := range s.Environment.Sources {
		if err := v.external(e, KindSource, Source); err != nil {
			return err
		}
	}
	for _, e := range s.Environment.Sinks {
		if err := v.external(e, KindSink, Sink); err != nil {
			return err
		}
	}
	for _, list := range [][]Interaction{s.ExternalInteractions, s.InternalInteractions} {
		for _, in := range list {
			if err := v.interaction(in); err != nil {
				return err
			}
		}
	}
	for i := range s.Components {
		c := &s.Components[i]
		if c.Parent == nil {
			return v.fail("component %s has no parent", c.Info.Id)
		}
		switch c.Parent.Ty {
		case KindSystem:
			if !c.Parent.Equal(s.Info.Id) {
				return v.fail("component %s names parent %s inside %s", c.Info.Id, c.Parent, s.Info.Id)
			}
		case KindInterface:
		default:
			return v.fail("component %s has parent of kind %s", c.Info.Id, c.Parent.Ty)
		}
		if c.Info.Level != s.Info.Level+1 {
			return v.fail("component %s at level %d inside level %d", c.Info.Id, c.Info.Level, s.Info.Level)
		}
		if err := v.system(c); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) external(e ExternalEntity, kind IdKind, ty ExternalType) error {
	if err := v.info(e.Info, kind); err != nil {
		return err
	}
	if e.Ty != ty {
		return v.fail("%s has type %q, want %q", e.Info.Id, e.Ty, ty)
	}
	return nil
}

func (v *validator) interaction(in Interaction) error {
	if err := v.info(in.Info, KindFlow); err != nil {
		return err
	}
	switch in.Substance.Ty {
	case Matter, Energy, Message:
	default:
		return v.fail("%s has unknown substance %q", in.Info.Id, in.Substance.Ty)
	}
	if !in.Ty.Usability.Valid() {
		return v.fail("%s has unknown usability %q", in.Info.Id, in.Ty.Usability)
	}
	if in.Amount != nil && (*in.Amount < 0 || math.IsNaN(*in.Amount)) {
		return v.fail("%s amount must be non-negative", in.Info.Id)
	}
	return nil
}

// IDs returns the kind of every Id defined in the document, keyed by
// [Id.Key].
func IDs(wm *WorldModel) map[string]IdKind {
	out := map[string]IdKind{}
	wm.Walk(func(s *System, _ int) {
		for _, info := range []Info{s.Info, s.Boundary.Info, s.Environment.Info} {
			out[info.Id.Key()] = info.Id.Ty
		}
		for _, i := range s.Boundary.Interfaces {
			out[i.Info.Id.Key()] = KindInterface
		}
		for _, e := range s.Environment.Sources {
			out[e.Info.Id.Key()] = KindSource
		}
		for _, e := range s.Environment.Sinks {
			out[e.Info.Id.Key()] = KindSink
		}
		for _, in := range s.ExternalInteractions {
			out[in.Info.Id.Key()] = KindFlow
		}
		for _, in := range s.InternalInteractions {
			out[in.Info.Id.Key()] = KindFlow
		}
	})
	return out
}

// References returns one [errors.ReferenceError] per Id that is used but
// not defined in the document, in document order.
func References(wm *WorldModel) []error {
	ids := IDs(wm)
	var out []error
	check := func(record string, id Id) {
		if _, ok := ids[id.Key()]; !ok {
			out = append(out, &errors.ReferenceError{Record: record, Id: id.String()})
		}
	}
	wm.Walk(func(s *System, _ int) {
		if s.Parent != nil && s.Parent.Ty == KindInterface {
			check("component "+s.Info.Id.String(), *s.Parent)
		}
		for _, i := range s.Boundary.Interfaces {
			for _, id := range i.ReceivesFrom {
				check("interface "+i.Info.Id.String(), id)
			}
			for _, id := range i.ExportsTo {
				check("interface "+i.Info.Id.String(), id)
			}
		}
		for _, e := range slices.Concat(s.Environment.Sources, s.Environment.Sinks) {
			for _, id := range e.Interactions {
				check("external entity "+e.Info.Id.String(), id)
			}
		}
		for _, in := range slices.Concat(s.ExternalInteractions, s.InternalInteractions) {
			check("interaction "+in.Info.Id.String(), in.ExternalEntity)
			if in.Interface != nil {
				check("interaction "+in.Info.Id.String(), *in.Interface)
			}
		}
	})
	return out
}

// Walk visits every system depth first, parents before components.
func (wm *WorldModel) Walk(fn func(s *System, depth int)) {
	var walk func(*System, int)
	walk = func(s *System, depth int) {
		fn(s, depth)
		for i := range s.Components {
			walk(&s.Components[i], depth+1)
		}
	}
	walk(&wm.SystemOfInterest, 0)
}

// Normalize sorts every child array by Id so that documents describing the
// same scene compare equal.
func Normalize(wm *WorldModel) {
	byId := func(a, b Id) int { return a.Compare(b) }
	wm.Walk(func(s *System, _ int) {
		slices.SortStableFunc(s.Boundary.Interfaces, func(a, b Interface) int { return byId(a.Info.Id, b.Info.Id) })
		for i := range s.Boundary.Interfaces {
			slices.SortStableFunc(s.Boundary.Interfaces[i].ReceivesFrom, byId)
			slices.SortStableFunc(s.Boundary.Interfaces[i].ExportsTo, byId)
		}
		for _, list := range [][]ExternalEntity{s.Environment.Sources, s.Environment.Sinks} {
			slices.SortStableFunc(list, func(a, b ExternalEntity) int { return byId(a.Info.Id, b.Info.Id) })
			for i := range list {
				slices.SortStableFunc(list[i].Interactions, byId)
			}
		}
		for _, list := range [][]Interaction{s.ExternalInteractions, s.InternalInteractions} {
			slices.SortStableFunc(list, func(a, b Interaction) int { return byId(a.Info.Id, b.Info.Id) })
		}
		slices.SortStableFunc(s.Components, func(a, b System) int { return byId(a.Info.Id, b.Info.Id) })
	})
}

// Stats counts the records of a document.
type Stats struct {
	Systems      int
	Interfaces   int
	Sources      int
	Sinks        int
	Interactions int
	MaxDepth     int
}

// Count returns the record counts of wm.
func Count(wm *WorldModel) Stats {
	var st Stats
	wm.Walk(func(s *System, depth int) {
		st.Systems++
		st.Interfaces += len(s.Boundary.Interfaces)
		st.Sources += len(s.Environment.Sources)
		st.Sinks += len(s.Environment.Sinks)
		st.Interactions += len(s.ExternalInteractions) + len(s.InternalInteractions)
		st.MaxDepth = max(st.MaxDepth, depth)
	})
	return st
}
