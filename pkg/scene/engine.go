package scene

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/layout"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// rule is one pass of the invariants engine. since is the cursor of the
// previous engine run.
type rule struct {
	name string
	run  func(since store.Cursor) error
}

func (s *Scene) rules() []rule {
	return []rule{
		{"labels", s.ruleLabels},
		{"flow completion", s.ruleFlowCompletion},
		{"aggregation", s.ruleAggregation},
		{"zoom", s.ruleZoom},
		{"selection", s.ruleSelection},
	}
}

// Update runs the invariants engine once. Rules run in a fixed order and
// each sees everything added since the previous run, including writes made
// by earlier rules in this run. A failing rule is logged and the rest still
// run; the next Update retries it.
//
// Running Update twice without edits in between leaves the store untouched.
func (s *Scene) Update() {
	since := s.seen
	for _, r := range s.rules() {
		if err := r.run(since); err != nil {
			s.logger.Warn("invariants rule failed", "rule", r.name, "err", err)
		}
	}
	s.seen = s.st.Now()
}

// =============================================================================
// Rule 1: name labels
// =============================================================================

func (s *Scene) ruleLabels(since store.Cursor) error {
	dirty := map[store.Entity]bool{}
	for _, e := range s.systems.Added(since) {
		dirty[e] = true
	}
	for _, e := range s.infos.Changed(since) {
		if s.isKind(e, KindSystem) {
			dirty[e] = true
		}
	}
	for _, e := range s.systems.Entities() {
		if !dirty[e] || e == s.root {
			continue
		}
		text := s.Info(e).Name
		if l, ok := s.labelOf(e); ok {
			if _, err := s.labels.Set(l, Label{Target: e, Text: text}); err != nil {
				return err
			}
			continue
		}
		l := s.st.Spawn()
		_ = s.kinds.Insert(l, KindLabel)
		_ = s.levels.Insert(l, s.Level(e))
		_ = s.labels.Insert(l, Label{Target: e, Text: text})
		if err := s.st.SetParent(l, e); err != nil {
			return err
		}
		s.place(l, layout.LabelOffset, layout.LabelZ, 0)
	}
	return nil
}

func (s *Scene) labelOf(target store.Entity) (store.Entity, bool) {
	for _, c := range s.st.Children(target) {
		if l, ok := s.labels.Get(c); ok && l.Target == target {
			return c, true
		}
	}
	return store.None, false
}

// =============================================================================
// Rule 2: flow completion
// =============================================================================

func (s *Scene) ruleFlowCompletion(since store.Cursor) error {
	candidates := s.flows.Changed(since)
	if len(s.st.DespawnedSince(since)) > 0 {
		candidates = s.flows.Entities()
	}
	for _, e := range candidates {
		if !s.st.Alive(e) {
			continue
		}
		s.sanitize(e)
		f, _ := s.flows.Get(e)
		if f.Complete() {
			s.st.RemoveTag(e, TagIncomplete)
		} else if err := s.st.AddTag(e, TagIncomplete); err != nil {
			return err
		}
		if err := s.syncTerminals(e, f); err != nil {
			return err
		}
	}
	return nil
}

// sanitize clears flow ends that point at despawned elements.
func (s *Scene) sanitize(e store.Entity) {
	f, ok := s.flows.Get(e)
	if !ok {
		return
	}
	clean := func(p Endpoint) Endpoint {
		if p.Interface.Valid() && !s.st.Alive(p.Interface) {
			return Endpoint{}
		}
		if p.ExternalEntity.Valid() && !s.st.Alive(p.ExternalEntity) {
			return Endpoint{}
		}
		return p
	}
	f.Source, f.Sink = clean(f.Source), clean(f.Sink)
	if f.Frame.Valid() && !s.st.Alive(f.Frame) {
		f.Frame = store.None
		_ = s.st.SetParent(e, store.None)
	}
	_, _ = s.flows.Set(e, f)
}

// syncTerminals keeps one terminal marker per unattached end of f.
func (s *Scene) syncTerminals(e store.Entity, f Flow) error {
	have := map[End]store.Entity{}
	for _, c := range s.st.Children(e) {
		if t, ok := s.terminals.Get(c); ok {
			have[t.End] = c
		}
	}
	for _, end := range []End{StartEnd, FinishEnd} {
		marker, exists := have[end]
		attached := f.Endpoint(end).Attached()
		switch {
		case attached && exists:
			if _, err := s.st.DespawnRecursive(marker); err != nil {
				return err
			}
		case !attached && !exists:
			m := s.st.Spawn()
			_ = s.kinds.Insert(m, KindTerminal)
			_ = s.levels.Insert(m, s.Level(e))
			_ = s.terminals.Insert(m, Terminal{Flow: e, End: end})
			if err := s.st.SetParent(m, e); err != nil {
				return err
			}
			s.place(m, terminalPosition(f.Curve, end), layout.TerminalZ-layout.FlowZ, 0)
		case !attached && exists:
			s.movePlaced(marker, terminalPosition(f.Curve, end))
		}
	}
	return nil
}

func terminalPosition(c geom.FlowCurve, end End) geom.Vec2 {
	if end == StartEnd {
		return c.Start
	}
	return c.End
}

// movePlaced updates an element's zoom-independent position and transform,
// writing only when the position changed.
func (s *Scene) movePlaced(e store.Entity, p geom.Vec2) {
	if wrote, _ := s.initial.Set(e, p); !wrote {
		return
	}
	t := s.Transform(e)
	t.Translation = p.Scale(s.appliedZoom)
	_, _ = s.transforms.Set(e, t)
}

// =============================================================================
// Rule 3: interface-subsystem aggregation
// =============================================================================

func (s *Scene) ruleAggregation(since store.Cursor) error {
	if len(s.flows.Changed(since)) == 0 && len(s.flows.Removed(since)) == 0 && len(s.systems.Added(since)) == 0 {
		return nil
	}
	for _, e := range s.systems.Entities() {
		sys, _ := s.systems.Get(e)
		if !sys.IsInterfaceSubsystem() {
			continue
		}
		prev, _ := s.aggregates.Get(e)
		if _, err := s.aggregates.Set(e, s.aggregate(sys.Interface, prev)); err != nil {
			return err
		}
	}
	return nil
}

// aggregate re-sums every flow attached to iface. Substance type and
// usefulness follow the most recently created flow; with no flows they keep
// their previous values.
func (s *Scene) aggregate(iface store.Entity, prev Aggregate) Aggregate {
	a := Aggregate{SubstanceType: prev.SubstanceType, IsUseful: prev.IsUseful}
	s.flows.Each(func(_ store.Entity, f Flow) {
		switch iface {
		case f.Sink.Interface:
			a.TotalInflow += f.Amount
		case f.Source.Interface:
			a.TotalOutflow += f.Amount
		default:
			return
		}
		a.Flows++
		a.SubstanceType = f.SubstanceType
		a.IsUseful = f.IsUseful
	})
	return a
}

// =============================================================================
// Rule 4: zoom application
// =============================================================================

func (s *Scene) ruleZoom(since store.Cursor) error {
	zoomed := s.appliedZoom != s.zoom
	moved := s.initial.Changed(since)
	if !zoomed && len(moved) == 0 {
		return nil
	}
	targets := moved
	if zoomed {
		targets = s.initial.Entities()
	}
	s.appliedZoom = s.zoom
	for _, e := range targets {
		p, ok := s.initial.Get(e)
		if !ok {
			continue
		}
		t := s.Transform(e)
		t.Translation = p.Scale(s.zoom)
		if _, err := s.transforms.Set(e, t); err != nil {
			return err
		}
	}
	if zoomed {
		for _, e := range s.st.Tagged(TagScaleWithZoom) {
			if _, err := s.drawScale.Set(e, s.params.Scale(s.Level(e), s.zoom)); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// Rule 5: selection helpers
// =============================================================================

func (s *Scene) ruleSelection(since store.Cursor) error {
	byTarget := map[store.Entity]store.Entity{}
	for _, h := range s.helpers.Entities() {
		v, _ := s.helpers.Get(h)
		if !s.st.Alive(v.Target) || !s.Selected(v.Target) {
			if _, err := s.st.DespawnRecursive(h); err != nil {
				return err
			}
			continue
		}
		byTarget[v.Target] = h
	}
	for _, e := range s.selected.Entities() {
		if !s.Selected(e) {
			continue
		}
		if h, ok := byTarget[e]; ok {
			s.syncHelper(h)
			continue
		}
		h := s.st.Spawn()
		_ = s.kinds.Insert(h, KindHelper)
		_ = s.levels.Insert(h, s.Level(e))
		_ = s.helpers.Insert(h, Helper{Target: e})
		if err := s.st.SetParent(h, e); err != nil {
			return err
		}
		_ = s.transforms.Insert(h, geom.At(geom.Zero, layout.HelperZ))
		s.syncHelper(h)
	}
	return nil
}

// syncHelper recomputes a helper's outline from its target.
func (s *Scene) syncHelper(h store.Entity) {
	v, ok := s.helpers.Get(h)
	if !ok {
		return
	}
	scale := s.Scale(v.Target)
	switch s.Kind(v.Target) {
	case KindInterface:
		v.Path = geom.ScalePath(geom.RectPath(layout.InterfaceWidthHalf+2, layout.InterfaceHeightHalf+2), scale)
	case KindExternalEntity:
		v.Path = geom.ScalePath(geom.RectPath(layout.ExternalEntityWidthHalf+2, layout.ExternalEntityHeight/2+2), scale)
	case KindFlow:
		f, _ := s.flows.Get(v.Target)
		v.Path = geom.ScalePath(f.Curve.Flatten(32), s.appliedZoom)
	case KindSystem, KindLabel, KindHelper, KindTerminal:
		return
	}
	v.Stroke = layout.StrokeForZoom(layout.HelperStrokeWidth, s.appliedZoom)
	_, _ = s.helpers.Set(h, v)
}
