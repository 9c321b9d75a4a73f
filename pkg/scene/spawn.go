package scene

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/layout"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Constructors validate everything first and only then touch the store, so
// a returned error always leaves the scene unchanged.

// SystemSpec describes the System of Interest.
type SystemSpec struct {
	Info        Info
	Boundary    Boundary
	Environment Info
	Complexity  Complexity
	// Radius defaults to the configured System of Interest radius.
	Radius float64
}

// SpawnSystem creates the root system. A scene holds exactly one root, so
// this fails once a root exists; subsystems are created with
// [Scene.SpawnSubsystem].
func (s *Scene) SpawnSystem(spec SystemSpec) (store.Entity, error) {
	if s.root.Valid() {
		return store.None, errors.New(errors.ErrCodeInvariantViolation, "scene already has a System of Interest")
	}
	if err := errors.ValidateName(spec.Info.Name); err != nil {
		return store.None, err
	}
	radius := spec.Radius
	if radius == 0 {
		radius = s.params.SOIRadius
	}
	if radius < 0 {
		return store.None, errors.New(errors.ErrCodeInvalidInput, "system radius must be positive, got %v", radius)
	}

	e := s.st.Spawn()
	_ = s.kinds.Insert(e, KindSystem)
	_ = s.infos.Insert(e, spec.Info)
	_ = s.levels.Insert(e, 0)
	_ = s.systems.Insert(e, System{
		Radius:      radius,
		Boundary:    spec.Boundary,
		Environment: spec.Environment,
		Complexity:  spec.Complexity,
	})
	s.place(e, geom.Zero, layout.SystemZ, 0)
	s.root = e
	return e, nil
}

// InterfaceSpec describes a new interface.
type InterfaceSpec struct {
	System   store.Entity
	Angle    float64
	Type     InterfaceType
	Protocol string
	Info     Info
	// Flow, when set, is attached to the new interface: an Import interface
	// becomes the flow's sink, an Export interface its source, and a Hybrid
	// interface takes whichever end is free, sink first.
	Flow store.Entity
}

// SpawnInterface places an interface on the circumference of spec.System.
func (s *Scene) SpawnInterface(spec InterfaceSpec) (store.Entity, error) {
	sys, err := s.mustSystem(spec.System)
	if err != nil {
		return store.None, err
	}
	if err := errors.ValidateName(spec.Info.Name); err != nil {
		return store.None, err
	}

	var (
		flow Flow
		end  End
	)
	if spec.Flow.Valid() {
		if flow, err = s.mustFlow(spec.Flow); err != nil {
			return store.None, err
		}
		if end, err = interfaceEnd(spec.Type, flow); err != nil {
			return store.None, errors.Wrap(errors.ErrCodeInvariantViolation, err, "attach flow %s", spec.Flow)
		}
		if end == FinishEnd && flow.Source.Interface.Valid() && s.interfaceSystem(flow.Source.Interface) == spec.System {
			return store.None, errors.New(errors.ErrCodeInvariantViolation, "flow %s would start and end on system %s", spec.Flow, spec.System)
		}
		if end == StartEnd && flow.Sink.Interface.Valid() && s.interfaceSystem(flow.Sink.Interface) == spec.System {
			return store.None, errors.New(errors.ErrCodeInvariantViolation, "flow %s would start and end on system %s", spec.Flow, spec.System)
		}
	}

	theta := geom.NormalizeAngle(spec.Angle)
	e := s.st.Spawn()
	_ = s.kinds.Insert(e, KindInterface)
	_ = s.infos.Insert(e, spec.Info)
	_ = s.levels.Insert(e, s.Level(spec.System))
	_ = s.interfaces.Insert(e, Interface{
		System:   spec.System,
		Angle:    theta,
		Protocol: spec.Protocol,
		Type:     spec.Type,
	})
	_ = s.st.SetParent(e, spec.System)
	_ = s.st.AddTag(e, TagScaleWithZoom)
	s.place(e, interfaceInitial(sys.Radius, theta), layout.InterfaceZ, theta)

	if spec.Flow.Valid() {
		s.attach(spec.Flow, flow, end, AtInterface(spec.System, e))
	}
	return e, nil
}

func interfaceEnd(ty InterfaceType, f Flow) (End, error) {
	switch ty {
	case Import:
		if f.Sink.Attached() {
			return 0, errors.New(errors.ErrCodeInvariantViolation, "flow sink is already attached")
		}
		return FinishEnd, nil
	case Export:
		if f.Source.Attached() {
			return 0, errors.New(errors.ErrCodeInvariantViolation, "flow source is already attached")
		}
		return StartEnd, nil
	case Hybrid:
		if !f.Sink.Attached() {
			return FinishEnd, nil
		}
		if !f.Source.Attached() {
			return StartEnd, nil
		}
		return 0, errors.New(errors.ErrCodeInvariantViolation, "flow has no free end")
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown interface type %d", int(ty))
}

// ExternalEntitySpec describes a new source or sink.
type ExternalEntitySpec struct {
	// System is the system whose environment holds the entity.
	System store.Entity
	Type   ExternalType
	Info   Info
	// Position is the zoom-independent position in the environment frame.
	// When nil the entity is placed outward from the interface at the far
	// end of Flow.
	Position *geom.Vec2
	// Flow, when set, is attached: a Source becomes its start, a Sink its end.
	Flow store.Entity
}

// SpawnExternalEntity creates a source or sink in the environment of
// spec.System.
func (s *Scene) SpawnExternalEntity(spec ExternalEntitySpec) (store.Entity, error) {
	sys, err := s.mustSystem(spec.System)
	if err != nil {
		return store.None, err
	}
	if err := errors.ValidateName(spec.Info.Name); err != nil {
		return store.None, err
	}
	end := StartEnd
	if spec.Type == Sink {
		end = FinishEnd
	}

	var flow Flow
	if spec.Flow.Valid() {
		if flow, err = s.mustFlow(spec.Flow); err != nil {
			return store.None, err
		}
		if other := flow.Endpoint(1 - end); other.Interface.Valid() && s.interfaceSystem(other.Interface) != spec.System {
			return store.None, errors.New(errors.ErrCodeInvariantViolation, "flow %s is not on an interface of %s", spec.Flow, spec.System)
		}
		if flow.Endpoint(end).Attached() {
			return store.None, errors.New(errors.ErrCodeInvariantViolation, "flow %s %s is already attached", spec.Flow, end)
		}
		if other := flow.Endpoint(1 - end); other.ExternalEntity.Valid() {
			return store.None, errors.New(errors.ErrCodeInvariantViolation, "flow %s would connect two external entities", spec.Flow)
		}
	}

	center := s.systemCenterInEnv(spec.System)
	var pos geom.Vec2
	switch {
	case spec.Position != nil:
		pos = *spec.Position
	case spec.Flow.Valid() && flow.Endpoint(1-end).Interface.Valid():
		iface, _ := s.interfaces.Get(flow.Endpoint(1 - end).Interface)
		pos = center.Add(geom.FromAngle(iface.Angle).Scale(sys.Radius + geom.FlowLength))
	default:
		pos = center.Add(geom.V(sys.Radius+geom.FlowLength, 0))
	}

	e := s.st.Spawn()
	_ = s.kinds.Insert(e, KindExternalEntity)
	_ = s.infos.Insert(e, spec.Info)
	_ = s.levels.Insert(e, s.Level(spec.System)-1)
	_ = s.externals.Insert(e, ExternalEntity{Type: spec.Type, System: spec.System})
	if frame := s.envFrame(spec.System); frame.Valid() {
		_ = s.st.SetParent(e, frame)
	}
	_ = s.st.AddTag(e, TagScaleWithZoom)
	s.place(e, pos, layout.ExternalEntityZ, facing(pos, center))

	if spec.Flow.Valid() {
		s.attach(spec.Flow, flow, end, AtExternal(e))
	}
	return e, nil
}

// systemCenterInEnv is the zoom-independent center of sys in the frame that
// holds its environment.
func (s *Scene) systemCenterInEnv(sys store.Entity) geom.Vec2 {
	p, _ := s.initial.Get(sys)
	return p
}

// FlowSpec describes a new flow.
type FlowSpec struct {
	Source        Endpoint
	Sink          Endpoint
	SubstanceType SubstanceType
	SubType       string
	Usability     Usability
	Amount        float64
	IsUseful      bool
	Info          Info
	// Curve is used for unattached ends; attached ends are recomputed by
	// the layout pass.
	Curve geom.FlowCurve
	// Frame is used when neither end is attached.
	Frame store.Entity
}

// SpawnFlow creates a flow. Either end may be left unattached; the
// invariants engine then marks the flow incomplete.
func (s *Scene) SpawnFlow(spec FlowSpec) (store.Entity, error) {
	if spec.Amount < 0 {
		return store.None, errors.New(errors.ErrCodeInvalidInput, "flow amount must be non-negative, got %v", spec.Amount)
	}
	src, err := s.resolveEndpoint(spec.Source, StartEnd)
	if err != nil {
		return store.None, err
	}
	snk, err := s.resolveEndpoint(spec.Sink, FinishEnd)
	if err != nil {
		return store.None, err
	}
	if err := s.checkPair(src, snk); err != nil {
		return store.None, err
	}
	frame := spec.Frame
	if src.Attached() || snk.Attached() {
		frame = s.flowFrame(src, snk)
	} else if frame.Valid() && !s.isKind(frame, KindSystem) {
		return store.None, errors.New(errors.ErrCodeInvariantViolation, "flow frame %s is not a system", frame)
	}

	e := s.st.Spawn()
	_ = s.kinds.Insert(e, KindFlow)
	_ = s.infos.Insert(e, spec.Info)
	_ = s.levels.Insert(e, s.frameLevel(frame))
	_ = s.flows.Insert(e, Flow{
		SubstanceType: spec.SubstanceType,
		SubType:       spec.SubType,
		Usability:     spec.Usability,
		Amount:        spec.Amount,
		IsUseful:      spec.IsUseful,
		Source:        src,
		Sink:          snk,
		Frame:         frame,
		Curve:         spec.Curve,
	})
	if frame.Valid() {
		_ = s.st.SetParent(e, frame)
	}
	_ = s.transforms.Insert(e, geom.At(geom.Zero, layout.FlowZ))
	if !src.Attached() || !snk.Attached() {
		_ = s.st.AddTag(e, TagIncomplete)
	}
	s.refreshCurve(e)
	return e, nil
}

// SubsystemSpec describes a new subsystem of Parent.
type SubsystemSpec struct {
	Parent     store.Entity
	Info       Info
	Boundary   Boundary
	Complexity Complexity
	// Position is the zoom-independent center in Parent's frame. When nil
	// the left-anchored default is used.
	Position *geom.Vec2
	// Inflows and Outflows are existing flows ending or starting on an
	// interface of Parent. Each is redirected onto a new interface of the
	// subsystem, placed where the flow meets the subsystem disk.
	Inflows  []store.Entity
	Outflows []store.Entity
}

// SpawnSubsystem nests a new system inside spec.Parent.
func (s *Scene) SpawnSubsystem(spec SubsystemSpec) (store.Entity, error) {
	parent, err := s.mustSystem(spec.Parent)
	if err != nil {
		return store.None, err
	}
	if err := errors.ValidateName(spec.Info.Name); err != nil {
		return store.None, err
	}
	radius := s.params.SubsystemRadius(parent.Radius)
	pos := layout.LeftAnchoredDefault(radius, 1)
	if spec.Position != nil {
		pos = *spec.Position
	}

	type redirect struct {
		flow  store.Entity
		data  Flow
		end   End
		angle float64
	}
	var plan []redirect
	seen := map[store.Entity]bool{}
	collect := func(flows []store.Entity, end End) error {
		for _, f := range flows {
			if seen[f] {
				return errors.New(errors.ErrCodeInvalidInput, "flow %s listed twice", f)
			}
			seen[f] = true
			data, err := s.mustFlow(f)
			if err != nil {
				return err
			}
			p := data.Endpoint(end)
			if !p.Interface.Valid() || s.interfaceSystem(p.Interface) != spec.Parent {
				return errors.New(errors.ErrCodeInvariantViolation, "flow %s %s is not on an interface of %s", f, end, spec.Parent)
			}
			iface, _ := s.interfaces.Get(p.Interface)
			anchor := interfaceInitial(parent.Radius, iface.Angle)
			_, normal := geom.EndAndDirectionFromSubsystem(pos, radius, anchor)
			plan = append(plan, redirect{flow: f, data: data, end: end, angle: normal.Angle()})
		}
		return nil
	}
	if err := collect(spec.Inflows, FinishEnd); err != nil {
		return store.None, err
	}
	if err := collect(spec.Outflows, StartEnd); err != nil {
		return store.None, err
	}

	e := s.spawnSubsystem(spec.Parent, System{
		Radius:     radius,
		Boundary:   spec.Boundary,
		Complexity: spec.Complexity,
		Parent:     spec.Parent,
	}, spec.Info)
	_ = s.st.SetParent(e, spec.Parent)
	s.place(e, pos, layout.SubsystemZ, 0)

	for _, r := range plan {
		ty := Import
		if r.end == StartEnd {
			ty = Export
		}
		iface := s.st.Spawn()
		_ = s.kinds.Insert(iface, KindInterface)
		_ = s.infos.Insert(iface, Info{})
		_ = s.levels.Insert(iface, s.Level(e))
		_ = s.interfaces.Insert(iface, Interface{System: e, Angle: r.angle, Type: ty})
		_ = s.st.SetParent(iface, e)
		_ = s.st.AddTag(iface, TagScaleWithZoom)
		s.place(iface, interfaceInitial(radius, r.angle), layout.InterfaceZ, r.angle)

		r.data.setEndpoint(r.end, Endpoint{})
		s.attach(r.flow, r.data, r.end, AtInterface(e, iface))
	}
	return e, nil
}

func (s *Scene) spawnSubsystem(parent store.Entity, sys System, info Info) store.Entity {
	e := s.st.Spawn()
	_ = s.kinds.Insert(e, KindSystem)
	_ = s.infos.Insert(e, info)
	_ = s.levels.Insert(e, s.Level(parent)+1)
	_ = s.systems.Insert(e, sys)
	return e
}

// InterfaceSubsystemSpec describes the subsystem behind an interface.
type InterfaceSubsystemSpec struct {
	Interface store.Entity
	Info      Info
	// ChildOfInterface places the subsystem in the interface's own frame,
	// drawn just below the interface.
	ChildOfInterface bool
	Complexity       Complexity
}

// SpawnInterfaceSubsystem creates the subsystem representing the inside of
// an interface. An interface has at most one.
func (s *Scene) SpawnInterfaceSubsystem(spec InterfaceSubsystemSpec) (store.Entity, error) {
	iface, err := s.mustInterface(spec.Interface)
	if err != nil {
		return store.None, err
	}
	if _, ok := s.InterfaceSubsystemOf(spec.Interface); ok {
		return store.None, errors.New(errors.ErrCodeInvariantViolation, "interface %s already has a subsystem", spec.Interface)
	}
	if err := errors.ValidateName(spec.Info.Name); err != nil {
		return store.None, err
	}
	parent, _ := s.systems.Get(iface.System)
	radius := s.params.SubsystemRadius(parent.Radius)

	e := s.spawnSubsystem(iface.System, System{
		Radius:           radius,
		Complexity:       spec.Complexity,
		Parent:           iface.System,
		Interface:        spec.Interface,
		ChildOfInterface: spec.ChildOfInterface,
	}, spec.Info)
	if spec.ChildOfInterface {
		_ = s.st.SetParent(e, spec.Interface)
		s.place(e, layout.LeftAnchoredDefault(radius, 1), layout.SubsystemZ-layout.InterfaceZ, 0)
	} else {
		_ = s.st.SetParent(e, iface.System)
		s.place(e, interfaceInitial(parent.Radius-radius, iface.Angle), layout.SubsystemZ, 0)
	}
	_, _ = s.aggregates.Set(e, s.aggregate(spec.Interface, Aggregate{}))
	return e, nil
}

// =============================================================================
// Validation helpers
// =============================================================================

func (s *Scene) mustSystem(e store.Entity) (System, error) {
	if err := s.st.Check(e); err != nil {
		return System{}, err
	}
	sys, ok := s.systems.Get(e)
	if !ok {
		return System{}, errors.New(errors.ErrCodeInvariantViolation, "%s %s is not a system", s.Kind(e), e)
	}
	return sys, nil
}

func (s *Scene) mustInterface(e store.Entity) (Interface, error) {
	if err := s.st.Check(e); err != nil {
		return Interface{}, err
	}
	i, ok := s.interfaces.Get(e)
	if !ok {
		return Interface{}, errors.New(errors.ErrCodeInvariantViolation, "%s %s is not an interface", s.Kind(e), e)
	}
	return i, nil
}

func (s *Scene) mustFlow(e store.Entity) (Flow, error) {
	if err := s.st.Check(e); err != nil {
		return Flow{}, err
	}
	f, ok := s.flows.Get(e)
	if !ok {
		return Flow{}, errors.New(errors.ErrCodeInvariantViolation, "%s %s is not a flow", s.Kind(e), e)
	}
	return f, nil
}

func (s *Scene) interfaceSystem(iface store.Entity) store.Entity {
	i, _ := s.interfaces.Get(iface)
	return i.System
}

// resolveEndpoint validates p as the given end of a flow and fills in the
// owning system of an interface.
func (s *Scene) resolveEndpoint(p Endpoint, end End) (Endpoint, error) {
	switch {
	case p.Interface.Valid() && p.ExternalEntity.Valid():
		return p, errors.New(errors.ErrCodeInvariantViolation, "flow %s cannot attach to both an interface and an external entity", end)
	case p.Interface.Valid():
		iface, err := s.mustInterface(p.Interface)
		if err != nil {
			return p, err
		}
		if p.System.Valid() && p.System != iface.System {
			return p, errors.New(errors.ErrCodeInvariantViolation, "interface %s does not belong to system %s", p.Interface, p.System)
		}
		if end == FinishEnd && !iface.Type.AcceptsInflow() {
			return p, errors.New(errors.ErrCodeInvariantViolation, "%s interface %s cannot receive a flow", iface.Type, p.Interface)
		}
		if end == StartEnd && !iface.Type.AcceptsOutflow() {
			return p, errors.New(errors.ErrCodeInvariantViolation, "%s interface %s cannot emit a flow", iface.Type, p.Interface)
		}
		return AtInterface(iface.System, p.Interface), nil
	case p.ExternalEntity.Valid():
		if err := s.st.Check(p.ExternalEntity); err != nil {
			return p, err
		}
		x, ok := s.externals.Get(p.ExternalEntity)
		if !ok {
			return p, errors.New(errors.ErrCodeInvariantViolation, "%s %s is not an external entity", s.Kind(p.ExternalEntity), p.ExternalEntity)
		}
		if end == StartEnd && x.Type != Source {
			return p, errors.New(errors.ErrCodeInvariantViolation, "a flow can only start at a source")
		}
		if end == FinishEnd && x.Type != Sink {
			return p, errors.New(errors.ErrCodeInvariantViolation, "a flow can only end at a sink")
		}
		return AtExternal(p.ExternalEntity), nil
	case p.System.Valid():
		return p, errors.New(errors.ErrCodeInvariantViolation, "flows attach to system %s only through an interface", p.System)
	}
	return Endpoint{}, nil
}

// checkPair enforces that an interface end is matched by an external entity
// or an interface of another system.
func (s *Scene) checkPair(src, snk Endpoint) error {
	if src.ExternalEntity.Valid() && snk.ExternalEntity.Valid() {
		return errors.New(errors.ErrCodeInvariantViolation, "a flow cannot connect two external entities")
	}
	if src.Interface.Valid() && snk.Interface.Valid() && src.System == snk.System {
		return errors.New(errors.ErrCodeInvariantViolation, "a flow cannot start and end on system %s", src.System)
	}
	return nil
}

// flowFrame picks the frame a flow with the given ends lives in: the
// environment frame of the system owning an external end, or the innermost
// system enclosing both interface ends.
func (s *Scene) flowFrame(src, snk Endpoint) store.Entity {
	for _, p := range []Endpoint{src, snk} {
		if p.ExternalEntity.Valid() {
			x, _ := s.externals.Get(p.ExternalEntity)
			return s.envFrame(x.System)
		}
	}
	switch {
	case src.Interface.Valid() && snk.Interface.Valid():
		return s.commonSystem(src.System, snk.System)
	case src.Interface.Valid():
		return s.envFrame(src.System)
	case snk.Interface.Valid():
		return s.envFrame(snk.System)
	}
	return store.None
}

// commonSystem returns the innermost system containing both a and b. When
// one of them contains the other, that outer system is returned.
func (s *Scene) commonSystem(a, b store.Entity) store.Entity {
	up := map[store.Entity]bool{}
	for e := a; e.Valid(); e = s.parentSystem(e) {
		up[e] = true
	}
	for e := b; e.Valid(); e = s.parentSystem(e) {
		if up[e] {
			return e
		}
	}
	return store.None
}

func (s *Scene) parentSystem(e store.Entity) store.Entity {
	sys, _ := s.systems.Get(e)
	return sys.Parent
}

func (s *Scene) frameLevel(frame store.Entity) int {
	if !frame.Valid() {
		return -1
	}
	return s.Level(frame)
}

func (f *Flow) setEndpoint(end End, p Endpoint) {
	if end == StartEnd {
		f.Source = p
	} else {
		f.Sink = p
	}
}

// attach writes p as the given end of flow e and moves the flow into the
// frame its ends now imply.
func (s *Scene) attach(e store.Entity, f Flow, end End, p Endpoint) {
	f.setEndpoint(end, p)
	frame := s.flowFrame(f.Source, f.Sink)
	if frame != f.Frame {
		f.Curve = s.ReframeCurve(f.Curve, f.Frame, frame)
		f.Frame = frame
		_ = s.levels.Insert(e, s.frameLevel(frame))
		_ = s.st.SetParent(e, frame)
	}
	_ = s.flows.Insert(e, f)
	if f.Complete() {
		s.st.RemoveTag(e, TagIncomplete)
	} else {
		_ = s.st.AddTag(e, TagIncomplete)
	}
	s.refreshCurve(e)
}

// ReframeCurve expresses a zoom-independent curve given in frame from in
// frame to. store.None is the world frame.
func (s *Scene) ReframeCurve(c geom.FlowCurve, from, to store.Entity) geom.FlowCurve {
	fw, tw := s.frameWorld(from), s.frameWorld(to)
	z := s.appliedZoom
	point := func(p geom.Vec2) geom.Vec2 {
		return tw.Unapply(fw.Apply(p.Scale(z))).Scale(1 / z)
	}
	dir := func(d geom.Vec2) geom.Vec2 {
		return tw.UnapplyDir(d.Rotate(fw.Rotation))
	}
	return geom.FlowCurve{
		Start:          point(c.Start),
		StartDirection: dir(c.StartDirection),
		End:            point(c.End),
		EndDirection:   dir(c.EndDirection),
	}
}
