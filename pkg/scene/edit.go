package scene

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// SetInfo renames an element.
func (s *Scene) SetInfo(e store.Entity, info Info) error {
	if err := s.st.Check(e); err != nil {
		return err
	}
	if err := errors.ValidateName(info.Name); err != nil {
		return err
	}
	_, err := s.infos.Set(e, info)
	return err
}

// SetBoundary replaces the boundary of a system.
func (s *Scene) SetBoundary(sys store.Entity, b Boundary) error {
	if _, err := s.mustSystem(sys); err != nil {
		return err
	}
	if b.Porosity < 0 || b.Porosity > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "porosity must be in [0, 1], got %v", b.Porosity)
	}
	if b.PerceptiveFuzziness < 0 || b.PerceptiveFuzziness > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "perceptive fuzziness must be in [0, 1], got %v", b.PerceptiveFuzziness)
	}
	return s.systems.Update(sys, func(v *System) { v.Boundary = b })
}

// SetEnvironment renames the environment of a system.
func (s *Scene) SetEnvironment(sys store.Entity, info Info) error {
	if _, err := s.mustSystem(sys); err != nil {
		return err
	}
	return s.systems.Update(sys, func(v *System) { v.Environment = info })
}

// SetComplexity replaces the complexity of a system.
func (s *Scene) SetComplexity(sys store.Entity, c Complexity) error {
	if _, err := s.mustSystem(sys); err != nil {
		return err
	}
	return s.systems.Update(sys, func(v *System) { v.Complexity = c })
}

// FlowAttributes are the user-editable properties of a flow.
type FlowAttributes struct {
	SubstanceType SubstanceType
	SubType       string
	Usability     Usability
	Amount        float64
	IsUseful      bool
}

// Attributes returns the editable properties of f.
func (f Flow) Attributes() FlowAttributes {
	return FlowAttributes{
		SubstanceType: f.SubstanceType,
		SubType:       f.SubType,
		Usability:     f.Usability,
		Amount:        f.Amount,
		IsUseful:      f.IsUseful,
	}
}

// SetFlowAttributes replaces the editable properties of flow e. Aggregates
// of affected interface subsystems follow on the next [Scene.Update].
func (s *Scene) SetFlowAttributes(e store.Entity, a FlowAttributes) error {
	f, err := s.mustFlow(e)
	if err != nil {
		return err
	}
	if a.Amount < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "flow amount must be non-negative, got %v", a.Amount)
	}
	f.SubstanceType = a.SubstanceType
	f.SubType = a.SubType
	f.Usability = a.Usability
	f.Amount = a.Amount
	f.IsUseful = a.IsUseful
	_, err = s.flows.Set(e, f)
	return err
}

// ConnectFlow attaches one end of a flow. The end must currently be free.
func (s *Scene) ConnectFlow(e store.Entity, end End, p Endpoint) error {
	f, err := s.mustFlow(e)
	if err != nil {
		return err
	}
	if f.Endpoint(end).Attached() {
		return errors.New(errors.ErrCodeInvariantViolation, "flow %s %s is already attached", e, end)
	}
	resolved, err := s.resolveEndpoint(p, end)
	if err != nil {
		return err
	}
	if !resolved.Attached() {
		return errors.New(errors.ErrCodeInvalidInput, "endpoint names nothing to attach to")
	}
	src, snk := f.Source, f.Sink
	if end == StartEnd {
		src = resolved
	} else {
		snk = resolved
	}
	if err := s.checkPair(src, snk); err != nil {
		return err
	}
	s.attach(e, f, end, resolved)
	return nil
}

// DisconnectFlow frees one end of a flow, which then becomes incomplete.
func (s *Scene) DisconnectFlow(e store.Entity, end End) error {
	f, err := s.mustFlow(e)
	if err != nil {
		return err
	}
	if !f.Endpoint(end).Attached() {
		return nil
	}
	f.setEndpoint(end, Endpoint{})
	_ = s.flows.Insert(e, f)
	return s.st.AddTag(e, TagIncomplete)
}

// SetFlowEnd moves a free end of a flow, e.g. while it is dragged by its
// terminal marker. p is zoom independent in the flow's frame.
func (s *Scene) SetFlowEnd(e store.Entity, end End, p geom.Vec2) error {
	f, err := s.mustFlow(e)
	if err != nil {
		return err
	}
	if f.Endpoint(end).Attached() {
		return errors.New(errors.ErrCodeInvariantViolation, "flow %s %s is attached and follows its anchor", e, end)
	}
	if end == StartEnd {
		f.Curve.Start = p
	} else {
		f.Curve.End = p
	}
	_, err = s.flows.Set(e, f)
	return err
}

// SetInterface changes the protocol and type of an interface. The type may
// only change if every attached flow still fits it.
func (s *Scene) SetInterface(e store.Entity, protocol string, ty InterfaceType) error {
	iface, err := s.mustInterface(e)
	if err != nil {
		return err
	}
	for _, f := range s.FlowsAt(e) {
		v, _ := s.flows.Get(f)
		if v.Sink.Interface == e && !ty.AcceptsInflow() {
			return errors.New(errors.ErrCodeInvariantViolation, "flow %s ends on %s; %s interfaces cannot receive", f, e, ty)
		}
		if v.Source.Interface == e && !ty.AcceptsOutflow() {
			return errors.New(errors.ErrCodeInvariantViolation, "flow %s starts on %s; %s interfaces cannot emit", f, e, ty)
		}
	}
	iface.Protocol = protocol
	iface.Type = ty
	_, err = s.interfaces.Set(e, iface)
	return err
}

// MoveElement drags an element to p, a zoom-independent position in the
// element's parent frame. Interfaces are projected back onto their system's
// circumference at the angle of p; subsystems and external entities move
// freely. The System of Interest is fixed at the origin.
func (s *Scene) MoveElement(e store.Entity, p geom.Vec2) error {
	if err := s.st.Check(e); err != nil {
		return err
	}
	switch s.Kind(e) {
	case KindInterface:
		iface, _ := s.interfaces.Get(e)
		sys, _ := s.systems.Get(iface.System)
		theta := geom.NormalizeAngle(p.Angle())
		iface.Angle = theta
		_ = s.interfaces.Insert(e, iface)
		s.movePlaced(e, interfaceInitial(sys.Radius, theta))
		t := s.Transform(e)
		t.Rotation = theta
		_, _ = s.transforms.Set(e, t)
		if sub, ok := s.InterfaceSubsystemOf(e); ok {
			if v, _ := s.systems.Get(sub); !v.ChildOfInterface {
				s.movePlaced(sub, interfaceInitial(sys.Radius-v.Radius, theta))
			}
		}
		return nil
	case KindSystem:
		if e == s.root {
			return errors.New(errors.ErrCodeInvariantViolation, "the System of Interest cannot be moved")
		}
		s.movePlaced(e, p)
		return nil
	case KindExternalEntity:
		x, _ := s.externals.Get(e)
		s.movePlaced(e, p)
		t := s.Transform(e)
		t.Rotation = facing(p, s.systemCenterInEnv(x.System))
		_, _ = s.transforms.Set(e, t)
		return nil
	case KindFlow, KindLabel, KindHelper, KindTerminal:
		return errors.New(errors.ErrCodeInvalidInput, "%s %s cannot be moved directly", s.Kind(e), e)
	}
	return errors.New(errors.ErrCodeInternal, "entity %s has no kind", e)
}
