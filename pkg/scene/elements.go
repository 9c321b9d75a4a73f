package scene

import (
	"fmt"

	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Kind is the element kind of an entity.
type Kind int

const (
	KindSystem Kind = iota + 1
	KindInterface
	KindFlow
	KindExternalEntity
	KindLabel
	KindHelper
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindInterface:
		return "interface"
	case KindFlow:
		return "flow"
	case KindExternalEntity:
		return "external entity"
	case KindLabel:
		return "label"
	case KindHelper:
		return "helper"
	case KindTerminal:
		return "terminal"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SubstanceType classifies what a flow carries.
type SubstanceType int

const (
	Matter SubstanceType = iota
	Energy
	Message
)

func (t SubstanceType) String() string {
	switch t {
	case Matter:
		return "Matter"
	case Energy:
		return "Energy"
	case Message:
		return "Message"
	}
	return fmt.Sprintf("SubstanceType(%d)", int(t))
}

// ParseSubstanceType is the inverse of [SubstanceType.String].
func ParseSubstanceType(s string) (SubstanceType, error) {
	switch s {
	case "Matter":
		return Matter, nil
	case "Energy":
		return Energy, nil
	case "Message":
		return Message, nil
	}
	return 0, fmt.Errorf("unknown substance type %q", s)
}

// Usability is the value classification of a flow.
type Usability int

const (
	Product Usability = iota
	Waste
	Resource
	Disruption
)

func (u Usability) String() string {
	switch u {
	case Product:
		return "Product"
	case Waste:
		return "Waste"
	case Resource:
		return "Resource"
	case Disruption:
		return "Disruption"
	}
	return fmt.Sprintf("Usability(%d)", int(u))
}

// ParseUsability is the inverse of [Usability.String].
func ParseUsability(s string) (Usability, error) {
	switch s {
	case "Product":
		return Product, nil
	case "Waste":
		return Waste, nil
	case "Resource":
		return Resource, nil
	case "Disruption":
		return Disruption, nil
	}
	return 0, fmt.Errorf("unknown usability %q", s)
}

// Useful reports whether flows of this usability are useful by default.
func (u Usability) Useful() bool {
	switch u {
	case Product, Resource:
		return true
	case Waste, Disruption:
		return false
	}
	return false
}

// InterfaceType is the direction an interface admits.
type InterfaceType int

const (
	Import InterfaceType = iota
	Export
	Hybrid
)

func (t InterfaceType) String() string {
	switch t {
	case Import:
		return "Import"
	case Export:
		return "Export"
	case Hybrid:
		return "Hybrid"
	}
	return fmt.Sprintf("InterfaceType(%d)", int(t))
}

// ParseInterfaceType is the inverse of [InterfaceType.String].
func ParseInterfaceType(s string) (InterfaceType, error) {
	switch s {
	case "Import":
		return Import, nil
	case "Export":
		return Export, nil
	case "Hybrid":
		return Hybrid, nil
	}
	return 0, fmt.Errorf("unknown interface type %q", s)
}

// AcceptsInflow reports whether a flow may end on an interface of this type.
func (t InterfaceType) AcceptsInflow() bool { return t == Import || t == Hybrid }

// AcceptsOutflow reports whether a flow may start on an interface of this type.
func (t InterfaceType) AcceptsOutflow() bool { return t == Export || t == Hybrid }

// ExternalType distinguishes sources from sinks.
type ExternalType int

const (
	Source ExternalType = iota
	Sink
)

func (t ExternalType) String() string {
	switch t {
	case Source:
		return "Source"
	case Sink:
		return "Sink"
	}
	return fmt.Sprintf("ExternalType(%d)", int(t))
}

// ComplexityKind enumerates [Complexity] variants.
type ComplexityKind int

const (
	Atomic ComplexityKind = iota
	Complex
	Multiset
)

// Complexity describes the internal organisation of a system.
// Adaptable and Evolveable are meaningful only for Complex.
type Complexity struct {
	Kind       ComplexityKind
	Adaptable  bool
	Evolveable bool
}

func (c Complexity) String() string {
	switch c.Kind {
	case Atomic:
		return "Atomic"
	case Complex:
		return fmt.Sprintf("Complex(adaptable=%t, evolveable=%t)", c.Adaptable, c.Evolveable)
	case Multiset:
		return "Multiset"
	}
	return fmt.Sprintf("Complexity(%d)", int(c.Kind))
}

// DefaultComplexity is what new systems start with.
func DefaultComplexity() Complexity {
	return Complexity{Kind: Complex, Adaptable: false, Evolveable: false}
}

// Info is the name and description shown for an element.
type Info struct {
	Name        string
	Description string
}

// Boundary is the porous ring of a system.
type Boundary struct {
	Info
	Porosity            float64
	PerceptiveFuzziness float64
}

// System is a disk. The root has Parent == store.None.
//
// A system with Interface set is an interface subsystem: it represents the
// inside of that interface and aggregates the traffic crossing it.
type System struct {
	Radius      float64
	Boundary    Boundary
	Environment Info
	Complexity  Complexity
	Parent      store.Entity
	Interface   store.Entity
	// ChildOfInterface places the subsystem in its interface's frame rather
	// than its parent system's frame.
	ChildOfInterface bool
}

// IsRoot reports whether s is the System of Interest.
func (s System) IsRoot() bool { return !s.Parent.Valid() }

// IsInterfaceSubsystem reports whether s is bound to an interface.
func (s System) IsInterfaceSubsystem() bool { return s.Interface.Valid() }

// Aggregate is the traffic summary of an interface subsystem.
type Aggregate struct {
	TotalInflow   float64
	TotalOutflow  float64
	SubstanceType SubstanceType
	IsUseful      bool
	Flows         int
}

// Interface is a port on the circumference of a system at Angle radians.
type Interface struct {
	System   store.Entity
	Angle    float64
	Protocol string
	Type     InterfaceType
}

// ExternalEntity is a source or sink in the environment of System.
type ExternalEntity struct {
	Type   ExternalType
	System store.Entity
}

// Endpoint is one end of a flow. At most one of Interface and
// ExternalEntity is set; System is the owner of Interface when it is set.
type Endpoint struct {
	System         store.Entity
	Interface      store.Entity
	ExternalEntity store.Entity
}

// Attached reports whether the endpoint references an element.
func (e Endpoint) Attached() bool {
	return e.Interface.Valid() || e.ExternalEntity.Valid()
}

// AtInterface returns an endpoint on iface of sys.
func AtInterface(sys, iface store.Entity) Endpoint {
	return Endpoint{System: sys, Interface: iface}
}

// AtExternal returns an endpoint on an external entity.
func AtExternal(ext store.Entity) Endpoint {
	return Endpoint{ExternalEntity: ext}
}

// End names one end of a flow.
type End int

const (
	StartEnd End = iota
	FinishEnd
)

func (e End) String() string {
	if e == StartEnd {
		return "start"
	}
	return "end"
}

// Flow is a directed transfer of substance from Source to Sink.
//
// Frame is the system whose coordinate frame the curve is expressed in;
// store.None means the world frame. Curve coordinates are zoom independent.
type Flow struct {
	SubstanceType SubstanceType
	SubType       string
	Usability     Usability
	Amount        float64
	IsUseful      bool
	Source        Endpoint
	Sink          Endpoint
	Frame         store.Entity
	Curve         geom.FlowCurve
}

// Complete reports whether both ends are attached.
func (f Flow) Complete() bool { return f.Source.Attached() && f.Sink.Attached() }

// Endpoint returns the requested end.
func (f Flow) Endpoint(end End) Endpoint {
	if end == StartEnd {
		return f.Source
	}
	return f.Sink
}

// Label is the text child spawned for named subsystems.
type Label struct {
	Target store.Entity
	Text   string
}

// Helper is the stroke-only outline shown around a selected element.
type Helper struct {
	Target store.Entity
	Path   []geom.Vec2
	Stroke float64
}

// Terminal marks an unattached end of an incomplete flow.
type Terminal struct {
	Flow store.Entity
	End  End
}

// Tags.
const (
	TagIncomplete    store.Tag = "incomplete"
	TagScaleWithZoom store.Tag = "scale-with-zoom"
)
