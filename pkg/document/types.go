package document

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// IdKind is the kind part of an [Id].
type IdKind string

const (
	KindSystem      IdKind = "System"
	KindBoundary    IdKind = "Boundary"
	KindInterface   IdKind = "Interface"
	KindEnvironment IdKind = "Environment"
	KindSource      IdKind = "Source"
	KindSink        IdKind = "Sink"
	KindFlow        IdKind = "Flow"
)

// Valid reports whether k is a known kind.
func (k IdKind) Valid() bool {
	switch k {
	case KindSystem, KindBoundary, KindInterface, KindEnvironment, KindSource, KindSink, KindFlow:
		return true
	}
	return false
}

// Id identifies a record within one document.
type Id struct {
	Ty      IdKind `json:"ty"`
	Indices []int  `json:"indices"`
}

// NewId builds an Id.
func NewId(kind IdKind, indices ...int) Id {
	return Id{Ty: kind, Indices: slices.Clone(indices)}
}

// String formats the Id as Kind[i,j,...].
func (id Id) String() string {
	parts := make([]string, len(id.Indices))
	for i, v := range id.Indices {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("%s[%s]", id.Ty, strings.Join(parts, ","))
}

// Key is a comparable form of the Id for use in maps.
func (id Id) Key() string { return id.String() }

// Equal reports whether two Ids name the same record.
func (id Id) Equal(o Id) bool {
	return id.Ty == o.Ty && slices.Equal(id.Indices, o.Indices)
}

// Compare orders Ids by indices, then kind.
func (id Id) Compare(o Id) int {
	if c := slices.Compare(id.Indices, o.Indices); c != 0 {
		return c
	}
	return strings.Compare(string(id.Ty), string(o.Ty))
}

// Child returns an Id of kind with i appended to id's indices.
func (id Id) Child(kind IdKind, i int) Id {
	return Id{Ty: kind, Indices: append(slices.Clone(id.Indices), i)}
}

// Info is the identity, nesting level and label of a record.
type Info struct {
	Id          Id     `json:"id"`
	Level       int    `json:"level"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// WorldModel is the document root.
type WorldModel struct {
	SystemOfInterest System `json:"system_of_interest"`
}

// System is a system record. Parent is nil for the System of Interest; for
// an interface subsystem it names the interface.
type System struct {
	Info                 Info          `json:"info"`
	Parent               *Id           `json:"parent"`
	Complexity           Complexity    `json:"complexity"`
	Environment          Environment   `json:"environment"`
	Boundary             Boundary      `json:"boundary"`
	InternalInteractions []Interaction `json:"internal_interactions"`
	ExternalInteractions []Interaction `json:"external_interactions"`
	Components           []System      `json:"components"`
	Transform            *Transform    `json:"transform"`
}

// Boundary is the ring of a system and its interfaces.
type Boundary struct {
	Info                Info        `json:"info"`
	Porosity            float64     `json:"porosity"`
	PerceptiveFuzziness float64     `json:"perceptive_fuzziness"`
	Interfaces          []Interface `json:"interfaces"`
}

// Environment holds the sources and sinks outside a system.
type Environment struct {
	Info    Info             `json:"info"`
	Sources []ExternalEntity `json:"sources"`
	Sinks   []ExternalEntity `json:"sinks"`
}

// InterfaceType is the direction an interface admits.
type InterfaceType string

const (
	Import InterfaceType = "Import"
	Export InterfaceType = "Export"
	Hybrid InterfaceType = "Hybrid"
)

// Interface is a port on a boundary.
type Interface struct {
	Info         Info          `json:"info"`
	Protocol     string        `json:"protocol"`
	Ty           InterfaceType `json:"ty"`
	ReceivesFrom []Id          `json:"receives_from"`
	ExportsTo    []Id          `json:"exports_to"`
	Angle        *float64      `json:"angle"`
}

// ExternalType distinguishes sources from sinks.
type ExternalType string

const (
	Source ExternalType = "Source"
	Sink   ExternalType = "Sink"
)

// ExternalEntity is a source or sink record.
type ExternalEntity struct {
	Info         Info         `json:"info"`
	Ty           ExternalType `json:"ty"`
	Interactions []Id         `json:"interactions"`
	Transform    *Transform   `json:"transform"`
}

// SubstanceType classifies what an interaction carries.
type SubstanceType string

const (
	Matter  SubstanceType = "Matter"
	Energy  SubstanceType = "Energy"
	Message SubstanceType = "Message"
)

// Substance is what an interaction carries.
type Substance struct {
	SubType *string       `json:"sub_type"`
	Ty      SubstanceType `json:"ty"`
}

// Usability is the value classification of an interaction.
type Usability string

const (
	Product    Usability = "Product"
	Waste      Usability = "Waste"
	Resource   Usability = "Resource"
	Disruption Usability = "Disruption"
)

// Valid reports whether u is a known usability.
func (u Usability) Valid() bool {
	switch u {
	case Product, Waste, Resource, Disruption:
		return true
	}
	return false
}

// Interaction is a flow record.
//
// For an external interaction ExternalEntity names the source or sink and
// Interface, when present, the interface end. For an internal interaction
// Interface is the source-side interface and ExternalEntity the sink-side
// interface.
type Interaction struct {
	Info           Info            `json:"info"`
	Substance      Substance       `json:"substance"`
	Ty             InteractionType `json:"ty"`
	ExternalEntity Id              `json:"external_entity"`
	Interface      *Id             `json:"interface,omitempty"`
	Amount         *float64        `json:"amount,omitempty"`
	IsUseful       *bool           `json:"is_useful,omitempty"`
}

// Direction of an interaction relative to the system that owns it.
type Direction string

const (
	Inflow  Direction = "Inflow"
	Outflow Direction = "Outflow"
)

// InteractionType is the direction and usability of an interaction.
type InteractionType struct {
	Direction Direction
	Usability Usability
}

// ComplexityKind enumerates [Complexity] variants.
type ComplexityKind string

const (
	Atomic   ComplexityKind = "Atomic"
	Complex  ComplexityKind = "Complex"
	Multiset ComplexityKind = "Multiset"
)

// Complexity is the internal organisation of a system.
type Complexity struct {
	Kind       ComplexityKind
	Adaptable  bool
	Evolveable bool
}

// Transform is a persisted placement. Translation carries x, y and depth.
type Transform struct {
	Translation [3]float64 `json:"translation"`
	Rotation    float64    `json:"rotation"`
	Scale       [2]float64 `json:"scale"`
}
