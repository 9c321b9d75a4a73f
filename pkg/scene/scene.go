package scene

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/layout"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Scene is the live diagram: an entity store plus the typed tables of the
// element catalog, the current zoom and the geometry cache.
//
// The zero value is not usable - use [New]. A Scene is owned by the tick
// loop and is not safe for concurrent use.
type Scene struct {
	st     *store.Store
	logger *log.Logger
	params layout.Params
	cache  *layout.Cache

	root        store.Entity
	zoom        float64
	appliedZoom float64
	seen        store.Cursor

	kinds      *store.Table[Kind]
	infos      *store.Table[Info]
	levels     *store.Table[int]
	transforms *store.Table[geom.Transform]
	initial    *store.Table[geom.Vec2]
	drawScale  *store.Table[float64]
	systems    *store.Table[System]
	aggregates *store.Table[Aggregate]
	interfaces *store.Table[Interface]
	externals  *store.Table[ExternalEntity]
	flows      *store.Table[Flow]
	labels     *store.Table[Label]
	helpers    *store.Table[Helper]
	terminals  *store.Table[Terminal]
	selected   *store.Table[bool]
}

// Option configures a [Scene].
type Option func(*Scene)

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(l *log.Logger) Option { return func(s *Scene) { s.logger = l } }

// WithParams overrides the sizing parameters.
func WithParams(p layout.Params) Option { return func(s *Scene) { s.params = p } }

// WithZoom sets the initial zoom.
func WithZoom(z float64) Option { return func(s *Scene) { s.zoom = layout.ClampZoom(z) } }

// New creates a scene holding only the System of Interest, named name.
// It panics if name fails [errors.ValidateName].
func New(name string, opts ...Option) *Scene {
	s := newEmpty(opts...)
	root, err := s.SpawnSystem(SystemSpec{Info: Info{Name: name}})
	if err != nil {
		panic(err)
	}
	s.root = root
	s.Update()
	return s
}

// NewEmpty creates a scene without a root. Call [Scene.SpawnSystem] once
// before anything else; the loader uses this to restore a persisted root.
func NewEmpty(opts ...Option) *Scene { return newEmpty(opts...) }

func newEmpty(opts ...Option) *Scene {
	st := store.New()
	s := &Scene{
		st:         st,
		params:     layout.DefaultParams(),
		zoom:       1,
		kinds:      store.NewTable[Kind](st, "kind"),
		infos:      store.NewTable[Info](st, "info"),
		levels:     store.NewTable[int](st, "nesting level"),
		transforms: store.NewTable[geom.Transform](st, "transform"),
		initial:    store.NewTable[geom.Vec2](st, "initial position"),
		drawScale:  store.NewTable[float64](st, "draw scale"),
		systems:    store.NewTable[System](st, "system"),
		aggregates: store.NewTable[Aggregate](st, "aggregate"),
		interfaces: store.NewTable[Interface](st, "interface"),
		externals:  store.NewTable[ExternalEntity](st, "external entity"),
		flows:      store.NewTable[Flow](st, "flow"),
		labels:     store.NewTable[Label](st, "label"),
		helpers:    store.NewTable[Helper](st, "helper"),
		terminals:  store.NewTable[Terminal](st, "terminal"),
		selected:   store.NewTable[bool](st, "selection"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.appliedZoom = s.zoom
	s.cache = layout.NewCache(s.params)
	return s
}

// Store exposes the underlying entity store for change queries.
func (s *Scene) Store() *store.Store { return s.st }

// Logger returns the scene's logger.
func (s *Scene) Logger() *log.Logger { return s.logger }

// Params returns the sizing parameters.
func (s *Scene) Params() layout.Params { return s.params }

// Geometry returns the shared geometry cache.
func (s *Scene) Geometry() *layout.Cache { return s.cache }

// Root returns the System of Interest.
func (s *Scene) Root() store.Entity { return s.root }

// =============================================================================
// Zoom
// =============================================================================

// Zoom returns the current zoom.
func (s *Scene) Zoom() float64 { return s.zoom }

// SetZoom sets the zoom, clamped to [layout.MinZoom, layout.MaxZoom]. The new
// value takes effect on transforms at the next [Scene.Update].
func (s *Scene) SetZoom(z float64) { s.zoom = layout.ClampZoom(z) }

// ZoomIn steps the zoom up.
func (s *Scene) ZoomIn() { s.zoom = s.params.ZoomIn(s.zoom) }

// ZoomOut steps the zoom down.
func (s *Scene) ZoomOut() { s.zoom = s.params.ZoomOut(s.zoom) }

// Scale returns the drawing scale of e at the applied zoom.
func (s *Scene) Scale(e store.Entity) float64 {
	if v, ok := s.drawScale.Get(e); ok {
		return v
	}
	return s.params.Scale(s.Level(e), s.appliedZoom)
}

// AppliedZoom is the zoom the current transforms were derived with. It
// catches up with [Scene.Zoom] on the next [Scene.Update].
func (s *Scene) AppliedZoom() float64 { return s.appliedZoom }

// =============================================================================
// Queries
// =============================================================================

// Alive reports whether e exists.
func (s *Scene) Alive(e store.Entity) bool { return s.st.Alive(e) }

// Kind returns the element kind of e, or 0 if e is dead.
func (s *Scene) Kind(e store.Entity) Kind {
	k, _ := s.kinds.Get(e)
	return k
}

func (s *Scene) isKind(e store.Entity, k Kind) bool { return s.Kind(e) == k }

// Info returns the name and description of e.
func (s *Scene) Info(e store.Entity) Info {
	info, _ := s.infos.Get(e)
	return info
}

// Level returns the nesting level of e.
func (s *Scene) Level(e store.Entity) int {
	lvl, _ := s.levels.Get(e)
	return lvl
}

// Transform returns the local transform of e in its parent's frame.
func (s *Scene) Transform(e store.Entity) geom.Transform {
	if t, ok := s.transforms.Get(e); ok {
		return t
	}
	return geom.Identity()
}

// InitialPosition returns the zoom-independent position of e.
func (s *Scene) InitialPosition(e store.Entity) (geom.Vec2, bool) { return s.initial.Get(e) }

// System returns the system component of e.
func (s *Scene) System(e store.Entity) (System, bool) { return s.systems.Get(e) }

// Aggregate returns the traffic summary of an interface subsystem.
func (s *Scene) Aggregate(e store.Entity) (Aggregate, bool) { return s.aggregates.Get(e) }

// Interface returns the interface component of e.
func (s *Scene) Interface(e store.Entity) (Interface, bool) { return s.interfaces.Get(e) }

// ExternalEntity returns the external entity component of e.
func (s *Scene) ExternalEntity(e store.Entity) (ExternalEntity, bool) { return s.externals.Get(e) }

// Flow returns the flow component of e.
func (s *Scene) Flow(e store.Entity) (Flow, bool) { return s.flows.Get(e) }

// Label returns the label component of e.
func (s *Scene) Label(e store.Entity) (Label, bool) { return s.labels.Get(e) }

// Helper returns the helper component of e.
func (s *Scene) Helper(e store.Entity) (Helper, bool) { return s.helpers.Get(e) }

// Terminal returns the terminal component of e.
func (s *Scene) Terminal(e store.Entity) (Terminal, bool) { return s.terminals.Get(e) }

// Incomplete reports whether the flow e carries the incomplete tag.
func (s *Scene) Incomplete(e store.Entity) bool { return s.st.HasTag(e, TagIncomplete) }

// Systems returns every system in creation order.
func (s *Scene) Systems() []store.Entity { return s.systems.Entities() }

// Flows returns every flow in creation order.
func (s *Scene) Flows() []store.Entity { return s.flows.Entities() }

// Interfaces returns every interface in creation order.
func (s *Scene) Interfaces() []store.Entity { return s.interfaces.Entities() }

// ExternalEntities returns every source and sink in creation order.
func (s *Scene) ExternalEntities() []store.Entity { return s.externals.Entities() }

// Labels returns every label in creation order.
func (s *Scene) Labels() []store.Entity { return s.labels.Entities() }

// Helpers returns every selection helper in creation order.
func (s *Scene) Helpers() []store.Entity { return s.helpers.Entities() }

// Terminals returns every terminal marker in creation order.
func (s *Scene) Terminals() []store.Entity { return s.terminals.Entities() }

// InterfacesOf returns the interfaces of sys in creation order.
func (s *Scene) InterfacesOf(sys store.Entity) []store.Entity {
	var out []store.Entity
	s.interfaces.Each(func(e store.Entity, i Interface) {
		if i.System == sys {
			out = append(out, e)
		}
	})
	return out
}

// SubsystemsOf returns the direct subsystems of sys in creation order,
// including interface subsystems.
func (s *Scene) SubsystemsOf(sys store.Entity) []store.Entity {
	var out []store.Entity
	s.systems.Each(func(e store.Entity, v System) {
		if v.Parent == sys {
			out = append(out, e)
		}
	})
	return out
}

// ExternalEntitiesOf returns the sources and sinks in the environment of sys.
func (s *Scene) ExternalEntitiesOf(sys store.Entity, ty ExternalType) []store.Entity {
	var out []store.Entity
	s.externals.Each(func(e store.Entity, x ExternalEntity) {
		if x.System == sys && x.Type == ty {
			out = append(out, e)
		}
	})
	return out
}

// InterfaceSubsystemOf returns the interface subsystem bound to iface.
func (s *Scene) InterfaceSubsystemOf(iface store.Entity) (store.Entity, bool) {
	for _, e := range s.systems.Entities() {
		if v, _ := s.systems.Get(e); v.Interface == iface {
			return e, true
		}
	}
	return store.None, false
}

// FlowsAt returns flows with an end on the given interface or external
// entity, in creation order.
func (s *Scene) FlowsAt(e store.Entity) []store.Entity {
	var out []store.Entity
	s.flows.Each(func(f store.Entity, v Flow) {
		if touches(v.Source, e) || touches(v.Sink, e) {
			out = append(out, f)
		}
	})
	return out
}

func touches(p Endpoint, e store.Entity) bool {
	return p.Interface == e || p.ExternalEntity == e
}

// Selected reports whether e is selected.
func (s *Scene) Selected(e store.Entity) bool {
	v, _ := s.selected.Get(e)
	return v
}

// Select marks e selected or not. Only interfaces, flows and external
// entities are selectable.
func (s *Scene) Select(e store.Entity, on bool) error {
	if err := s.st.Check(e); err != nil {
		return err
	}
	switch s.Kind(e) {
	case KindInterface, KindFlow, KindExternalEntity:
	case KindSystem, KindLabel, KindHelper, KindTerminal:
		return errors.New(errors.ErrCodeInvalidInput, "%s %s cannot be selected", s.Kind(e), e)
	}
	_, err := s.selected.Set(e, on)
	return err
}

// Selection returns the selected elements in creation order.
func (s *Scene) Selection() []store.Entity {
	var out []store.Entity
	s.selected.Each(func(e store.Entity, on bool) {
		if on {
			out = append(out, e)
		}
	})
	return out
}

// ClearSelection deselects everything.
func (s *Scene) ClearSelection() {
	for _, e := range s.selected.Entities() {
		_, _ = s.selected.Set(e, false)
	}
}

// =============================================================================
// Frames
// =============================================================================

// WorldTransform folds the transforms of e and all its ancestors.
func (s *Scene) WorldTransform(e store.Entity) geom.Transform {
	return s.TransformUntil(e, store.None)
}

// TransformUntil folds the transforms from just below ancestor down to e,
// giving e's transform in ancestor's frame. If ancestor is store.None or not
// an ancestor of e, the result is the world transform.
func (s *Scene) TransformUntil(e, ancestor store.Entity) geom.Transform {
	chain := []geom.Transform{s.Transform(e)}
	for p := s.st.Parent(e); p.Valid() && p != ancestor; p = s.st.Parent(p) {
		chain = append(chain, s.Transform(p))
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return geom.Fold(chain...)
}

// frameWorld returns the world transform of a frame entity, identity for
// the world frame.
func (s *Scene) frameWorld(frame store.Entity) geom.Transform {
	if !frame.Valid() {
		return geom.Identity()
	}
	return s.WorldTransform(frame)
}

// envFrame is the frame holding the environment of sys.
func (s *Scene) envFrame(sys store.Entity) store.Entity { return s.st.Parent(sys) }

// EnvironmentFrame returns the frame that holds the sources and sinks of
// sys; store.None for the System of Interest.
func (s *Scene) EnvironmentFrame(sys store.Entity) store.Entity { return s.envFrame(sys) }

// ToFrame converts a point in world space, as drawn at the applied zoom,
// to a zoom-independent point in frame. store.None is the world frame.
func (s *Scene) ToFrame(frame store.Entity, world geom.Vec2) geom.Vec2 {
	return s.frameWorld(frame).Unapply(world).Scale(1 / s.appliedZoom)
}

// Anchor returns where a flow end attached at p would sit and the unit
// direction it leaves in, zoom independent and in world coordinates.
func (s *Scene) Anchor(p Endpoint) (point, dir geom.Vec2, ok bool) {
	return s.anchor(p, store.None)
}

// place records a zoom-independent position and the matching transform.
func (s *Scene) place(e store.Entity, initial geom.Vec2, z, rotation float64) {
	if s.st.HasTag(e, TagScaleWithZoom) {
		_ = s.drawScale.Insert(e, s.params.Scale(s.Level(e), s.appliedZoom))
	}
	_ = s.initial.Insert(e, initial)
	_ = s.transforms.Insert(e, geom.Transform{
		Translation: initial.Scale(s.appliedZoom),
		Z:           z,
		Rotation:    rotation,
		Scale:       geom.V(1, 1),
	})
}

// interfaceInitial is the zoom-independent position of an interface at
// angle theta on a system of the given radius.
func interfaceInitial(radius, theta float64) geom.Vec2 {
	return geom.FromAngle(theta).Scale(radius)
}

func facing(from, to geom.Vec2) float64 {
	d := to.Sub(from)
	if d.IsZero() {
		return 0
	}
	return math.Atan2(d.Y, d.X)
}
