package persist

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Save snapshots sc into a document. The scene is not modified; callers
// normally run [scene.Scene.Update] first so derived state is current.
func Save(sc *scene.Scene) (*document.WorldModel, error) {
	s := &saver{
		sc:       sc,
		ids:      map[store.Entity]document.Id{},
		external: map[store.Entity][]store.Entity{},
		internal: map[store.Entity][]store.Entity{},
	}
	s.assign(sc.Root(), []int{0})
	s.assignFlows()

	wm := &document.WorldModel{SystemOfInterest: s.system(sc.Root())}
	document.Normalize(wm)
	return wm, nil
}

type saver struct {
	sc  *scene.Scene
	ids map[store.Entity]document.Id
	// flows owned by each system, split by record list
	external map[store.Entity][]store.Entity
	internal map[store.Entity][]store.Entity
}

// envIndices is the environment prefix of a system: [-1] followed by the
// system's indices without the leading 0.
func envIndices(indices []int) []int {
	return append([]int{-1}, indices[1:]...)
}

// assign gives ids to sys and everything that hangs off it, recursively.
func (s *saver) assign(sys store.Entity, indices []int) {
	id := document.NewId(document.KindSystem, indices...)
	s.ids[sys] = id

	for i, e := range s.sc.InterfacesOf(sys) {
		s.ids[e] = id.Child(document.KindInterface, i)
	}
	env := document.NewId(document.KindEnvironment, envIndices(indices)...)
	for i, e := range s.sc.ExternalEntitiesOf(sys, scene.Source) {
		s.ids[e] = env.Child(document.KindSource, i)
	}
	for i, e := range s.sc.ExternalEntitiesOf(sys, scene.Sink) {
		s.ids[e] = env.Child(document.KindSink, i)
	}
	for k, c := range s.sc.SubsystemsOf(sys) {
		s.assign(c, append(append([]int{}, indices...), k))
	}
}

// assignFlows distributes complete flows to their owning systems and gives
// them ids: external flows belong to the system whose environment holds
// the external entity, internal flows to the system they are drawn in.
func (s *saver) assignFlows() {
	for _, e := range s.sc.Flows() {
		f, _ := s.sc.Flow(e)
		if !f.Complete() {
			s.sc.Logger().Debug("skipping incomplete flow", "flow", e)
			continue
		}
		if x := externalEnd(f); x.Valid() {
			ext, _ := s.sc.ExternalEntity(x)
			s.external[ext.System] = append(s.external[ext.System], e)
			continue
		}
		owner := f.Frame
		if !owner.Valid() {
			owner = s.sc.Root()
		}
		s.internal[owner] = append(s.internal[owner], e)
	}
	for sys, flows := range s.external {
		env := envIndices(s.ids[sys].Indices)
		for k, f := range flows {
			s.ids[f] = document.NewId(document.KindFlow, append(env, k)...)
		}
	}
	for sys, flows := range s.internal {
		// internal flows continue the numbering after the components
		base := len(s.sc.SubsystemsOf(sys))
		for k, f := range flows {
			s.ids[f] = s.ids[sys].Child(document.KindFlow, base+k)
		}
	}
}

func externalEnd(f scene.Flow) store.Entity {
	if f.Source.ExternalEntity.Valid() {
		return f.Source.ExternalEntity
	}
	return f.Sink.ExternalEntity
}

func (s *saver) info(e store.Entity, level int) document.Info {
	info := s.sc.Info(e)
	return document.Info{Id: s.ids[e], Level: level, Name: info.Name, Description: info.Description}
}

func (s *saver) system(e store.Entity) document.System {
	sys, _ := s.sc.System(e)
	level := s.sc.Level(e)
	id := s.ids[e]

	out := document.System{
		Info:       s.info(e, level),
		Complexity: complexityToDoc(sys.Complexity),
		Environment: document.Environment{
			Info: document.Info{
				Id:          document.NewId(document.KindEnvironment, envIndices(id.Indices)...),
				Level:       level - 1,
				Name:        sys.Environment.Name,
				Description: sys.Environment.Description,
			},
			Sources: []document.ExternalEntity{},
			Sinks:   []document.ExternalEntity{},
		},
		Boundary: document.Boundary{
			Info: document.Info{
				Id:          document.NewId(document.KindBoundary, id.Indices...),
				Level:       level,
				Name:        sys.Boundary.Name,
				Description: sys.Boundary.Description,
			},
			Porosity:            sys.Boundary.Porosity,
			PerceptiveFuzziness: sys.Boundary.PerceptiveFuzziness,
			Interfaces:          []document.Interface{},
		},
		InternalInteractions: []document.Interaction{},
		ExternalInteractions: []document.Interaction{},
		Components:           []document.System{},
	}
	switch {
	case sys.IsRoot():
	case sys.IsInterfaceSubsystem():
		parent := s.ids[sys.Interface]
		out.Parent = &parent
		out.Transform = s.transform(e)
	default:
		parent := s.ids[sys.Parent]
		out.Parent = &parent
		out.Transform = s.transform(e)
	}

	for _, i := range s.sc.InterfacesOf(e) {
		out.Boundary.Interfaces = append(out.Boundary.Interfaces, s.iface(i, level+1))
	}
	for _, x := range s.sc.ExternalEntitiesOf(e, scene.Source) {
		out.Environment.Sources = append(out.Environment.Sources, s.externalEntity(x, level-1))
	}
	for _, x := range s.sc.ExternalEntitiesOf(e, scene.Sink) {
		out.Environment.Sinks = append(out.Environment.Sinks, s.externalEntity(x, level-1))
	}
	for _, f := range s.external[e] {
		out.ExternalInteractions = append(out.ExternalInteractions, s.interaction(f, level-1))
	}
	for _, f := range s.internal[e] {
		out.InternalInteractions = append(out.InternalInteractions, s.interaction(f, level+1))
	}
	for _, c := range s.sc.SubsystemsOf(e) {
		out.Components = append(out.Components, s.system(c))
	}
	return out
}

func (s *saver) iface(e store.Entity, level int) document.Interface {
	iface, _ := s.sc.Interface(e)
	angle := iface.Angle
	out := document.Interface{
		Info:         s.info(e, level),
		Protocol:     iface.Protocol,
		Ty:           document.InterfaceType(iface.Type.String()),
		ReceivesFrom: []document.Id{},
		ExportsTo:    []document.Id{},
		Angle:        &angle,
	}
	for _, f := range s.sc.FlowsAt(e) {
		if _, saved := s.ids[f]; !saved {
			continue
		}
		flow, _ := s.sc.Flow(f)
		if flow.Sink.Interface == e {
			out.ReceivesFrom = append(out.ReceivesFrom, s.peer(flow.Source))
		}
		if flow.Source.Interface == e {
			out.ExportsTo = append(out.ExportsTo, s.peer(flow.Sink))
		}
	}
	return out
}

func (s *saver) peer(p scene.Endpoint) document.Id {
	if p.ExternalEntity.Valid() {
		return s.ids[p.ExternalEntity]
	}
	return s.ids[p.Interface]
}

func (s *saver) externalEntity(e store.Entity, level int) document.ExternalEntity {
	x, _ := s.sc.ExternalEntity(e)
	out := document.ExternalEntity{
		Info:         s.info(e, level),
		Ty:           document.ExternalType(x.Type.String()),
		Interactions: []document.Id{},
		Transform:    s.transform(e),
	}
	for _, f := range s.sc.FlowsAt(e) {
		if id, saved := s.ids[f]; saved {
			out.Interactions = append(out.Interactions, id)
		}
	}
	return out
}

func (s *saver) interaction(e store.Entity, level int) document.Interaction {
	f, _ := s.sc.Flow(e)
	out := document.Interaction{
		Info:      s.info(e, level),
		Substance: document.Substance{Ty: document.SubstanceType(f.SubstanceType.String())},
	}
	if f.SubType != "" {
		sub := f.SubType
		out.Substance.SubType = &sub
	}
	amount, useful := f.Amount, f.IsUseful
	out.Amount, out.IsUseful = &amount, &useful

	usability := document.Usability(f.Usability.String())
	var iface store.Entity
	switch {
	case f.Source.ExternalEntity.Valid():
		out.Ty = document.InteractionType{Direction: document.Inflow, Usability: usability}
		out.ExternalEntity = s.ids[f.Source.ExternalEntity]
		iface = f.Sink.Interface
	case f.Sink.ExternalEntity.Valid():
		out.Ty = document.InteractionType{Direction: document.Outflow, Usability: usability}
		out.ExternalEntity = s.ids[f.Sink.ExternalEntity]
		iface = f.Source.Interface
	default:
		out.Ty = document.InteractionType{Direction: document.Outflow, Usability: usability}
		out.ExternalEntity = s.ids[f.Sink.Interface]
		iface = f.Source.Interface
	}
	id := s.ids[iface]
	out.Interface = &id
	return out
}

func (s *saver) transform(e store.Entity) *document.Transform {
	p, _ := s.sc.InitialPosition(e)
	t := s.sc.Transform(e)
	return transformToDoc(p, t)
}

func transformToDoc(p geom.Vec2, t geom.Transform) *document.Transform {
	return &document.Transform{
		Translation: [3]float64{p.X, p.Y, t.Z},
		Rotation:    t.Rotation,
		Scale:       [2]float64{1, 1},
	}
}

func complexityToDoc(c scene.Complexity) document.Complexity {
	switch c.Kind {
	case scene.Atomic:
		return document.Complexity{Kind: document.Atomic}
	case scene.Complex:
		return document.Complexity{Kind: document.Complex, Adaptable: c.Adaptable, Evolveable: c.Evolveable}
	case scene.Multiset:
		return document.Complexity{Kind: document.Multiset}
	}
	return document.Complexity{Kind: document.Atomic}
}
