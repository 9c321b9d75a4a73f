package persist

import (
	"math"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Result is a loaded scene plus the problems that were skipped while
// building it.
type Result struct {
	Scene *scene.Scene
	// Warnings holds one error per record that could not be placed,
	// typically an [*errors.ReferenceError].
	Warnings []error
	// IDs maps every loaded document Id (by [document.Id.Key]) to its
	// entity.
	IDs map[string]store.Entity
}

// Load builds a new scene from wm. Records that reference unknown ids, or
// that the scene rejects, are skipped and reported in Result.Warnings; the
// call only fails when the document itself is malformed.
func Load(wm *document.WorldModel, opts ...scene.Option) (*Result, error) {
	if err := document.Validate(wm); err != nil {
		return nil, err
	}
	l := &loader{
		sc:    scene.NewEmpty(opts...),
		ids:   map[string]store.Entity{},
		peers: map[string]store.Entity{},
	}
	soi := &wm.SystemOfInterest
	root, err := l.sc.SpawnSystem(scene.SystemSpec{
		Info:        infoFromDoc(soi.Info),
		Boundary:    boundaryFromDoc(soi.Boundary),
		Environment: infoFromDoc(soi.Environment.Info),
		Complexity:  complexityFromDoc(soi.Complexity),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDocumentParse, err, "create system of interest")
	}
	l.ids[soi.Info.Id.Key()] = root
	l.members(root, soi)

	// Flows go last so that every endpoint exists regardless of where in
	// the document it was declared.
	wm.Walk(func(s *document.System, _ int) {
		if _, ok := l.ids[s.Info.Id.Key()]; !ok {
			return
		}
		for _, in := range s.ExternalInteractions {
			l.externalFlow(in)
		}
		for _, in := range s.InternalInteractions {
			l.internalFlow(in)
		}
	})

	l.sc.Update()
	if err := l.sc.Layout(); err != nil {
		return nil, err
	}
	for _, w := range l.warnings {
		l.sc.Logger().Warn("skipped record", "err", w)
	}
	return &Result{Scene: l.sc, Warnings: l.warnings, IDs: l.ids}, nil
}

type loader struct {
	sc  *scene.Scene
	ids map[string]store.Entity
	// peers maps a direction and peer Id to the interface that lists it
	peers    map[string]store.Entity
	warnings []error
}

func (l *loader) warn(err error) { l.warnings = append(l.warnings, err) }

func (l *loader) lookup(record string, id document.Id) (store.Entity, bool) {
	e, ok := l.ids[id.Key()]
	if !ok {
		l.warn(&errors.ReferenceError{Record: record, Id: id.String()})
	}
	return e, ok
}

// members creates the interfaces, external entities and components of the
// already spawned system sys.
func (l *loader) members(sys store.Entity, s *document.System) {
	ifaces := s.Boundary.Interfaces
	for i, rec := range ifaces {
		angle := 2 * math.Pi * float64(i) / float64(len(ifaces))
		if rec.Angle != nil {
			angle = *rec.Angle
		}
		ty, err := scene.ParseInterfaceType(string(rec.Ty))
		if err != nil {
			l.warn(errors.Wrap(errors.ErrCodeDocumentParse, err, "interface %s", rec.Info.Id))
			continue
		}
		e, err := l.sc.SpawnInterface(scene.InterfaceSpec{
			System:   sys,
			Angle:    angle,
			Type:     ty,
			Protocol: rec.Protocol,
			Info:     infoFromDoc(rec.Info),
		})
		if err != nil {
			l.warn(errors.Wrap(errors.GetCode(err), err, "interface %s", rec.Info.Id))
			continue
		}
		l.ids[rec.Info.Id.Key()] = e
		for _, id := range rec.ReceivesFrom {
			if _, dup := l.peers[peerKey(document.Inflow, id)]; !dup {
				l.peers[peerKey(document.Inflow, id)] = e
			}
		}
		for _, id := range rec.ExportsTo {
			if _, dup := l.peers[peerKey(document.Outflow, id)]; !dup {
				l.peers[peerKey(document.Outflow, id)] = e
			}
		}
	}

	externals := func(list []document.ExternalEntity, ty scene.ExternalType) {
		for _, rec := range list {
			spec := scene.ExternalEntitySpec{System: sys, Type: ty, Info: infoFromDoc(rec.Info)}
			if rec.Transform != nil {
				p := geom.V(rec.Transform.Translation[0], rec.Transform.Translation[1])
				spec.Position = &p
			}
			e, err := l.sc.SpawnExternalEntity(spec)
			if err != nil {
				l.warn(errors.Wrap(errors.GetCode(err), err, "%s", rec.Info.Id))
				continue
			}
			l.ids[rec.Info.Id.Key()] = e
		}
	}
	externals(s.Environment.Sources, scene.Source)
	externals(s.Environment.Sinks, scene.Sink)

	for i := range s.Components {
		c := &s.Components[i]
		e, err := l.component(sys, c)
		if err != nil {
			l.warn(err)
			continue
		}
		l.ids[c.Info.Id.Key()] = e
		if err := l.sc.SetEnvironment(e, infoFromDoc(c.Environment.Info)); err != nil {
			l.warn(err)
		}
		l.members(e, c)
	}
}

func (l *loader) component(parent store.Entity, c *document.System) (store.Entity, error) {
	if c.Parent.Ty == document.KindInterface {
		iface, ok := l.ids[c.Parent.Key()]
		if !ok {
			return store.None, &errors.ReferenceError{Record: "component " + c.Info.Id.String(), Id: c.Parent.String()}
		}
		e, err := l.sc.SpawnInterfaceSubsystem(scene.InterfaceSubsystemSpec{
			Interface: iface,
			Info:      infoFromDoc(c.Info),
			// drawn below the interface, in its frame
			ChildOfInterface: c.Transform != nil && c.Transform.Translation[2] < 0,
			Complexity:       complexityFromDoc(c.Complexity),
		})
		if err != nil {
			return store.None, err
		}
		return e, l.sc.SetBoundary(e, boundaryFromDoc(c.Boundary))
	}

	spec := scene.SubsystemSpec{
		Parent:     parent,
		Info:       infoFromDoc(c.Info),
		Boundary:   boundaryFromDoc(c.Boundary),
		Complexity: complexityFromDoc(c.Complexity),
	}
	if c.Transform != nil {
		p := geom.V(c.Transform.Translation[0], c.Transform.Translation[1])
		spec.Position = &p
	}
	return l.sc.SpawnSubsystem(spec)
}

// externalFlow creates a flow between an external entity and an
// interface. When the record does not name the interface, the first
// interface listing the entity in receives_from or exports_to is used.
func (l *loader) externalFlow(in document.Interaction) {
	record := "interaction " + in.Info.Id.String()
	x, ok := l.lookup(record, in.ExternalEntity)
	if !ok {
		return
	}
	var iface store.Entity
	if in.Interface != nil {
		if iface, ok = l.lookup(record, *in.Interface); !ok {
			return
		}
	} else if iface, ok = l.interfaceFor(in.ExternalEntity, in.Ty.Direction); !ok {
		l.warn(errors.New(errors.ErrCodeDocumentReference, "%s: no interface connects %s", record, in.ExternalEntity))
		return
	}

	spec := l.flowSpec(in)
	if in.Ty.Direction == document.Inflow {
		spec.Source, spec.Sink = scene.AtExternal(x), scene.AtInterface(store.None, iface)
	} else {
		spec.Source, spec.Sink = scene.AtInterface(store.None, iface), scene.AtExternal(x)
	}
	l.spawnFlow(in, spec)
}

func (l *loader) internalFlow(in document.Interaction) {
	record := "interaction " + in.Info.Id.String()
	if in.Interface == nil {
		l.warn(errors.New(errors.ErrCodeDocumentReference, "%s: internal interaction has no source interface", record))
		return
	}
	src, ok := l.lookup(record, *in.Interface)
	if !ok {
		return
	}
	snk, ok := l.lookup(record, in.ExternalEntity)
	if !ok {
		return
	}
	spec := l.flowSpec(in)
	spec.Source, spec.Sink = scene.AtInterface(store.None, src), scene.AtInterface(store.None, snk)
	l.spawnFlow(in, spec)
}

func (l *loader) spawnFlow(in document.Interaction, spec scene.FlowSpec) {
	e, err := l.sc.SpawnFlow(spec)
	if err != nil {
		l.warn(errors.Wrap(errors.GetCode(err), err, "interaction %s", in.Info.Id))
		return
	}
	l.ids[in.Info.Id.Key()] = e
}

// interfaceFor returns the first interface whose receives_from (inflow)
// or exports_to (outflow) names ext.
func (l *loader) interfaceFor(ext document.Id, dir document.Direction) (store.Entity, bool) {
	e, ok := l.peers[peerKey(dir, ext)]
	return e, ok
}

func peerKey(dir document.Direction, id document.Id) string {
	return string(dir) + ":" + id.Key()
}

func (l *loader) flowSpec(in document.Interaction) scene.FlowSpec {
	spec := scene.FlowSpec{Info: infoFromDoc(in.Info), Amount: 1}
	if t, err := scene.ParseSubstanceType(string(in.Substance.Ty)); err == nil {
		spec.SubstanceType = t
	}
	if in.Substance.SubType != nil {
		spec.SubType = *in.Substance.SubType
	}
	if u, err := scene.ParseUsability(string(in.Ty.Usability)); err == nil {
		spec.Usability = u
	}
	spec.IsUseful = spec.Usability.Useful()
	if in.Amount != nil {
		spec.Amount = *in.Amount
	}
	if in.IsUseful != nil {
		spec.IsUseful = *in.IsUseful
	}
	return spec
}

func infoFromDoc(i document.Info) scene.Info {
	return scene.Info{Name: i.Name, Description: i.Description}
}

func boundaryFromDoc(b document.Boundary) scene.Boundary {
	return scene.Boundary{
		Info:                infoFromDoc(b.Info),
		Porosity:            b.Porosity,
		PerceptiveFuzziness: b.PerceptiveFuzziness,
	}
}

func complexityFromDoc(c document.Complexity) scene.Complexity {
	switch c.Kind {
	case document.Atomic:
		return scene.Complexity{Kind: scene.Atomic}
	case document.Multiset:
		return scene.Complexity{Kind: scene.Multiset}
	}
	return scene.Complexity{Kind: scene.Complex, Adaptable: c.Adaptable, Evolveable: c.Evolveable}
}
