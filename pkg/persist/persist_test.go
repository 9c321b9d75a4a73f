package persist

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

func quiet() scene.Option { return scene.WithLogger(log.New(io.Discard)) }

// flowBetween spawns a flow on sys through a new interface and a new
// external entity. Inflows come from a source into an Import interface,
// outflows leave an Export interface for a sink.
func flowBetween(t *testing.T, sc *scene.Scene, sys store.Entity, theta float64, inflow bool, spec scene.FlowSpec) (iface, ext, flow store.Entity) {
	t.Helper()
	var err error
	if flow, err = sc.SpawnFlow(spec); err != nil {
		t.Fatalf("SpawnFlow: %v", err)
	}
	ifaceTy, extTy := scene.Import, scene.Source
	if !inflow {
		ifaceTy, extTy = scene.Export, scene.Sink
	}
	if iface, err = sc.SpawnInterface(scene.InterfaceSpec{System: sys, Angle: theta, Type: ifaceTy, Flow: flow}); err != nil {
		t.Fatalf("SpawnInterface: %v", err)
	}
	if ext, err = sc.SpawnExternalEntity(scene.ExternalEntitySpec{System: sys, Type: extTy, Flow: flow}); err != nil {
		t.Fatalf("SpawnExternalEntity: %v", err)
	}
	return iface, ext, flow
}

// minimalLoop is the root with one Matter inflow at θ=π.
func minimalLoop(t *testing.T) *scene.Scene {
	t.Helper()
	sc := scene.New("Plant", quiet())
	flowBetween(t, sc, sc.Root(), math.Pi, true, scene.FlowSpec{
		SubstanceType: scene.Matter, Usability: scene.Product, Amount: 1, IsUseful: true,
	})
	sc.Update()
	if err := sc.Layout(); err != nil {
		t.Fatal(err)
	}
	return sc
}

// crossBoundary extends minimalLoop with an Energy waste outflow at θ=0.
func crossBoundary(t *testing.T) *scene.Scene {
	t.Helper()
	sc := minimalLoop(t)
	flowBetween(t, sc, sc.Root(), 0, false, scene.FlowSpec{
		SubstanceType: scene.Energy, Usability: scene.Waste, Amount: 2.5,
	})
	sc.Update()
	return sc
}

// nested adds a subsystem that takes over the inflow, an interface
// subsystem behind the export and an internal flow into a Hybrid interface.
func nested(t *testing.T) *scene.Scene {
	t.Helper()
	sc := crossBoundary(t)
	root := sc.Root()
	flows := sc.Flows()

	pos := geom.V(-120, 0)
	sub, err := sc.SpawnSubsystem(scene.SubsystemSpec{
		Parent:     root,
		Info:       scene.Info{Name: "Boiler"},
		Boundary:   scene.Boundary{Porosity: 0.5},
		Complexity: scene.Complexity{Kind: scene.Atomic},
		Position:   &pos,
		Inflows:    flows[:1],
	})
	if err != nil {
		t.Fatalf("SpawnSubsystem: %v", err)
	}
	if err := sc.SetEnvironment(sub, scene.Info{Name: "Plant floor"}); err != nil {
		t.Fatal(err)
	}

	exports := sc.InterfacesOf(root)
	if _, err := sc.SpawnInterfaceSubsystem(scene.InterfaceSubsystemSpec{
		Interface:        exports[len(exports)-1],
		Info:             scene.Info{Name: "Exhaust"},
		ChildOfInterface: true,
		Complexity:       scene.DefaultComplexity(),
	}); err != nil {
		t.Fatalf("SpawnInterfaceSubsystem: %v", err)
	}

	steam, err := sc.SpawnFlow(scene.FlowSpec{SubstanceType: scene.Energy, SubType: "steam", Usability: scene.Product, Amount: 3, IsUseful: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sc.SpawnInterface(scene.InterfaceSpec{System: sub, Angle: 0, Type: scene.Export, Flow: steam}); err != nil {
		t.Fatal(err)
	}
	if _, err := sc.SpawnInterface(scene.InterfaceSpec{System: root, Angle: math.Pi / 2, Type: scene.Hybrid, Protocol: "pipe", Flow: steam}); err != nil {
		t.Fatal(err)
	}
	sc.Update()
	if err := sc.Layout(); err != nil {
		t.Fatal(err)
	}
	if err := sc.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	return sc
}

func mustSave(t *testing.T, sc *scene.Scene) *document.WorldModel {
	t.Helper()
	wm, err := Save(sc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return wm
}

func marshal(t *testing.T, wm *document.WorldModel) []byte {
	t.Helper()
	data, err := document.Marshal(wm)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func TestSaveMinimalLoop(t *testing.T) {
	wm := mustSave(t, minimalLoop(t))
	soi := wm.SystemOfInterest

	if n := len(soi.ExternalInteractions); n != 1 {
		t.Fatalf("external_interactions = %d, want 1", n)
	}
	in := soi.ExternalInteractions[0]
	if in.Ty.Direction != document.Inflow || in.Ty.Usability != document.Product {
		t.Errorf("interaction ty = %+v", in.Ty)
	}
	if in.Substance.Ty != document.Matter {
		t.Errorf("substance = %v", in.Substance.Ty)
	}
	if len(soi.Environment.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(soi.Environment.Sources))
	}
	if len(soi.Boundary.Interfaces) != 1 {
		t.Fatalf("interfaces = %d, want 1", len(soi.Boundary.Interfaces))
	}
	src := soi.Environment.Sources[0].Info.Id
	iface := soi.Boundary.Interfaces[0]
	if len(iface.ReceivesFrom) != 1 || !iface.ReceivesFrom[0].Equal(src) {
		t.Errorf("receives_from = %v, want [%s]", iface.ReceivesFrom, src)
	}
	if iface.Ty != document.Import || iface.Angle == nil || *iface.Angle != math.Pi {
		t.Errorf("interface = %+v", iface)
	}
	if in.Info.Id.String() != "Flow[-1,0]" || src.String() != "Source[-1,0]" || iface.Info.Id.String() != "Interface[0,0]" {
		t.Errorf("ids = %s %s %s", in.Info.Id, src, iface.Info.Id)
	}
	if in.Info.Level != -1 || iface.Info.Level != 1 {
		t.Errorf("levels = %d %d", in.Info.Level, iface.Info.Level)
	}
	if err := document.Validate(wm); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *scene.Scene
	}{
		{"MinimalLoop", minimalLoop},
		{"CrossBoundary", crossBoundary},
		{"Nested", nested},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := tt.build(t)
			first := mustSave(t, orig)

			res, err := Load(first, quiet())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(res.Warnings) != 0 {
				t.Errorf("warnings: %v", res.Warnings)
			}
			loaded := res.Scene
			if err := loaded.Check(); err != nil {
				t.Errorf("Check after load: %v", err)
			}

			counts := func(sc *scene.Scene) [4]int {
				return [4]int{len(sc.Systems()), len(sc.Interfaces()), len(sc.ExternalEntities()), len(sc.Flows())}
			}
			if a, b := counts(orig), counts(loaded); a != b {
				t.Errorf("element counts = %v, want %v", b, a)
			}
			for _, f := range loaded.Flows() {
				if loaded.Incomplete(f) {
					t.Errorf("flow %s loaded incomplete", f)
				}
			}

			// Saving the loaded scene reproduces the document.
			second := mustSave(t, loaded)
			if a, b := marshal(t, first), marshal(t, second); !bytes.Equal(a, b) {
				t.Errorf("documents differ after round trip\nfirst:\n%s\nsecond:\n%s", a, b)
			}
		})
	}
}

func TestRoundTripEndpoints(t *testing.T) {
	orig := crossBoundary(t)
	res, err := Load(mustSave(t, orig), quiet())
	if err != nil {
		t.Fatal(err)
	}
	sc := res.Scene
	for i, e := range sc.Flows() {
		want, _ := orig.Flow(orig.Flows()[i])
		got, _ := sc.Flow(e)
		if got.SubstanceType != want.SubstanceType || got.Usability != want.Usability || got.Amount != want.Amount || got.IsUseful != want.IsUseful {
			t.Errorf("flow %d attributes = %+v, want %+v", i, got.Attributes(), want.Attributes())
		}
		if got.Source.ExternalEntity.Valid() != want.Source.ExternalEntity.Valid() ||
			got.Sink.ExternalEntity.Valid() != want.Sink.ExternalEntity.Valid() {
			t.Errorf("flow %d endpoint kinds differ", i)
		}
		if !got.Curve.End.ApproxEqual(want.Curve.End, 1e-6) || !got.Curve.Start.ApproxEqual(want.Curve.Start, 1e-6) {
			t.Errorf("flow %d curve = %+v, want %+v", i, got.Curve, want.Curve)
		}
	}
}

func TestSaveNested(t *testing.T) {
	wm := mustSave(t, nested(t))
	soi := wm.SystemOfInterest

	if len(soi.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(soi.Components))
	}
	sub := soi.Components[0]
	if sub.Parent == nil || !sub.Parent.Equal(soi.Info.Id) || sub.Environment.Info.Name != "Plant floor" {
		t.Errorf("subsystem = %+v", sub.Info)
	}
	if sub.Environment.Info.Id.String() != "Environment[-1,0]" {
		t.Errorf("subsystem environment id = %s", sub.Environment.Info.Id)
	}
	exhaust := soi.Components[1]
	if exhaust.Parent == nil || exhaust.Parent.Ty != document.KindInterface {
		t.Errorf("interface subsystem parent = %v", exhaust.Parent)
	}
	if exhaust.Transform == nil || exhaust.Transform.Translation[2] >= 0 {
		t.Errorf("child-of-interface depth = %+v", exhaust.Transform)
	}

	if len(soi.InternalInteractions) != 1 {
		t.Fatalf("internal_interactions = %d, want 1", len(soi.InternalInteractions))
	}
	in := soi.InternalInteractions[0]
	if in.Interface == nil || in.Interface.Ty != document.KindInterface || in.ExternalEntity.Ty != document.KindInterface {
		t.Errorf("internal interaction ends = %v -> %v", in.Interface, in.ExternalEntity)
	}
	if in.Substance.SubType == nil || *in.Substance.SubType != "steam" {
		t.Errorf("sub_type = %v", in.Substance.SubType)
	}

	// the inflow was redirected onto the subsystem
	ext := soi.ExternalInteractions[0]
	if ext.Interface == nil || len(ext.Interface.Indices) != 3 {
		t.Errorf("redirected inflow interface = %v", ext.Interface)
	}
}

func TestSaveSkipsIncompleteFlows(t *testing.T) {
	sc := minimalLoop(t)
	if _, err := sc.SpawnFlow(scene.FlowSpec{Amount: 1}); err != nil {
		t.Fatal(err)
	}
	sc.Update()
	wm := mustSave(t, sc)
	if n := document.Count(wm).Interactions; n != 1 {
		t.Errorf("interactions = %d, want 1", n)
	}
}

func TestLoadSkipsBrokenReferences(t *testing.T) {
	wm := mustSave(t, crossBoundary(t))
	wm.SystemOfInterest.ExternalInteractions[0].ExternalEntity = document.NewId(document.KindSource, -1, 9)

	res, err := Load(wm, quiet())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", res.Warnings)
	}
	if !isReference(res.Warnings[0]) {
		t.Errorf("warning = %T %v", res.Warnings[0], res.Warnings[0])
	}
	if n := len(res.Scene.Flows()); n != 1 {
		t.Errorf("flows = %d, want 1", n)
	}
	if n := len(res.Scene.ExternalEntities()); n != 2 {
		t.Errorf("external entities = %d, want 2", n)
	}
}

func isReference(err error) bool {
	_, ok := err.(*errors.ReferenceError)
	return ok
}

func TestLoadFallsBackToReceivesFrom(t *testing.T) {
	wm := mustSave(t, minimalLoop(t))
	wm.SystemOfInterest.ExternalInteractions[0].Interface = nil

	res, err := Load(wm, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 0 || len(res.Scene.Flows()) != 1 {
		t.Errorf("warnings = %v, flows = %d", res.Warnings, len(res.Scene.Flows()))
	}
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	wm := mustSave(t, minimalLoop(t))
	wm.SystemOfInterest.Boundary.Porosity = 2
	if _, err := Load(wm, quiet()); !errors.Is(err, errors.ErrCodeDocumentParse) {
		t.Errorf("Load = %v, want DOCUMENT_PARSE", err)
	}
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world_model.json")
	sc := nested(t)
	if err := SaveFile(sc, path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	res, err := LoadFile(path, quiet())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got, want := len(res.Scene.Flows()), len(sc.Flows()); got != want {
		t.Errorf("flows = %d, want %d", got, want)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "none.json"), quiet()); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("LoadFile missing = %v, want IO_FAILURE", err)
	}
}
