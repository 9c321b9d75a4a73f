package editor

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/fileimport"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/observability"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

func quiet() *log.Logger { return log.New(io.Discard) }

func newEditor(t *testing.T, opts ...Option) *Editor {
	t.Helper()
	sc := scene.New("Plant", scene.WithLogger(quiet()))
	e := New(sc, append([]Option{WithLogger(quiet())}, opts...)...)
	tick(t, e)
	return e
}

func tick(t *testing.T, e *Editor) {
	t.Helper()
	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}

// addInflow builds source -> import interface at theta on the root.
func addInflow(t *testing.T, sc *scene.Scene, theta float64) (iface, src, flow store.Entity) {
	t.Helper()
	var err error
	if flow, err = sc.SpawnFlow(scene.FlowSpec{SubstanceType: scene.Matter, Usability: scene.Resource, Amount: 1, IsUseful: true}); err != nil {
		t.Fatal(err)
	}
	if iface, err = sc.SpawnInterface(scene.InterfaceSpec{System: sc.Root(), Angle: theta, Type: scene.Import, Flow: flow}); err != nil {
		t.Fatal(err)
	}
	if src, err = sc.SpawnExternalEntity(scene.ExternalEntitySpec{System: sc.Root(), Type: scene.Source, Flow: flow}); err != nil {
		t.Fatal(err)
	}
	return iface, src, flow
}

func TestKeyboardZoom(t *testing.T) {
	e := newEditor(t)
	step := e.Scene().Params().ZoomStep

	e.Push(KeyPress{Key: KeyZoomIn})
	tick(t, e)
	if got := e.Scene().AppliedZoom(); math.Abs(got-step) > 1e-9 {
		t.Errorf("zoom after + = %v, want %v", got, step)
	}

	e.Push(KeyPress{Key: KeyZoomOut})
	e.Push(KeyPress{Key: KeyZoomOut})
	tick(t, e)
	if got := e.Scene().AppliedZoom(); math.Abs(got-1/step) > 1e-9 {
		t.Errorf("zoom after - - = %v, want %v", got, 1/step)
	}
	if e.Dirty() {
		t.Error("zooming should not dirty the document")
	}
}

func TestToolSpawnsInterface(t *testing.T) {
	tests := []struct {
		name string
		tool ToolKind
		want scene.InterfaceType
	}{
		{"Import", ToolImportInterface, scene.Import},
		{"Export", ToolExportInterface, scene.Export},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEditor(t)
			e.Push(SelectTool{Tool: Tool{Kind: tt.tool}})
			e.Push(PointerDown{Pos: geom.V(0, 250)})
			tick(t, e)

			ifaces := e.Scene().Interfaces()
			if len(ifaces) != 1 {
				t.Fatalf("interfaces = %d, want 1", len(ifaces))
			}
			v, _ := e.Scene().Interface(ifaces[0])
			if v.Type != tt.want {
				t.Errorf("type = %s, want %s", v.Type, tt.want)
			}
			if math.Abs(v.Angle-math.Pi/2) > 1e-9 {
				t.Errorf("angle = %v, want pi/2", v.Angle)
			}
			if e.Tool().Armed() {
				t.Error("tool should disarm after spawning")
			}
			if !e.Dirty() {
				t.Error("spawning should dirty the document")
			}
		})
	}
}

func TestInflowThenSource(t *testing.T) {
	e := newEditor(t)
	sc := e.Scene()
	e.Do(SpawnInterface(sc.Root(), geom.V(-1, 0), scene.Import))
	tick(t, e)
	iface := sc.Interfaces()[0]

	e.Push(SelectTool{Tool: Tool{Kind: ToolInflow}})
	e.Push(PointerDown{Target: iface})
	tick(t, e)

	flows := sc.Flows()
	if len(flows) != 1 {
		t.Fatalf("flows = %d, want 1", len(flows))
	}
	flow := flows[0]
	f, _ := sc.Flow(flow)
	if f.Sink.Interface != iface {
		t.Errorf("sink = %+v, want interface %s", f.Sink, iface)
	}
	if !sc.Incomplete(flow) {
		t.Error("flow without source should be incomplete")
	}

	e.Push(SelectTool{Tool: Tool{Kind: ToolSource}})
	e.Push(PointerDown{Target: flow, Pos: geom.V(-600, 0)})
	tick(t, e)

	if sc.Incomplete(flow) {
		t.Error("flow should be complete once the source exists")
	}
	exts := sc.ExternalEntitiesOf(sc.Root(), scene.Source)
	if len(exts) != 1 {
		t.Fatalf("sources = %d, want 1", len(exts))
	}
	if p, _ := sc.InitialPosition(exts[0]); !p.ApproxEqual(geom.V(-600, 0), 1e-9) {
		t.Errorf("source at %v, want (-600, 0)", p)
	}
	if err := sc.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestTerminalAttachesToSink(t *testing.T) {
	e := newEditor(t)
	sc := e.Scene()
	e.Do(SpawnInterface(sc.Root(), geom.V(1, 0), scene.Export))
	tick(t, e)
	iface := sc.Interfaces()[0]
	pos := geom.V(700, 0)
	sink, err := sc.SpawnExternalEntity(scene.ExternalEntitySpec{System: sc.Root(), Type: scene.Sink, Position: &pos})
	if err != nil {
		t.Fatal(err)
	}

	e.Push(SelectTool{Tool: Tool{Kind: ToolOutflow}})
	e.Push(PointerDown{Target: iface})
	tick(t, e)

	flow := sc.Flows()[0]
	terms := sc.Terminals()
	if len(terms) != 1 {
		t.Fatalf("terminals = %d, want 1", len(terms))
	}

	e.Push(PointerDown{Target: terms[0]})
	tick(t, e)
	if got := e.Tool(); got.Kind != ToolFlowTerminalEnd || got.Flow != flow {
		t.Fatalf("tool = %+v, want flow-end on %s", got, flow)
	}

	e.Push(PointerDown{Target: sink})
	tick(t, e)
	f, _ := sc.Flow(flow)
	if f.Sink.ExternalEntity != sink {
		t.Errorf("sink = %+v, want %s", f.Sink, sink)
	}
	if len(sc.Terminals()) != 0 {
		t.Error("complete flow should have no terminals")
	}
	if err := sc.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestTerminalMovesOverEmptyCanvas(t *testing.T) {
	e := newEditor(t)
	sc := e.Scene()
	e.Do(SpawnInterface(sc.Root(), geom.V(1, 0), scene.Export))
	tick(t, e)
	e.Push(SelectTool{Tool: Tool{Kind: ToolOutflow}})
	e.Push(PointerDown{Target: sc.Interfaces()[0]})
	tick(t, e)

	flow := sc.Flows()[0]
	e.Push(PointerDown{Target: sc.Terminals()[0]})
	e.Push(PointerDown{Pos: geom.V(900, 900)})
	tick(t, e)

	f, _ := sc.Flow(flow)
	want := sc.ToFrame(f.Frame, geom.V(900, 900))
	if !f.Curve.End.ApproxEqual(want, 1e-9) {
		t.Errorf("end = %v, want %v", f.Curve.End, want)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  func(sc *scene.Scene) Command
	}{
		{"UnknownEntity", func(*scene.Scene) Command { return Delete(store.Entity(9999)) }},
		{"MoveRoot", func(sc *scene.Scene) Command { return Move(sc.Root(), geom.V(10, 10)) }},
		{"InflowOnSystem", func(sc *scene.Scene) Command { return SpawnFlow(sc.Root(), scene.FinishEnd) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEditor(t)
			before := e.Scene().Store().Len()
			e.Do(tt.cmd(e.Scene()))
			tick(t, e)
			if e.Status() == "" {
				t.Error("failed command should set the status line")
			}
			if got := e.Scene().Store().Len(); got != before {
				t.Errorf("entities = %d, want %d", got, before)
			}
			if e.Dirty() {
				t.Error("failed command should not dirty the document")
			}
		})
	}
}

func TestInflowRollsBackOnExport(t *testing.T) {
	e := newEditor(t)
	sc := e.Scene()
	e.Do(SpawnInterface(sc.Root(), geom.V(1, 0), scene.Export))
	tick(t, e)
	before := sc.Store().Now()

	e.Push(SelectTool{Tool: Tool{Kind: ToolInflow}})
	e.Push(PointerDown{Target: sc.Interfaces()[0]})
	tick(t, e)

	if n := len(sc.Flows()); n != 0 {
		t.Errorf("flows = %d, want 0 after refused attach", n)
	}
	if gone := sc.Store().DespawnedSince(before); len(gone) != 0 {
		t.Errorf("refused attach despawned %v, want nothing spawned at all", gone)
	}
	if e.Status() == "" {
		t.Error("expected a status message")
	}
}

func TestArmedToolNeedsTarget(t *testing.T) {
	e := newEditor(t)
	e.Push(SelectTool{Tool: Tool{Kind: ToolInterfaceSubsystem}})
	e.Push(PointerDown{Pos: geom.V(0, 0)})
	tick(t, e)
	if e.Status() == "" {
		t.Error("interface subsystem on a system should be refused")
	}
	if e.Tool().Armed() {
		t.Error("tool should disarm after a refused press")
	}
}

func TestSelectDragDelete(t *testing.T) {
	e := newEditor(t)
	sc := e.Scene()
	iface, _, flow := addInflow(t, sc, math.Pi)
	tick(t, e)

	e.Push(PointerDown{Target: iface})
	e.Push(PointerDrag{Pos: geom.V(0, 500)})
	e.Push(PointerUp{})
	tick(t, e)

	if !sc.Selected(iface) {
		t.Error("pressing an interface should select it")
	}
	v, _ := sc.Interface(iface)
	if math.Abs(v.Angle-math.Pi/2) > 1e-9 {
		t.Errorf("angle after drag = %v, want pi/2", v.Angle)
	}

	e.Push(KeyPress{Key: KeyDelete})
	tick(t, e)
	if sc.Alive(iface) {
		t.Error("selected interface should be deleted")
	}
	if !sc.Incomplete(flow) {
		t.Error("flow should be incomplete after its interface is deleted")
	}
}

func TestPressSystemClearsSelection(t *testing.T) {
	e := newEditor(t)
	sc := e.Scene()
	iface, _, _ := addInflow(t, sc, 0)
	e.Do(Select(iface))
	tick(t, e)

	e.Push(PointerDown{Pos: geom.V(0, 0)})
	tick(t, e)
	if len(sc.Selection()) != 0 {
		t.Errorf("selection = %v, want empty", sc.Selection())
	}
}

func TestToolToggleAndEscape(t *testing.T) {
	e := newEditor(t)
	src := Tool{Kind: ToolSource}
	e.Push(SelectTool{Tool: src})
	tick(t, e)
	if e.Tool() != src {
		t.Fatalf("tool = %s, want %s", e.Tool(), src)
	}
	e.Push(SelectTool{Tool: src})
	tick(t, e)
	if e.Tool().Armed() {
		t.Error("selecting the armed tool again should disarm it")
	}

	e.Push(SelectTool{Tool: src})
	e.Push(KeyPress{Key: KeyEscape})
	tick(t, e)
	if e.Tool().Armed() {
		t.Error("escape should disarm")
	}
}

func TestPick(t *testing.T) {
	e := newEditor(t)
	sc := e.Scene()
	iface, src, flow := addInflow(t, sc, 0)
	tick(t, e)

	tests := []struct {
		name string
		at   geom.Vec2
		want store.Entity
	}{
		{"Interface", geom.V(300, 0), iface},
		{"Source", geom.V(500, 0), src},
		{"Flow", geom.V(400, 0), flow},
		{"Root", geom.V(0, 0), sc.Root()},
		{"Nothing", geom.V(5000, 5000), store.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pick(sc, tt.at); got != tt.want {
				t.Errorf("Pick(%v) = %s (%s), want %s", tt.at, got, sc.Kind(got), tt.want)
			}
		})
	}
}

func TestRenderSeesSettledScene(t *testing.T) {
	var seen []float64
	e := newEditor(t, WithRenderer(func(_ context.Context, sc *scene.Scene) error {
		seen = append(seen, sc.AppliedZoom())
		return nil
	}))
	e.Push(KeyPress{Key: KeyZoomIn})
	tick(t, e)
	if len(seen) != 2 || seen[1] != e.Scene().Zoom() {
		t.Errorf("renderer saw %v, want a second call at zoom %v", seen, e.Scene().Zoom())
	}
	if e.Ticks() != 2 {
		t.Errorf("ticks = %d, want 2", e.Ticks())
	}
}

type countingEditorHooks struct {
	observability.NoopEditorHooks
	ticks, commands, failed int
}

func (h *countingEditorHooks) OnTick(_ context.Context, n int, _ time.Duration) {
	h.ticks++
	h.commands += n
}

func (h *countingEditorHooks) OnCommand(_ context.Context, _ string, err error) {
	if err != nil {
		h.failed++
	}
}

func TestEditorHooks(t *testing.T) {
	hooks := &countingEditorHooks{}
	observability.SetEditorHooks(hooks)
	defer observability.Reset()

	e := newEditor(t)
	e.Do(ZoomIn())
	e.Do(Delete(store.Entity(9999)))
	tick(t, e)

	if hooks.ticks != 2 || hooks.commands != 2 || hooks.failed != 1 {
		t.Errorf("ticks=%d commands=%d failed=%d", hooks.ticks, hooks.commands, hooks.failed)
	}
}

func TestSaveAndImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.json")

	e := newEditor(t, WithDocumentPath(path))
	addInflow(t, e.Scene(), math.Pi)
	e.Do(SpawnInterface(e.Scene().Root(), geom.V(0, 1), scene.Export))
	tick(t, e)
	e.Push(KeyPress{Key: KeySave})
	tick(t, e)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document not written: %v", err)
	}
	if e.Dirty() {
		t.Error("save should clear the dirty flag")
	}

	picked := fileimport.DialogFunc(func(context.Context) (string, bool, error) { return path, true, nil })
	other := New(scene.New("Other", scene.WithLogger(quiet())), WithLogger(quiet()), WithDialog(picked))
	other.Push(KeyPress{Key: KeyImport})
	for i := 0; i < 1000; i++ {
		tick(t, other)
		if other.ImportState() == fileimport.Inactive && other.Path() == path {
			break
		}
		time.Sleep(time.Millisecond)
	}

	sc := other.Scene()
	if got := sc.Info(sc.Root()).Name; got != "Plant" {
		t.Fatalf("imported root = %q, want Plant", got)
	}
	if n := len(sc.Interfaces()); n != 2 {
		t.Errorf("interfaces = %d, want 2", n)
	}
	if other.Dirty() {
		t.Error("freshly imported scene should be clean")
	}
}

func TestImportWithoutDialog(t *testing.T) {
	e := newEditor(t)
	if err := e.Import(); err == nil {
		t.Error("Import without a dialog should fail")
	}
	e.Push(KeyPress{Key: KeyImport})
	tick(t, e)
	if e.Status() == "" {
		t.Error("expected a status message")
	}
}

func TestSaveRejectsBadPath(t *testing.T) {
	e := newEditor(t, WithDocumentPath(filepath.Join(t.TempDir(), "plant.txt")))
	if err := e.Save(context.Background()); err == nil {
		t.Error("Save should reject a non-json path")
	}
}

func TestParseTool(t *testing.T) {
	for _, tool := range Tools() {
		got, err := ParseTool(tool.String())
		if err != nil {
			t.Errorf("ParseTool(%q): %v", tool, err)
			continue
		}
		if got != tool {
			t.Errorf("ParseTool(%q) = %+v, want %+v", tool, got, tool)
		}
	}
	for _, bad := range []string{"", "flow-start", "wand"} {
		if _, err := ParseTool(bad); err == nil {
			t.Errorf("ParseTool(%q) should fail", bad)
		}
	}
}
