package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/config"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/fileimport"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/observability"
	"github.com/Jtensminger/deep-systems-analysis/pkg/persist"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Renderer draws the settled scene at the end of a tick.
type Renderer func(ctx context.Context, sc *scene.Scene) error

// Option configures an [Editor].
type Option func(*Editor)

// WithLogger sets the logger. Scenes loaded by the editor inherit it.
func WithLogger(l *log.Logger) Option { return func(e *Editor) { e.logger = l } }

// WithDocumentPath sets the path saved to by [Editor.Save].
func WithDocumentPath(path string) Option { return func(e *Editor) { e.path = path } }

// WithDialog enables importing through d.
func WithDialog(d fileimport.Dialog) Option { return func(e *Editor) { e.dialog = d } }

// WithRenderer sets the render pass.
func WithRenderer(r Renderer) Option { return func(e *Editor) { e.render = r } }

// WithSceneOptions sets the options used to build imported scenes.
func WithSceneOptions(opts ...scene.Option) Option {
	return func(e *Editor) { e.sceneOpts = append(e.sceneOpts, opts...) }
}

// Editor advances a scene one tick at a time. It is not safe for concurrent
// use; front ends that receive input on other goroutines must serialize
// their calls.
type Editor struct {
	sc        *scene.Scene
	sceneOpts []scene.Option
	logger    *log.Logger
	path      string
	dialog    fileimport.Dialog
	render    Renderer
	importer  *fileimport.Machine

	tool   Tool
	events []Event
	queue  []Command
	drag   store.Entity
	status string
	dirty  bool
	ticks  uint64
}

// New returns an editor for sc.
func New(sc *scene.Scene, opts ...Option) *Editor {
	e := &Editor{
		sc:     sc,
		logger: log.Default(),
		path:   config.DefaultDocument,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.dialog != nil {
		e.importer = fileimport.New(e.dialog, e.load, fileimport.WithLogger(e.logger))
	}
	return e
}

// Scene returns the scene being edited. It changes after an import.
func (e *Editor) Scene() *scene.Scene { return e.sc }

// Path returns the document path used by [Editor.Save].
func (e *Editor) Path() string { return e.path }

// Tool returns the armed tool.
func (e *Editor) Tool() Tool { return e.tool }

// Status returns the status line: the outcome of the last failed command,
// save or import.
func (e *Editor) Status() string { return e.status }

// Dirty reports whether the scene changed since it was last saved or loaded.
func (e *Editor) Dirty() bool { return e.dirty }

// Ticks returns the number of completed ticks.
func (e *Editor) Ticks() uint64 { return e.ticks }

// Pending returns the number of queued events and commands.
func (e *Editor) Pending() int { return len(e.events) + len(e.queue) }

// ImportState returns the state of the import machine.
func (e *Editor) ImportState() fileimport.State {
	if e.importer == nil {
		return fileimport.Inactive
	}
	return e.importer.State()
}

// SetScene replaces the scene being edited, dropping the active tool, the
// drag and any queued input.
func (e *Editor) SetScene(sc *scene.Scene) {
	e.sc = sc
	e.tool = Tool{}
	e.drag = store.None
	e.events = nil
	e.queue = nil
	e.dirty = false
}

// Push queues an input event for the next tick.
func (e *Editor) Push(ev Event) { e.events = append(e.events, ev) }

// Do queues a command for the next tick.
func (e *Editor) Do(c Command) { e.queue = append(e.queue, c) }

// Tick runs one pass of input, commands, import, invariants, layout and
// render. Only a render failure is returned; everything else is reported
// through the status line and the log.
func (e *Editor) Tick(ctx context.Context) error {
	start := time.Now()

	events := e.events
	e.events = nil
	for _, ev := range events {
		e.handle(ctx, ev)
	}

	cmds := e.queue
	e.queue = nil
	for _, c := range cmds {
		_ = e.apply(ctx, c)
	}

	e.tickImport(ctx)

	e.sc.Update()
	if err := e.sc.Layout(); err != nil {
		e.logger.Warn("layout failed", "err", err)
	}

	var err error
	if e.render != nil {
		err = e.render(ctx, e.sc)
	}
	e.ticks++
	observability.Editor().OnTick(ctx, len(cmds), time.Since(start))
	return err
}

// Save writes the scene to the document path.
func (e *Editor) Save(ctx context.Context) error {
	if err := errors.ValidateDocumentPath(e.path); err != nil {
		e.fail(err)
		return err
	}
	start := time.Now()
	err := persist.SaveFile(e.sc, e.path)
	observability.Document().OnSave(ctx, e.path, time.Since(start), err)
	if err != nil {
		e.fail(err, "path", e.path)
		return err
	}
	e.dirty = false
	e.status = "saved " + e.path
	return nil
}

// Import starts the file dialog. The picked document replaces the scene a
// few ticks later.
func (e *Editor) Import() error {
	if e.importer == nil {
		return errors.New(errors.ErrCodeUnsupported, "no file dialog available")
	}
	if err := e.importer.Start(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "import already in progress")
	}
	e.status = "choose a document to import"
	return nil
}

func (e *Editor) handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case KeyPress:
		e.key(ctx, ev.Key)
	case SelectTool:
		if ev.Tool == e.tool {
			e.tool = Tool{}
		} else {
			e.tool = ev.Tool
		}
		e.status = "tool: " + e.tool.String()
	case PointerDown:
		e.press(ev)
	case PointerDrag:
		if e.drag.Valid() {
			e.Do(Move(e.drag, ev.Pos))
		}
	case PointerUp:
		e.drag = store.None
	}
}

func (e *Editor) key(ctx context.Context, key string) {
	switch key {
	case KeyZoomIn, KeyZoomInAlt:
		e.Do(ZoomIn())
	case KeyZoomOut:
		e.Do(ZoomOut())
	case KeyDelete, KeyBackspace:
		e.Do(DeleteSelection())
	case KeyDeselect:
		e.Do(ClearSelection())
	case KeyEscape:
		e.tool = Tool{}
		e.drag = store.None
		if e.importer != nil && e.importer.Busy() {
			e.importer.Reset()
		}
		e.status = ""
	case KeyImport:
		if err := e.Import(); err != nil {
			e.fail(err)
		}
	case KeySave:
		_ = e.Save(ctx)
	}
}

func (e *Editor) press(ev PointerDown) {
	target := ev.Target
	if !target.Valid() {
		target = Pick(e.sc, ev.Pos)
	}

	if e.tool.Armed() {
		tool := e.tool
		e.tool = Tool{}
		cmd, err := e.toolCommand(tool, target, ev.Pos)
		if err != nil {
			e.fail(err, "tool", tool)
			return
		}
		e.Do(cmd)
		return
	}

	switch e.sc.Kind(target) {
	case scene.KindTerminal:
		t, _ := e.sc.Terminal(target)
		kind := ToolFlowTerminalStart
		if t.End == scene.FinishEnd {
			kind = ToolFlowTerminalEnd
		}
		e.tool = Tool{Kind: kind, Flow: t.Flow}
		e.status = "place the flow " + t.End.String()
	case scene.KindInterface, scene.KindExternalEntity:
		e.Do(Select(target))
		e.drag = target
	case scene.KindFlow:
		e.Do(Select(target))
	case scene.KindSystem:
		e.Do(ClearSelection())
		if sys, _ := e.sc.System(target); !sys.IsRoot() {
			e.drag = target
		}
	default:
		e.Do(ClearSelection())
	}
}

// toolCommand turns a press with an armed tool into a command.
func (e *Editor) toolCommand(tool Tool, target store.Entity, p geom.Vec2) (Command, error) {
	switch tool.Kind {
	case ToolImportInterface:
		return SpawnInterface(e.systemFor(target), p, scene.Import), nil
	case ToolExportInterface:
		return SpawnInterface(e.systemFor(target), p, scene.Export), nil
	case ToolInflow, ToolOutflow:
		if e.sc.Kind(target) != scene.KindInterface {
			return Command{}, errors.New(errors.ErrCodeInvalidInput, "click an interface to attach the %s", tool)
		}
		if tool.Kind == ToolInflow {
			return SpawnFlow(target, scene.FinishEnd), nil
		}
		return SpawnFlow(target, scene.StartEnd), nil
	case ToolSource, ToolSink:
		ty := scene.Source
		if tool.Kind == ToolSink {
			ty = scene.Sink
		}
		if e.sc.Kind(target) == scene.KindFlow {
			return SpawnExternal(target, p, ty), nil
		}
		return SpawnExternal(e.systemFor(target), p, ty), nil
	case ToolInterfaceSubsystem:
		if e.sc.Kind(target) != scene.KindInterface {
			return Command{}, errors.New(errors.ErrCodeInvalidInput, "click an interface to add its subsystem")
		}
		return SpawnInterfaceSubsystem(target, tool.ChildOfInterface), nil
	case ToolSubsystem:
		return SpawnSubsystem(e.systemFor(target), p), nil
	case ToolFlowTerminalStart:
		return PlaceTerminal(tool.Flow, scene.StartEnd, target, p), nil
	case ToolFlowTerminalEnd:
		return PlaceTerminal(tool.Flow, scene.FinishEnd, target, p), nil
	}
	return Command{}, errors.New(errors.ErrCodeInternal, "tool %s has no action", tool)
}

// systemFor resolves a press target to the system it belongs to, falling
// back to the System of Interest.
func (e *Editor) systemFor(target store.Entity) store.Entity {
	switch e.sc.Kind(target) {
	case scene.KindSystem:
		return target
	case scene.KindInterface:
		v, _ := e.sc.Interface(target)
		return v.System
	}
	return e.sc.Root()
}

// viewOnly commands do not change the document.
var viewOnly = map[string]bool{
	"zoom-in":  true,
	"zoom-out": true,
	"zoom":     true,
	"select":   true,
	"deselect": true,
}

// Apply runs c at once instead of on the next tick and returns its error.
// The derived state catches up on the next [Editor.Tick].
func (e *Editor) Apply(ctx context.Context, c Command) error {
	return e.apply(ctx, c)
}

func (e *Editor) apply(ctx context.Context, c Command) error {
	err := c.Run(e.sc)
	observability.Editor().OnCommand(ctx, c.Name, err)
	if err != nil {
		e.fail(err, "command", c.Name)
		return err
	}
	if !viewOnly[c.Name] {
		e.dirty = true
	}
	return nil
}

func (e *Editor) tickImport(ctx context.Context) {
	if e.importer == nil {
		return
	}
	from := e.importer.State()
	err := e.importer.Tick(ctx)
	if to := e.importer.State(); to != from {
		observability.Document().OnImportState(ctx, from.String(), to.String())
	}
	if err != nil {
		e.fail(err, "import", from)
	}
}

// load is the import machine's loader: it replaces the scene.
func (e *Editor) load(path string) error {
	start := time.Now()
	opts := append([]scene.Option{scene.WithLogger(e.logger), scene.WithParams(e.sc.Params())}, e.sceneOpts...)
	res, err := persist.LoadFile(path, opts...)
	warnings := 0
	if res != nil {
		warnings = len(res.Warnings)
	}
	observability.Document().OnLoad(context.Background(), path, warnings, time.Since(start), err)
	if err != nil {
		return err
	}

	e.SetScene(res.Scene)
	e.path = path
	e.status = "imported " + path
	if warnings > 0 {
		e.status += fmt.Sprintf(" (%d records skipped)", warnings)
	}
	return nil
}

// fail reports err on the status line. Commands naming dead entities are
// logged at Warn; refusals only at Debug.
func (e *Editor) fail(err error, keyvals ...any) {
	keyvals = append(keyvals, "err", err)
	if errors.Is(err, errors.ErrCodeUnknownEntity) {
		e.logger.Warn("skipping command on unknown entity", keyvals...)
	} else {
		e.logger.Debug("refused", keyvals...)
	}
	e.status = errors.UserMessage(err)
}
