package fileimport

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
)

// State is a state of the import machine.
type State int

const (
	Inactive State = iota
	Select
	Poll
	Load
	CleanUp
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Select:
		return "Select"
	case Poll:
		return "Poll"
	case Load:
		return "Load"
	case CleanUp:
		return "CleanUp"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrImportInFlight is returned by [Machine.Start] while an import is
// already running.
var ErrImportInFlight = errors.New(errors.ErrCodeInvalidInput, "an import is already in progress")

// ErrDialogCancelled may be returned by a [Dialog] instead of ok=false.
var ErrDialogCancelled = errors.New(errors.ErrCodeDialogCancelled, "file dialog dismissed")

// Dialog asks the user for a file. ok is false when the user dismissed the
// dialog. Implementations should return promptly once ctx is done.
type Dialog interface {
	PickFile(ctx context.Context) (path string, ok bool, err error)
}

// DialogFunc adapts a function to [Dialog].
type DialogFunc func(ctx context.Context) (string, bool, error)

// PickFile calls f.
func (f DialogFunc) PickFile(ctx context.Context) (string, bool, error) { return f(ctx) }

// Loader applies a picked document, typically by loading it into a new
// scene and swapping it in.
type Loader func(path string) error

// Option configures a [Machine].
type Option func(*Machine)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option { return func(m *Machine) { m.logger = l } }

// Machine is the import state machine. It is not safe for concurrent use;
// the dialog goroutine communicates with it only through a channel.
type Machine struct {
	dialog Dialog
	load   Loader
	logger *log.Logger

	state State
	path  string
	task  *task
	gen   uint64
}

type task struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan answer
}

type answer struct {
	gen  uint64
	path string
	ok   bool
	err  error
}

// New creates an inactive machine.
func New(dialog Dialog, load Loader, opts ...Option) *Machine {
	m := &Machine{dialog: dialog, load: load, logger: log.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Path returns the picked path while in Load or CleanUp.
func (m *Machine) Path() string { return m.path }

// Busy reports whether an import is in flight.
func (m *Machine) Busy() bool { return m.state != Inactive }

// Start requests an import. The dialog opens on the next tick.
func (m *Machine) Start() error {
	if m.state != Inactive {
		return ErrImportInFlight
	}
	m.state = Select
	m.logger.Debug("import requested")
	return nil
}

// Reset abandons any import and returns to Inactive. A dialog that is still
// open is cancelled and its answer, if any, is ignored.
func (m *Machine) Reset() {
	if m.task != nil {
		m.task.cancel()
		m.task = nil
	}
	if m.state != Inactive {
		m.logger.Debug("import reset", "from", m.state)
	}
	m.gen++
	m.state = Inactive
	m.path = ""
}

// Tick performs at most one transition. It returns the error of a failed
// dialog or load; both leave the machine heading back to Inactive. A
// dismissed dialog is not an error.
func (m *Machine) Tick(ctx context.Context) error {
	switch m.state {
	case Inactive:
		return nil

	case Select:
		m.spawn(ctx)
		m.state = Poll
		return nil

	case Poll:
		var a answer
		select {
		case a = <-m.task.done:
		default:
			return nil
		}
		m.task.cancel()
		m.task = nil
		if a.gen != m.gen {
			m.logger.Debug("discarding stale dialog answer", "gen", a.gen)
			return nil
		}
		switch {
		case errors.Is(a.err, errors.ErrCodeDialogCancelled), a.err == nil && !a.ok:
			m.logger.Debug("import cancelled")
			m.state = Inactive
			return nil
		case a.err != nil:
			m.state = Inactive
			return errors.Wrap(errors.ErrCodeIO, a.err, "file dialog")
		}
		m.path = a.path
		m.state = Load
		return nil

	case Load:
		m.state = CleanUp
		m.logger.Info("importing", "path", m.path)
		return m.load(m.path)

	case CleanUp:
		m.path = ""
		m.state = Inactive
		return nil
	}
	return errors.New(errors.ErrCodeInternal, "import machine in unknown state %s", m.state)
}

func (m *Machine) spawn(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t := &task{gen: m.gen, cancel: cancel, done: make(chan answer, 1)}
	m.task = t
	go func() {
		path, ok, err := m.dialog.PickFile(ctx)
		t.done <- answer{gen: t.gen, path: path, ok: ok, err: err}
	}()
}
