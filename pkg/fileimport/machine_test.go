package fileimport

import (
	"context"
	stderrors "errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
)

// scriptedDialog answers with whatever is sent on its channel.
type scriptedDialog struct {
	answers  chan answer
	opened   chan struct{}
	returned chan struct{}
}

func newScriptedDialog() *scriptedDialog {
	return &scriptedDialog{
		answers:  make(chan answer, 1),
		opened:   make(chan struct{}, 4),
		returned: make(chan struct{}, 4),
	}
}

func (d *scriptedDialog) PickFile(ctx context.Context) (string, bool, error) {
	d.opened <- struct{}{}
	defer func() { d.returned <- struct{}{} }()
	select {
	case a := <-d.answers:
		return a.path, a.ok, a.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

type recorder struct {
	paths []string
	err   error
}

func (r *recorder) load(path string) error {
	r.paths = append(r.paths, path)
	return r.err
}

func newMachine(d Dialog, r *recorder) *Machine {
	return New(d, r.load, WithLogger(log.New(io.Discard)))
}

// tickUntil ticks m until it leaves state from, failing after a second.
func tickUntil(t *testing.T, m *Machine, from State) error {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for m.State() == from {
		if time.Now().After(deadline) {
			t.Fatalf("stuck in %s", from)
		}
		if err := m.Tick(context.Background()); err != nil {
			return err
		}
		if m.State() == from {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

func TestImportHappyPath(t *testing.T) {
	d := newScriptedDialog()
	r := &recorder{}
	m := newMachine(d, r)
	ctx := context.Background()

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if m.State() != Select {
		t.Fatalf("state = %s, want Select", m.State())
	}
	if err := m.Tick(ctx); err != nil || m.State() != Poll {
		t.Fatalf("after Select: state = %s, err = %v", m.State(), err)
	}

	// nothing answered yet: Poll stays put
	<-d.opened
	if err := m.Tick(ctx); err != nil || m.State() != Poll {
		t.Fatalf("idle Poll: state = %s, err = %v", m.State(), err)
	}

	d.answers <- answer{path: "/tmp/world_model.json", ok: true}
	if err := tickUntil(t, m, Poll); err != nil {
		t.Fatal(err)
	}
	if m.State() != Load || m.Path() != "/tmp/world_model.json" {
		t.Fatalf("state = %s, path = %q", m.State(), m.Path())
	}
	if len(r.paths) != 0 {
		t.Fatal("loader ran before Load tick")
	}

	if err := m.Tick(ctx); err != nil || m.State() != CleanUp {
		t.Fatalf("after Load: state = %s, err = %v", m.State(), err)
	}
	if len(r.paths) != 1 || r.paths[0] != "/tmp/world_model.json" {
		t.Errorf("loaded = %v", r.paths)
	}
	if err := m.Tick(ctx); err != nil || m.State() != Inactive || m.Path() != "" {
		t.Fatalf("after CleanUp: state = %s, path = %q", m.State(), m.Path())
	}
}

func TestImportCancel(t *testing.T) {
	tests := []struct {
		name string
		ans  answer
	}{
		{"Dismissed", answer{ok: false}},
		{"CancelledError", answer{err: ErrDialogCancelled}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newScriptedDialog()
			r := &recorder{}
			m := newMachine(d, r)
			_ = m.Start()
			_ = m.Tick(context.Background())
			d.answers <- tt.ans
			if err := tickUntil(t, m, Poll); err != nil {
				t.Fatalf("Tick: %v", err)
			}
			if m.State() != Inactive {
				t.Errorf("state = %s, want Inactive", m.State())
			}
			if len(r.paths) != 0 {
				t.Error("loader must not run on cancel")
			}
		})
	}
}

func TestImportDialogFailure(t *testing.T) {
	d := newScriptedDialog()
	m := newMachine(d, &recorder{})
	_ = m.Start()
	_ = m.Tick(context.Background())
	d.answers <- answer{err: stderrors.New("no display")}

	err := tickUntil(t, m, Poll)
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("err = %v, want IO_FAILURE", err)
	}
	if m.State() != Inactive {
		t.Errorf("state = %s", m.State())
	}
}

func TestImportLoadFailure(t *testing.T) {
	d := DialogFunc(func(context.Context) (string, bool, error) { return "bad.json", true, nil })
	r := &recorder{err: errors.New(errors.ErrCodeDocumentParse, "broken")}
	m := newMachine(d, r)
	_ = m.Start()
	_ = m.Tick(context.Background())
	if err := tickUntil(t, m, Poll); err != nil {
		t.Fatal(err)
	}
	if err := m.Tick(context.Background()); !errors.Is(err, errors.ErrCodeDocumentParse) {
		t.Errorf("Load tick = %v", err)
	}
	if m.State() != CleanUp {
		t.Errorf("state = %s, want CleanUp", m.State())
	}
	_ = m.Tick(context.Background())
	if m.State() != Inactive {
		t.Errorf("state = %s, want Inactive", m.State())
	}
}

func TestImportSingleFlight(t *testing.T) {
	m := newMachine(newScriptedDialog(), &recorder{})
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != ErrImportInFlight {
		t.Errorf("second Start = %v, want ErrImportInFlight", err)
	}
	if !m.Busy() {
		t.Error("Busy = false")
	}
}

func TestImportResetDiscardsLateAnswer(t *testing.T) {
	d := newScriptedDialog()
	r := &recorder{}
	m := newMachine(d, r)
	ctx := context.Background()

	_ = m.Start()
	_ = m.Tick(ctx)
	<-d.opened
	m.Reset()
	if m.State() != Inactive {
		t.Fatalf("state after Reset = %s", m.State())
	}
	<-d.returned
	if err := m.Tick(ctx); err != nil || m.State() != Inactive {
		t.Fatalf("late answer changed state to %s (err %v)", m.State(), err)
	}

	// a fresh import is unaffected by the abandoned one
	_ = m.Start()
	_ = m.Tick(ctx)
	<-d.opened
	d.answers <- answer{path: "second.json", ok: true}
	if err := tickUntil(t, m, Poll); err != nil {
		t.Fatal(err)
	}
	if m.Path() != "second.json" {
		t.Errorf("path = %q, want second.json", m.Path())
	}
}

func TestResetFromEveryState(t *testing.T) {
	for _, s := range []State{Inactive, Select, Poll, Load, CleanUp} {
		t.Run(s.String(), func(t *testing.T) {
			m := newMachine(DialogFunc(func(ctx context.Context) (string, bool, error) {
				<-ctx.Done()
				return "", false, ctx.Err()
			}), &recorder{})
			if s != Inactive {
				_ = m.Start()
			}
			if s == Poll {
				_ = m.Tick(context.Background())
			}
			if s == Load || s == CleanUp {
				m.state, m.path = s, "x.json"
			}
			m.Reset()
			if m.State() != Inactive || m.Path() != "" || m.Busy() {
				t.Errorf("after Reset: state = %s, path = %q", m.State(), m.Path())
			}
		})
	}
}
