package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/editor"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/fileimport"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

func TestPromptDialogAnswer(t *testing.T) {
	d := newPromptDialog()
	type result struct {
		path string
		ok   bool
		err  error
	}
	done := make(chan result, 1)
	go func() {
		path, ok, err := d.PickFile(context.Background())
		done <- result{path, ok, err}
	}()

	select {
	case <-d.open:
	case <-time.After(time.Second):
		t.Fatal("PickFile did not open the prompt")
	}
	d.answer(promptAnswer{path: "plant.json", ok: true})

	r := <-done
	if r.err != nil || !r.ok || r.path != "plant.json" {
		t.Errorf("PickFile = (%q, %v, %v)", r.path, r.ok, r.err)
	}
}

func TestPromptDialogCancelled(t *testing.T) {
	d := newPromptDialog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := d.PickFile(ctx)
	if ok {
		t.Error("cancelled prompt should not pick a file")
	}
	if errors.GetCode(err) != errors.ErrCodeDialogCancelled {
		t.Errorf("err = %v, want DIALOG_CANCELLED", err)
	}
}

func TestPromptDialogDropsStaleAnswers(t *testing.T) {
	d := newPromptDialog()
	d.answer(promptAnswer{path: "stale.json", ok: true})

	done := make(chan string, 1)
	go func() {
		path, _, _ := d.PickFile(context.Background())
		done <- path
	}()
	<-d.open
	d.answer(promptAnswer{path: "fresh.json", ok: true})

	if got := <-done; got != "fresh.json" {
		t.Errorf("picked %q, want fresh.json", got)
	}
}

func newTestEditModel(t *testing.T, name, path string) *editModel {
	t.Helper()
	opts := []scene.Option{scene.WithLogger(log.New(io.Discard))}
	return newEditModel(context.Background(), scene.New(name, opts...), path, time.Millisecond, opts...)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestEditModelSelectsTools(t *testing.T) {
	m := newTestEditModel(t, "Plant", filepath.Join(t.TempDir(), "plant.json"))

	tests := []struct {
		key  string
		want editor.Tool
	}{
		{"1", editor.Tools()[0]},
		{"6", editor.Tools()[5]},
		{"8", editor.Tools()[7]},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m.Update(runes(tt.key))
			m.Update(tickMsg(time.Now()))
			if got := m.ed.Tool(); got != tt.want {
				t.Errorf("tool = %s, want %s", got, tt.want)
			}
			m.Update(tea.KeyMsg{Type: tea.KeyEsc})
			m.Update(tickMsg(time.Now()))
		})
	}
}

func TestEditModelQuits(t *testing.T) {
	m := newTestEditModel(t, "Plant", "plant.json")
	for _, msg := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		if _, cmd := m.Update(msg); cmd == nil {
			t.Errorf("%s should quit", msg)
		}
	}
}

func TestEditModelView(t *testing.T) {
	m := newTestEditModel(t, "Plant", "plant.json")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if m.canvas.width != 100 || m.canvas.height != 30-headerRows-footerRows {
		t.Errorf("canvas = %dx%d after resize", m.canvas.width, m.canvas.height)
	}
	m.Update(tickMsg(time.Now()))

	view := m.View()
	for _, want := range []string{"Plant", "plant.json", "import-interface", "ctrl+s save"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestEditModelImportsThroughPrompt(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "plant.json")
	writeInflowDocument(t, doc)

	m := newTestEditModel(t, "Other", filepath.Join(dir, "other.json"))
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	for i := 0; i < 1000 && !m.prompting; i++ {
		m.Update(tickMsg(time.Now()))
		time.Sleep(time.Millisecond)
	}
	if !m.prompting {
		t.Fatal("import never opened the prompt")
	}
	if !strings.Contains(m.View(), "import:") {
		t.Error("view should show the prompt")
	}

	m.Update(runes(doc + "x"))
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.prompting {
		t.Fatal("enter should close the prompt")
	}

	for i := 0; i < 1000; i++ {
		m.Update(tickMsg(time.Now()))
		if m.ed.ImportState() == fileimport.Inactive && m.ed.Path() == doc {
			break
		}
		time.Sleep(time.Millisecond)
	}
	sc := m.ed.Scene()
	if got := sc.Info(sc.Root()).Name; got != "Plant" {
		t.Fatalf("imported root = %q, want Plant", got)
	}
	if n := len(sc.Interfaces()); n != 1 {
		t.Errorf("interfaces = %d, want 1", n)
	}
}
