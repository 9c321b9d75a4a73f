package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Jtensminger/deep-systems-analysis/pkg/editor"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

// editCommand creates the interactive terminal editor.
func (c *CLI) editCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a document in the terminal",
		Long: `Open a document in an interactive terminal canvas.

Pick a tool with the number keys and click on the canvas to use it. Click an
interface, flow, source or sink to select it and drag to move it; delete
removes the selection. + and - zoom, ctrl+s saves and ctrl+o imports another
document. A missing file starts a new model that is created on first save.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd.Context(), cmd.OutOrStdout(), c.documentPath(args))
		},
	}
	return cmd
}

func (c *CLI) runEdit(ctx context.Context, w io.Writer, path string) error {
	sc, err := c.openScene(path)
	if err != nil {
		return err
	}

	// The canvas owns the terminal while it runs; problems surface on the
	// status line instead.
	c.Logger.SetOutput(io.Discard)
	defer c.Logger.SetOutput(c.logOut)

	m := newEditModel(ctx, sc, path, c.config().TickInterval(), c.sceneOptions()...)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx)).Run(); err != nil {
		return err
	}
	if m.ed.Dirty() {
		printWarning(w, "quit with unsaved changes to %s", m.ed.Path())
	}
	return nil
}

// openScene loads path, or starts a new model when it does not exist.
func (c *CLI) openScene(path string) (*scene.Scene, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c.Logger.Info("starting a new model", "path", path)
		return scene.New("", c.sceneOptions()...), nil
	}
	res, err := c.loadDocument(path)
	if err != nil {
		return nil, err
	}
	return res.Scene, nil
}

// =============================================================================
// File Dialog
// =============================================================================

type promptAnswer struct {
	path string
	ok   bool
}

// promptDialog asks for a path on the editor's own prompt line. PickFile
// runs on the import machine's goroutine and the TUI answers from its
// event loop.
type promptDialog struct {
	open    chan struct{}
	answers chan promptAnswer
}

func newPromptDialog() *promptDialog {
	return &promptDialog{
		open:    make(chan struct{}, 1),
		answers: make(chan promptAnswer, 1),
	}
}

// PickFile implements fileimport.Dialog.
func (d *promptDialog) PickFile(ctx context.Context) (string, bool, error) {
	select {
	case <-d.answers:
	default:
	}
	select {
	case d.open <- struct{}{}:
	default:
	}
	select {
	case a := <-d.answers:
		return a.path, a.ok, nil
	case <-ctx.Done():
		return "", false, errors.Wrap(errors.ErrCodeDialogCancelled, ctx.Err(), "file prompt")
	}
}

func (d *promptDialog) answer(a promptAnswer) {
	select {
	case d.answers <- a:
	default:
	}
}

// =============================================================================
// Editor Model
// =============================================================================

// headerRows is the number of lines above the canvas.
const headerRows = 2

// footerRows is the number of lines below the canvas.
const footerRows = 2

type tickMsg time.Time

var (
	styleToolbar    = lipgloss.NewStyle().Foreground(colorGray)
	styleToolActive = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Underline(true)
	styleStatus     = lipgloss.NewStyle().Foreground(colorWhite)
	stylePrompt     = lipgloss.NewStyle().Foreground(colorYellow)
)

// editModel is the bubbletea model wrapping an [editor.Editor].
type editModel struct {
	ctx    context.Context
	ed     *editor.Editor
	dialog *promptDialog
	canvas *canvas
	frame  string
	tick   time.Duration

	prompting bool
	input     string
}

func newEditModel(ctx context.Context, sc *scene.Scene, path string, tick time.Duration, opts ...scene.Option) *editModel {
	m := &editModel{
		ctx:    ctx,
		dialog: newPromptDialog(),
		canvas: newCanvas(80, 20),
		tick:   tick,
	}
	m.ed = editor.New(sc,
		editor.WithLogger(sc.Logger()),
		editor.WithDocumentPath(path),
		editor.WithDialog(m.dialog),
		editor.WithRenderer(m.render),
		editor.WithSceneOptions(opts...),
	)
	return m
}

// render is the editor's render pass.
func (m *editModel) render(_ context.Context, sc *scene.Scene) error {
	m.canvas.draw(sc)
	m.frame = m.canvas.String()
	return nil
}

func (m *editModel) nextTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *editModel) Init() tea.Cmd {
	return m.nextTick()
}

func (m *editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if err := m.ed.Tick(m.ctx); err != nil {
			return m, tea.Quit
		}
		select {
		case <-m.dialog.open:
			m.prompting = true
			m.input = ""
		default:
		}
		return m, m.nextTick()

	case tea.WindowSizeMsg:
		m.canvas = newCanvas(msg.Width, msg.Height-headerRows-footerRows)

	case tea.KeyMsg:
		if m.prompting {
			m.promptKey(msg)
			return m, nil
		}
		return m, m.key(msg)

	case tea.MouseMsg:
		m.mouse(msg)
	}
	return m, nil
}

func (m *editModel) key(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return tea.Quit
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		tools := editor.Tools()
		if i := int(key[0] - '1'); i < len(tools) {
			m.ed.Push(editor.SelectTool{Tool: tools[i]})
		}
		return nil
	}
	m.ed.Push(editor.KeyPress{Key: key})
	return nil
}

func (m *editModel) promptKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		m.dialog.answer(promptAnswer{path: strings.TrimSpace(m.input), ok: strings.TrimSpace(m.input) != ""})
		m.prompting = false
	case tea.KeyEsc, tea.KeyCtrlC:
		m.dialog.answer(promptAnswer{})
		m.prompting = false
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
}

func (m *editModel) mouse(msg tea.MouseMsg) {
	pos := m.canvas.toWorld(msg.X, msg.Y-headerRows)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.ed.Push(editor.PointerDown{Pos: pos})
		}
	case tea.MouseActionMotion:
		if msg.Button == tea.MouseButtonLeft {
			m.ed.Push(editor.PointerDrag{Pos: pos})
		}
	case tea.MouseActionRelease:
		m.ed.Push(editor.PointerUp{Pos: pos})
	}
}

func (m *editModel) View() string {
	var b strings.Builder

	title := StyleTitle.Render(orDefault(m.ed.Scene().Info(m.ed.Scene().Root()).Name, "untitled"))
	dirty := ""
	if m.ed.Dirty() {
		dirty = StyleWarning.Render(" *")
	}
	b.WriteString(title + dirty + StyleDim.Render(fmt.Sprintf("  %s  zoom %.2f", m.ed.Path(), m.ed.Scene().Zoom())))
	b.WriteString("\n")
	b.WriteString(m.toolbar())
	b.WriteString("\n")
	b.WriteString(m.frame)
	b.WriteString("\n")

	switch {
	case m.prompting:
		b.WriteString(stylePrompt.Render("import: ") + m.input + "█")
	default:
		b.WriteString(styleStatus.Render(m.ed.Status()))
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("click select/place · drag move · del delete · +/- zoom · ctrl+s save · ctrl+o import · esc cancel · q quit"))
	return b.String()
}

func (m *editModel) toolbar() string {
	active := m.ed.Tool()
	var parts []string
	for i, t := range editor.Tools() {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == active {
			parts = append(parts, styleToolActive.Render(label))
		} else {
			parts = append(parts, styleToolbar.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

// orDefault returns s, or def when s is empty.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
