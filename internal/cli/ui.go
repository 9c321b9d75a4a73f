package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	styleTreeEnum = lipgloss.NewStyle().Foreground(colorDim).MarginRight(1)
	styleTreeRoot = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHeader   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printWarning prints a warning message.
func printWarning(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w, "  "+StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printNextStep prints a suggested next command.
func printNextStep(w io.Writer, description, cmd string) {
	fmt.Fprintln(w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints document statistics on a single line, followed by any
// pre-styled extra parts.
func printStats(w io.Writer, st document.Stats, extra ...string) {
	parts := []string{
		StyleDim.Render(plural(st.Systems, "system")),
		StyleDim.Render(plural(st.Interfaces, "interface")),
		StyleDim.Render(plural(st.Sources, "source")),
		StyleDim.Render(plural(st.Sinks, "sink")),
		StyleDim.Render(plural(st.Interactions, "interaction")),
	}
	parts = append(parts, extra...)
	fmt.Fprintln(w, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// cacheStatus renders whether an artifact came from the cache.
func cacheStatus(cached bool) string {
	if cached {
		return styleCached.Render(iconCached)
	}
	return styleComputed.Render(iconFresh)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// =============================================================================
// Document Views
// =============================================================================

// systemTree renders the nesting of systems with their interfaces, sources,
// sinks and interactions.
func systemTree(wm *document.WorldModel) *tree.Tree {
	return systemNode(&wm.SystemOfInterest).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styleTreeEnum).
		RootStyle(styleTreeRoot)
}

func systemNode(s *document.System) *tree.Tree {
	t := tree.Root(recordLabel(s.Info) + " " + StyleDim.Render(string(s.Complexity.Kind)))
	for _, i := range s.Boundary.Interfaces {
		t.Child(fmt.Sprintf("%s %s", StyleHighlight.Render(string(i.Ty)), recordLabel(i.Info)))
	}
	for _, e := range s.Environment.Sources {
		t.Child(StyleSuccess.Render("source") + " " + recordLabel(e.Info))
	}
	for _, e := range s.Environment.Sinks {
		t.Child(StyleWarning.Render("sink") + " " + recordLabel(e.Info))
	}
	for _, in := range s.ExternalInteractions {
		t.Child(interactionLabel(in))
	}
	for _, in := range s.InternalInteractions {
		t.Child(interactionLabel(in))
	}
	for i := range s.Components {
		t.Child(systemNode(&s.Components[i]))
	}
	return t
}

func recordLabel(info document.Info) string {
	id := StyleDim.Render(info.Id.String())
	if info.Name == "" {
		return id
	}
	return StyleValue.Render(info.Name) + " " + id
}

func interactionLabel(in document.Interaction) string {
	var b strings.Builder
	b.WriteString(StyleDim.Render(string(in.Ty.Direction)) + " ")
	b.WriteString(fmt.Sprintf("%s/%s", in.Substance.Ty, in.Ty.Usability))
	if in.Amount != nil {
		b.WriteString(fmt.Sprintf(" %g", *in.Amount))
	}
	b.WriteString(" " + StyleDim.Render(iconArrow+" "+in.ExternalEntity.String()))
	return recordLabel(in.Info) + " " + b.String()
}

// statsTable renders record counts as a table.
func statsTable(st document.Stats) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Systems", "Interfaces", "Sources", "Sinks", "Interactions", "Depth").
		Row(
			fmt.Sprint(st.Systems),
			fmt.Sprint(st.Interfaces),
			fmt.Sprint(st.Sources),
			fmt.Sprint(st.Sinks),
			fmt.Sprint(st.Interactions),
			fmt.Sprint(st.MaxDepth),
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Foreground(colorCyan).Padding(0, 1)
		})
}
