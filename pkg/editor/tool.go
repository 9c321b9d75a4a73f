package editor

import (
	"fmt"
	"strings"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// ToolKind is a toolbar button.
type ToolKind int

const (
	ToolNone ToolKind = iota
	ToolImportInterface
	ToolExportInterface
	ToolInflow
	ToolOutflow
	ToolSource
	ToolSink
	ToolInterfaceSubsystem
	ToolSubsystem
	ToolFlowTerminalStart
	ToolFlowTerminalEnd
)

var toolNames = map[ToolKind]string{
	ToolNone:               "none",
	ToolImportInterface:    "import-interface",
	ToolExportInterface:    "export-interface",
	ToolInflow:             "inflow",
	ToolOutflow:            "outflow",
	ToolSource:             "source",
	ToolSink:               "sink",
	ToolInterfaceSubsystem: "interface-subsystem",
	ToolSubsystem:          "subsystem",
	ToolFlowTerminalStart:  "flow-start",
	ToolFlowTerminalEnd:    "flow-end",
}

func (k ToolKind) String() string {
	if s, ok := toolNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ToolKind(%d)", int(k))
}

// Tool is the armed toolbar mode.
type Tool struct {
	Kind ToolKind
	// ChildOfInterface applies to ToolInterfaceSubsystem.
	ChildOfInterface bool
	// Flow is the flow whose terminal was pressed, for the terminal tools.
	Flow store.Entity
}

// Armed reports whether the next canvas press spawns something.
func (t Tool) Armed() bool { return t.Kind != ToolNone }

func (t Tool) String() string {
	if t.Kind == ToolInterfaceSubsystem && t.ChildOfInterface {
		return t.Kind.String() + "(child)"
	}
	return t.Kind.String()
}

// ParseTool parses a tool name as printed by [Tool.String]. The terminal
// tools are armed by pressing a terminal and cannot be parsed.
func ParseTool(s string) (Tool, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "interface-subsystem(child)" {
		return Tool{Kind: ToolInterfaceSubsystem, ChildOfInterface: true}, nil
	}
	for k, n := range toolNames {
		if n != name {
			continue
		}
		if k == ToolFlowTerminalStart || k == ToolFlowTerminalEnd {
			break
		}
		return Tool{Kind: k}, nil
	}
	return Tool{}, errors.New(errors.ErrCodeInvalidInput, "unknown tool %q", s)
}

// Tools lists the tools a front end may offer, in toolbar order.
func Tools() []Tool {
	return []Tool{
		{Kind: ToolImportInterface},
		{Kind: ToolExportInterface},
		{Kind: ToolInflow},
		{Kind: ToolOutflow},
		{Kind: ToolSource},
		{Kind: ToolSink},
		{Kind: ToolInterfaceSubsystem},
		{Kind: ToolInterfaceSubsystem, ChildOfInterface: true},
		{Kind: ToolSubsystem},
	}
}
