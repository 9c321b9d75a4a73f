package editor

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Event is raw user input, consumed during the input pass.
type Event interface{ event() }

// PointerDown is a press at Pos in world coordinates. Target is the element
// the front end hit-tested, or store.None to let the editor pick.
type PointerDown struct {
	Pos    geom.Vec2
	Target store.Entity
}

// PointerDrag moves a pressed pointer to Pos.
type PointerDrag struct{ Pos geom.Vec2 }

// PointerUp releases the pointer.
type PointerUp struct{ Pos geom.Vec2 }

// KeyPress is a key in the notation of bubbletea's KeyMsg.String,
// e.g. "+", "delete", "ctrl+s".
type KeyPress struct{ Key string }

// SelectTool arms a toolbar tool. Selecting the armed tool again disarms it.
type SelectTool struct{ Tool Tool }

func (PointerDown) event() {}
func (PointerDrag) event() {}
func (PointerUp) event()   {}
func (KeyPress) event()    {}
func (SelectTool) event()  {}

// Key bindings.
const (
	KeyZoomIn    = "+"
	KeyZoomInAlt = "="
	KeyZoomOut   = "-"
	KeyDelete    = "delete"
	KeyBackspace = "backspace"
	KeyEscape    = "esc"
	KeyImport    = "ctrl+o"
	KeySave      = "ctrl+s"
	KeyDeselect  = "ctrl+d"
)
