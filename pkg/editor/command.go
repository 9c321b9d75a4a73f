package editor

import (
	"strings"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
	"github.com/Jtensminger/deep-systems-analysis/pkg/store"
)

// Command is a queued scene mutation, applied during the command pass.
// Positions captured by a command are in world coordinates and are
// converted to the target frame when the command runs.
type Command struct {
	Name string
	Run  func(sc *scene.Scene) error
}

// ZoomIn steps the zoom up.
func ZoomIn() Command {
	return Command{Name: "zoom-in", Run: func(sc *scene.Scene) error { sc.ZoomIn(); return nil }}
}

// ZoomOut steps the zoom down.
func ZoomOut() Command {
	return Command{Name: "zoom-out", Run: func(sc *scene.Scene) error { sc.ZoomOut(); return nil }}
}

// SetZoom sets the zoom, clamped to the allowed range.
func SetZoom(z float64) Command {
	return Command{Name: "zoom", Run: func(sc *scene.Scene) error { sc.SetZoom(z); return nil }}
}

// Select makes e the only selected element.
func Select(e store.Entity) Command {
	return Command{Name: "select", Run: func(sc *scene.Scene) error {
		if err := sc.Store().Check(e); err != nil {
			return err
		}
		sc.ClearSelection()
		return sc.Select(e, true)
	}}
}

// ClearSelection deselects everything.
func ClearSelection() Command {
	return Command{Name: "deselect", Run: func(sc *scene.Scene) error { sc.ClearSelection(); return nil }}
}

// Delete removes e and everything the delete cascade takes with it.
func Delete(e store.Entity) Command {
	return Command{Name: "delete", Run: func(sc *scene.Scene) error { return sc.Delete(e) }}
}

// DeleteSelection deletes every selected element still alive when the
// command runs. Elements removed by an earlier cascade are skipped.
func DeleteSelection() Command {
	return Command{Name: "delete-selection", Run: func(sc *scene.Scene) error {
		for _, e := range sc.Selection() {
			if !sc.Alive(e) {
				continue
			}
			if err := sc.Delete(e); err != nil {
				return err
			}
		}
		return nil
	}}
}

// Move drags e to the world point p.
func Move(e store.Entity, p geom.Vec2) Command {
	return Command{Name: "move", Run: func(sc *scene.Scene) error {
		if err := sc.Store().Check(e); err != nil {
			return err
		}
		return sc.MoveElement(e, sc.ToFrame(sc.Store().Parent(e), p))
	}}
}

// SetFlowAttributes edits the attributes of flow e.
func SetFlowAttributes(e store.Entity, a scene.FlowAttributes) Command {
	return Command{Name: "flow-attributes", Run: func(sc *scene.Scene) error { return sc.SetFlowAttributes(e, a) }}
}

// SpawnInterface places a new interface on sys facing the world point p.
func SpawnInterface(sys store.Entity, p geom.Vec2, ty scene.InterfaceType) Command {
	return Command{Name: "spawn-interface", Run: func(sc *scene.Scene) error {
		if err := sc.Store().Check(sys); err != nil {
			return err
		}
		_, err := sc.SpawnInterface(scene.InterfaceSpec{
			System: sys,
			Angle:  sc.ToFrame(sys, p).Angle(),
			Type:   ty,
		})
		return err
	}}
}

// SpawnFlow creates a flow attached to iface: an inflow ending on it when
// end is scene.FinishEnd, an outflow starting from it otherwise. The free
// end points straight away from the interface.
func SpawnFlow(iface store.Entity, end scene.End) Command {
	name := "spawn-outflow"
	if end == scene.FinishEnd {
		name = "spawn-inflow"
	}
	return Command{Name: name, Run: func(sc *scene.Scene) error {
		v, ok := sc.Interface(iface)
		if !ok {
			return notAn(sc, iface, scene.KindInterface)
		}
		at := scene.AtInterface(v.System, iface)
		point, dir, _ := sc.Anchor(at)
		curve := geom.OutflowCurve(1, point, dir, 1)
		if end == scene.FinishEnd {
			curve = geom.InflowCurve(1, point, dir, 1)
		}
		curve = sc.ReframeCurve(curve, store.None, sc.EnvironmentFrame(v.System))
		spec := scene.FlowSpec{
			SubstanceType: scene.Energy,
			Usability:     scene.Product,
			Amount:        1,
			IsUseful:      true,
			Curve:         curve,
		}
		if end == scene.FinishEnd {
			spec.Sink = at
		} else {
			spec.Source = at
		}
		_, err := sc.SpawnFlow(spec)
		return err
	}}
}

// SpawnExternal creates a source or sink at the world point p in the
// environment of target. Target is either a system or a flow whose other
// end sits on an interface; in the latter case the flow is attached.
func SpawnExternal(target store.Entity, p geom.Vec2, ty scene.ExternalType) Command {
	return Command{Name: "spawn-" + strings.ToLower(ty.String()), Run: func(sc *scene.Scene) error {
		spec := scene.ExternalEntitySpec{Type: ty}
		switch sc.Kind(target) {
		case scene.KindSystem:
			spec.System = target
		case scene.KindFlow:
			f, _ := sc.Flow(target)
			other := f.Sink
			if ty == scene.Sink {
				other = f.Source
			}
			if !other.Interface.Valid() {
				return errors.New(errors.ErrCodeInvariantViolation, "flow %s has no interface to face", target)
			}
			spec.System = other.System
			spec.Flow = target
		default:
			return notAn(sc, target, scene.KindSystem)
		}
		pos := sc.ToFrame(sc.EnvironmentFrame(spec.System), p)
		spec.Position = &pos
		_, err := sc.SpawnExternalEntity(spec)
		return err
	}}
}

// SpawnSubsystem nests a new subsystem in parent, centered at world point p.
func SpawnSubsystem(parent store.Entity, p geom.Vec2) Command {
	return Command{Name: "spawn-subsystem", Run: func(sc *scene.Scene) error {
		if _, ok := sc.System(parent); !ok {
			return notAn(sc, parent, scene.KindSystem)
		}
		pos := sc.ToFrame(parent, p)
		_, err := sc.SpawnSubsystem(scene.SubsystemSpec{
			Parent:     parent,
			Position:   &pos,
			Complexity: scene.DefaultComplexity(),
		})
		return err
	}}
}

// SpawnInterfaceSubsystem creates the subsystem behind iface.
func SpawnInterfaceSubsystem(iface store.Entity, child bool) Command {
	return Command{Name: "spawn-interface-subsystem", Run: func(sc *scene.Scene) error {
		_, err := sc.SpawnInterfaceSubsystem(scene.InterfaceSubsystemSpec{
			Interface:        iface,
			ChildOfInterface: child,
			Complexity:       scene.DefaultComplexity(),
		})
		return err
	}}
}

// PlaceTerminal attaches the free end of flow to target, or moves that end
// to the world point p when target is neither an interface nor an external
// entity.
func PlaceTerminal(flow store.Entity, end scene.End, target store.Entity, p geom.Vec2) Command {
	return Command{Name: "flow-" + end.String(), Run: func(sc *scene.Scene) error {
		f, ok := sc.Flow(flow)
		if !ok {
			return notAn(sc, flow, scene.KindFlow)
		}
		if iface, ok := sc.Interface(target); ok {
			return sc.ConnectFlow(flow, end, scene.AtInterface(iface.System, target))
		}
		if _, ok := sc.ExternalEntity(target); ok {
			return sc.ConnectFlow(flow, end, scene.AtExternal(target))
		}
		return sc.SetFlowEnd(flow, end, sc.ToFrame(f.Frame, p))
	}}
}

func notAn(sc *scene.Scene, e store.Entity, want scene.Kind) error {
	if err := sc.Store().Check(e); err != nil {
		return err
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s %s is not a %s", sc.Kind(e), e, want)
}
