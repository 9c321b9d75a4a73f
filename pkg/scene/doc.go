// Package scene is the live model of a system-language diagram.
//
// # Elements
//
// A [Scene] holds five element kinds, each a typed table over entities of
// the [store] package:
//
//   - [System]: a disk. The root is the System of Interest at nesting level
//     0; every other system is a subsystem one level below its parent.
//   - [Interface]: a port on a system's circumference at an angle.
//   - [Flow]: a directed transfer of matter, energy or message between two
//     [Endpoint]s, drawn as a [geom.FlowCurve].
//   - [ExternalEntity]: a source or sink in a system's environment.
//   - Interface subsystems: systems bound to one interface that aggregate its
//     traffic into an [Aggregate].
//
// Shared concerns (name, nesting level, transform, selection) are side
// tables keyed by entity.
//
// # Constructors
//
// The Spawn* methods validate their input completely before writing
// anything, so an error always leaves the scene unchanged:
//
//	sc := scene.New("Water Plant")
//	in, _ := sc.SpawnFlow(scene.FlowSpec{SubstanceType: scene.Matter, Amount: 1})
//	_, _ = sc.SpawnInterface(scene.InterfaceSpec{System: sc.Root(), Angle: math.Pi, Type: scene.Import, Flow: in})
//	_, _ = sc.SpawnExternalEntity(scene.ExternalEntitySpec{System: sc.Root(), Type: scene.Source, Flow: in})
//	sc.Update()
//
// # Invariants engine
//
// [Scene.Update] runs five rules in a fixed order over what changed since
// its previous run: name labels for subsystems, flow completion (clearing
// ends that point at deleted elements and maintaining terminal markers),
// interface-subsystem aggregation, zoom application, and selection helpers.
// Rules only write values that differ, so a second Update without edits is a
// no-op.
//
// # Layout
//
// [Scene.Layout] runs after the engine. It is the only time the shared
// geometry cache accepts new entries, and it re-anchors every attached flow
// end to its interface or external entity.
//
// # Coordinates
//
// Positions are stored twice: a zoom-independent initial position and the
// derived transform (initial · zoom) in the parent frame. Flow curves are
// stored zoom independent in the frame of the system they are drawn in.
package scene
