// Package geom provides the 2D primitives used by the scene model.
//
// # Overview
//
// Every diagram element lives in the frame of its parent: an interface in the
// frame of its system, a subsystem in the frame of its parent system. A
// [Transform] carries a translation, a draw-order depth (Z), a rotation about
// the Z axis and a scale. Frames compose with [Transform.Mul], and a chain of
// frames folds into one with [Fold].
//
// # Flow curves
//
// Flows are drawn as cubic Bézier curves described by [FlowCurve]: two end
// points plus the unit tangent leaving each end. The handle length of both
// control points is [TangentLength], one third of the chord, which keeps the
// S-curve taut for any pair of end points.
//
//	c := geom.InflowCurve(zoom, initial, dir, scale)
//	pts := c.Flatten(32)
//
// # Disk placement
//
// Systems are always disks. [InterfacePlacement] puts an interface on the
// circumference with its local +x axis pointing outward, and
// [EndAndDirectionFromSubsystem] finds where an external anchor meets a
// subsystem disk.
//
// # Concurrency
//
// All functions are pure; values are safe to share.
package geom
