// Package layout holds the sizing rules of the diagram: how geometry shrinks
// with nesting depth and grows with zoom, how large a subsystem is relative
// to its parent, and a shared cache of per-level outlines.
//
// # Scaling
//
// An element at nesting level n drawn at zoom z uses the factor
//
//	scale(n, z) = z · ratioⁿ
//
// where ratio is the nesting-shrink ratio in (0, 1]. Negative levels (the
// environment of the System of Interest) therefore draw larger than the root.
//
// # Geometry cache
//
// [Cache] maps (level, zoom bucket) to a [Geometry] of precomputed outlines.
// Entries may be created only while the cache is open, which the scene does
// for the duration of its layout pass; reads are always allowed.
package layout
