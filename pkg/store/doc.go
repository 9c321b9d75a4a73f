// Package store is the entity store behind the scene model.
//
// # Entities
//
// An [Entity] is an opaque, never-reused handle allocated by [Store.Spawn].
// Entities carry no data themselves. Data lives in typed component tables
// created with [NewTable], one table per component type, plus a set of
// zero-sized [Tag] markers.
//
// # Hierarchy
//
// Each entity has at most one parent. [Store.Children] returns children in
// insertion order, so traversals are deterministic. [Store.DespawnRecursive]
// removes an entity together with all of its descendants.
//
// # Change detection
//
// Every mutation stamps the affected row with the store's monotonically
// increasing tick. A consumer keeps a [Cursor] and asks a table which rows
// were added, changed or removed since the cursor:
//
//	var seen store.Cursor
//	for _, e := range flows.Changed(seen) {
//	    ...
//	}
//	seen = s.Now()
//
// [Table.Set] only stamps a row when the value actually differs, which lets
// derived-state rules write unconditionally and still converge.
//
// # Concurrency
//
// A Store is owned by a single goroutine; it is not safe for concurrent use.
package store
