// Package persist maps a live [scene.Scene] to a [document.WorldModel] and
// back.
//
// [Save] walks the scene top down, assigns every element a document Id and
// emits one record per element. [Load] rebuilds a scene in two phases:
// systems, interfaces and external entities first, then flows, so every
// reference can be resolved regardless of document order. Broken
// references are skipped and reported as warnings; the rest of the document
// still loads.
//
// Flows that are not attached at both ends have no stable identity in the
// document and are not saved.
package persist
