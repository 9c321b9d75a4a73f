// Package document defines the persisted form of a diagram.
//
// A document is a UTF-8 JSON tree rooted at a [WorldModel]. Each [System]
// holds its environment (sources and sinks), its boundary (with interfaces),
// the interactions crossing the boundary, the interactions among its
// components, and the components themselves, recursively.
//
// # Identity
//
// Every record carries an [Info] whose [Id] is a kind plus a sequence of
// signed indices. The System of Interest is System[0] and its boundary
// Boundary[0]; its interfaces are Interface[0,i]; its environment is
// Environment[-1] and the sources, sinks and external flows in it are
// Source[-1,i], Sink[-1,i] and Flow[-1,i]. Nested systems extend the
// indices of their parent.
//
// # Encoding
//
// Field names are normative. Tagged unions ([Complexity], [InteractionType])
// encode as single-key objects:
//
//	{"Complex": {"adaptable": true, "evolveable": false}}
//	{"Inflow": {"usability": "Product"}}
//
// [Read] rejects syntactically or schematically invalid input with a
// DOCUMENT_PARSE error; [References] lists Ids that point at nothing.
package document
