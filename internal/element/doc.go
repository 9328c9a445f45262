// Package element defines the declarative description vocabulary consumed by
// the reconciler.
//
// An Element is an immutable description of one position in the target tree:
// a host node, a text node, a function component, a context provider or
// consumer, an error boundary, a fragment, or a portal. Elements are cheap to
// build and are never mutated by the engine; each render pass hands the engine
// a fresh tree of them.
//
// The package also owns the Context cell descriptor (the named channel through
// which a value is supplied down a subtree) and the identity comparison used
// for change detection: ObjectIs, which treats NaN as equal to NaN and +0 as
// distinct from -0. This comparison is load-bearing - ordinary == would both
// miss NaN stability and conflate signed zeros.
//
// Canonical serialization (canonical.go) produces deterministic JSON for
// fingerprints, golden files, and the commit trace store:
//   - Object keys sorted by UTF-16 code units
//   - No HTML escaping
//   - Strings NFC normalized
package element
