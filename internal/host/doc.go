// Package host defines the renderer contract the core consumes.
//
// The engine is host-agnostic: it never creates, mutates, or inspects target
// nodes itself. All of that goes through Config, whose instance handles are
// opaque to the core. A DOM adapter, a native-widget adapter, and the
// in-memory Recording host in this package all satisfy the same interface.
//
// The Recording host exists for tests, the harness, and the CLI: it applies
// mutations to a simple node tree and records every call in order, which is
// what call-order fixtures and golden traces assert against.
package host
