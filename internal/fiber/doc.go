// Package fiber defines the dual-buffer work tree the reconciler operates on.
//
// A Fiber is a persistent unit of work mirroring one position in the
// component tree. Each position has at most two live fibers: the committed
// one ("current") and its shadow ("alternate", the work-in-progress). The
// pair point at each other symmetrically; CreateWorkInProgress is an O(1)
// clone-on-write into the alternate slot, and commit makes the
// work-in-progress tree current by swapping which root the engine holds -
// no tree copy ever happens.
//
// INVARIANTS:
//   - f.Alternate == nil || f.Alternate.Alternate == f (symmetric pairing)
//   - ChildExpirationTime is at least as urgent as every descendant's
//     pending expiration (monotonic summarization). Violating this makes
//     the bailout fast-skip miss updates.
//   - A fiber is owned by its tree; Return/Alternate are non-owning
//     back-references. The pair is discarded together once neither buffer
//     references it.
package fiber
