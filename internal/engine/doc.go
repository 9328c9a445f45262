// Package engine is the reconciliation core: it renders element trees into a
// host target through a dual-buffer fiber tree.
//
// ARCHITECTURE
//
// The engine runs a small state machine (idle, scheduled, rendering,
// committing) over one or more roots. Rendering builds a work-in-progress
// fiber tree by diffing pending elements against the committed tree, pausing
// between fibers when the host's deadline runs out. Completing a fiber
// threads its side effects onto the effect list; completing the root hands a
// finished tree to the commit phase, which applies mutations in effect order
// and swaps buffers. Urgency is expressed as expiration times: more urgent
// work interrupts an in-flight lower-priority pass, which is discarded whole
// and recomputed later.
//
// Render-phase errors unwind to the nearest boundary fiber, which re-renders
// with its fallback; errors with no enclosing boundary fail the pass and
// leave the committed tree untouched. Commit-phase host errors abort the
// commit loudly.
package engine
