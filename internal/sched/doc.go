// Package sched defines the expiration/priority model and the host
// scheduling primitives the work loop is driven by.
//
// An ExpirationTime is an opaque, totally ordered deadline: smaller nonzero
// values are more urgent, Sync is the most urgent representable value, and
// NoWork means "nothing pending". Deadlines are derived from a monotonic
// millisecond clock plus a priority-class offset, then quantized by ceiling
// into buckets so that nearby updates collapse onto one deadline and commit
// together instead of cascading.
//
// The clock is logical milliseconds since engine start, never wall time:
// wall-clock adjustment must not reorder or starve scheduled work.
package sched
