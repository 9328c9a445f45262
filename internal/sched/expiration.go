package sched

import "fmt"

// Millis is a point on the engine's monotonic millisecond clock.
type Millis int64

// ExpirationTime is an opaque deadline used to order and bound work by
// urgency. Smaller nonzero values are more urgent.
type ExpirationTime int64

const (
	// NoWork means no deadline is pending. It never compares as a real
	// deadline; use Earliest/MoreUrgent rather than < directly.
	NoWork ExpirationTime = 0
	// Sync is the most urgent representable deadline. Synchronous work is
	// flushed to completion inside the scheduling call.
	Sync ExpirationTime = 1
)

// unitSizeMs is the clock granularity of one expiration unit. Coarser than a
// millisecond so that equality of deadlines, not just ordering, is meaningful.
const unitSizeMs = 10

// magicOffset keeps computed expiration times clear of the NoWork and Sync
// sentinels.
const magicOffset = 2

// Priority classes for scheduled work.
type Priority uint8

const (
	// PrioritySync flushes synchronously inside the scheduling call.
	PrioritySync Priority = iota + 1
	// PriorityInteractive is for updates that should land within a frame
	// or two (input handling).
	PriorityInteractive
	// PriorityLow is for deferrable updates (data refresh).
	PriorityLow
)

// ParsePriority maps a priority name to its class. The empty string means
// sync, matching the default in scenario files and CLI flags.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "", "sync":
		return PrioritySync, nil
	case "interactive":
		return PriorityInteractive, nil
	case "low":
		return PriorityLow, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// Expiration offsets and batching bucket sizes per priority class.
// A larger bucket coalesces more updates onto one deadline.
const (
	lowPriorityExpirationMs  = 5000
	lowPriorityBatchSizeMs   = 250
	highPriorityExpirationMs = 150
	highPriorityBatchSizeMs  = 100
)

// MsToExpirationTime converts a clock reading to expiration units.
func MsToExpirationTime(ms Millis) ExpirationTime {
	return ExpirationTime(ms/unitSizeMs) + magicOffset
}

// ExpirationTimeToMs converts a computed deadline back to clock units.
func ExpirationTimeToMs(t ExpirationTime) Millis {
	return Millis(int64(t)-magicOffset) * unitSizeMs
}

// ceiling rounds t up to the next multiple of precision. Two updates
// scheduled within the same bucket land on an identical deadline and render
// in one pass.
func ceiling(t ExpirationTime, precision int64) ExpirationTime {
	return ExpirationTime(((int64(t) + precision) / precision) * precision)
}

func computeExpirationBucket(now Millis, expirationInMs, bucketSizeMs int64) ExpirationTime {
	return ceiling(
		MsToExpirationTime(now)+ExpirationTime(expirationInMs/unitSizeMs),
		bucketSizeMs/unitSizeMs,
	)
}

// ComputeAsyncExpiration maps a point in time to the low-priority deadline.
func ComputeAsyncExpiration(now Millis) ExpirationTime {
	return computeExpirationBucket(now, lowPriorityExpirationMs, lowPriorityBatchSizeMs)
}

// ComputeInteractiveExpiration maps a point in time to the interactive
// deadline.
func ComputeInteractiveExpiration(now Millis) ExpirationTime {
	return computeExpirationBucket(now, highPriorityExpirationMs, highPriorityBatchSizeMs)
}

// Compute maps a priority class and current time to a deadline.
func Compute(p Priority, now Millis) ExpirationTime {
	switch p {
	case PrioritySync:
		return Sync
	case PriorityInteractive:
		return ComputeInteractiveExpiration(now)
	default:
		return ComputeAsyncExpiration(now)
	}
}

// Earliest returns the more urgent of two deadlines, treating NoWork as
// "no deadline" rather than "most urgent".
func Earliest(a, b ExpirationTime) ExpirationTime {
	if a == NoWork {
		return b
	}
	if b == NoWork {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// MoreUrgent reports whether a is strictly more urgent than b. NoWork is
// never more urgent than anything.
func MoreUrgent(a, b ExpirationTime) bool {
	if a == NoWork {
		return false
	}
	return b == NoWork || a < b
}

// Expired reports whether the deadline has elapsed at the given clock
// reading. Expired work must be flushed synchronously - deferring it further
// would starve it behind a stream of higher-nominal-priority work.
func (t ExpirationTime) Expired(now Millis) bool {
	return t != NoWork && t <= MsToExpirationTime(now)
}
