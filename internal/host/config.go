package host

import (
	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/sched"
)

// Config is the host renderer contract. Implementations own the concrete
// target tree (DOM, native views, an in-memory buffer); the engine drives
// them through this narrow surface and treats every handle as opaque.
//
// Containers are instance handles too: the root container passed to
// CreateRoot must be accepted wherever a parent instance is.
type Config interface {
	// GetRootHostContext returns the context threaded to top-level children
	// (e.g. a markup namespace). Opaque to the core.
	GetRootHostContext(rootContainer any) any
	// GetChildHostContext derives the context for children of a node of the
	// given type.
	GetChildHostContext(parentContext any, typ string, rootContainer any) any

	// CreateInstance creates a detached node of the given type.
	CreateInstance(typ string, props element.Props, rootContainer, hostContext any) (any, error)
	// CreateTextInstance creates a detached text node.
	CreateTextInstance(text string, rootContainer, hostContext any) (any, error)

	// AppendInitialChild attaches children to a still-detached parent during
	// initial mount, before the parent itself is placed.
	AppendInitialChild(parent, child any)
	// AppendChild attaches child as the last child of parent.
	AppendChild(parent, child any)
	// InsertBefore attaches child immediately before the given sibling.
	InsertBefore(parent, child, before any)
	// RemoveChild detaches child from parent.
	RemoveChild(parent, child any)

	// PrepareUpdate diffs old and new props, returning an opaque patch
	// descriptor and whether any update is needed. Called during the render
	// phase; must not mutate the target.
	PrepareUpdate(instance any, typ string, oldProps, newProps element.Props, hostContext any) (payload any, needed bool)
	// CommitUpdate applies a patch produced by PrepareUpdate.
	CommitUpdate(instance, payload any, typ string, oldProps, newProps element.Props) error
	// CommitTextUpdate replaces a text node's content.
	CommitTextUpdate(textInstance any, oldText, newText string) error

	// ShouldSetTextContent reports that children of this node are plain text
	// handled by the host directly, so the engine skips creating text fibers.
	ShouldSetTextContent(typ string, props element.Props) bool
	// ResetTextContent clears direct text before element children mount.
	ResetTextContent(instance any)

	// PrepareForCommit brackets the start of the mutation phase: suspend
	// input handling, snapshot selection state.
	PrepareForCommit(rootContainer any)
	// ResetAfterCommit brackets the end: restore selection, resume input.
	ResetAfterCommit(rootContainer any)

	// ScheduleAnimationCallback requests a callback before the next paint.
	ScheduleAnimationCallback(fn func())
	// ScheduleDeferredCallback requests a callback during idle time; the
	// deadline bounds how long the callback may run.
	ScheduleDeferredCallback(fn func(deadline sched.Deadline))
}
