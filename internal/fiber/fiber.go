package fiber

import (
	"fmt"
	"sync/atomic"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/sched"
)

// WorkTag discriminates fiber kinds. Begin-work, complete-work and commit
// each dispatch exhaustively over this closed set.
type WorkTag uint8

const (
	// HostRoot anchors a tree to a host container.
	HostRoot WorkTag = iota + 1
	// HostComponent is a concrete node in the target tree.
	HostComponent
	// HostText is a text leaf.
	HostText
	// FunctionComponent computes its output by calling user code.
	FunctionComponent
	// ContextProvider installs a context value for its subtree.
	ContextProvider
	// ContextConsumer reads a context value.
	ContextConsumer
	// ErrorBoundary catches descendant render errors.
	ErrorBoundary
	// Fragment groups children without a host node.
	Fragment
	// Portal renders children into a different container.
	Portal
)

func (t WorkTag) String() string {
	switch t {
	case HostRoot:
		return "root"
	case HostComponent:
		return "host"
	case HostText:
		return "text"
	case FunctionComponent:
		return "component"
	case ContextProvider:
		return "provider"
	case ContextConsumer:
		return "consumer"
	case ErrorBoundary:
		return "boundary"
	case Fragment:
		return "fragment"
	case Portal:
		return "portal"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Flags records the side effects a fiber accumulated during a render pass.
type Flags uint16

const (
	NoFlags Flags = 0
	// Placement: insert or move the host subtree at commit.
	Placement Flags = 1 << iota
	// Update: apply a prepared patch at commit.
	Update
	// Deletion: remove the host subtree at commit. Deleted fibers ride the
	// parent's effect list; they are already detached from the tree.
	Deletion
	// ContentReset: clear direct text content before children mount.
	ContentReset
	// Callback: invoke ref/lifecycle callbacks after mutations.
	Callback
	// DidCapture: a boundary holds a captured descendant error.
	DidCapture
	// Incomplete: the fiber's subtree errored and is being unwound.
	Incomplete
)

// MutationMask selects the flags the commit driver acts on.
const MutationMask = Placement | Update | Deletion | ContentReset

// ContextDependency records one context a fiber read during its last render
// and which bits of the value it observed.
type ContextDependency struct {
	Context      *element.Context
	ObservedBits int32
	Next         *ContextDependency
}

// Dependencies is a fiber's per-render context dependency list. It is
// rebuilt from scratch on every render; propagation walks it to decide which
// fibers a changed value must revisit.
type Dependencies struct {
	First *ContextDependency
}

// Clone copies the record list so an alternate can carry last render's
// dependencies without sharing mutable state.
func (d *Dependencies) Clone() *Dependencies {
	if d == nil {
		return nil
	}
	out := &Dependencies{}
	tail := &out.First
	for rec := d.First; rec != nil; rec = rec.Next {
		cp := &ContextDependency{Context: rec.Context, ObservedBits: rec.ObservedBits}
		*tail = cp
		tail = &cp.Next
	}
	return out
}

// Fiber is one unit of work: a persistent node of the dual-buffer tree.
//
// Mutation discipline: a fiber is mutated freely while it is work-in-progress
// and frozen once committed; the next pass clones into its alternate instead.
type Fiber struct {
	Tag WorkTag
	// Key is the list-reconciliation identity hint from the element.
	Key string
	// Type is the host type name (HostComponent).
	Type string
	// Context is the cell a provider/consumer is bound to.
	Context *element.Context

	// ID is a stable logical identity shared with the alternate. Commit
	// traces and devtools use it to correlate mutations across passes.
	ID int64

	// StateNode holds the opaque host instance (host fibers), or the root
	// container (HostRoot).
	StateNode any

	// Tree links. Return is the parent work item, not necessarily the host
	// parent.
	Return  *Fiber
	Child   *Fiber
	Sibling *Fiber
	Index   int

	// Pending is the element description to render; Memoized is the one
	// rendered by the last completed pass.
	Pending  *element.Element
	Memoized *element.Element
	// MemoizedState is per-tag render output: the captured error for
	// boundaries, the rendered child element for components/consumers.
	MemoizedState any
	// UpdatePayload carries the host patch descriptor from PrepareUpdate to
	// CommitUpdate.
	UpdatePayload any

	// Dependencies lists the contexts read during the last render.
	Dependencies *Dependencies

	Flags Flags
	// Effect list links: a stable, tree-order-derived sequence of fibers
	// with side effects, threaded through the tree during complete-work.
	FirstEffect *Fiber
	LastEffect  *Fiber
	NextEffect  *Fiber

	// ExpirationTime is this fiber's own pending-work deadline;
	// ChildExpirationTime summarizes the most urgent deadline anywhere in
	// its subtree.
	ExpirationTime      sched.ExpirationTime
	ChildExpirationTime sched.ExpirationTime

	// Alternate is the shadow copy in the other buffer.
	Alternate *Fiber
}

var nextFiberID atomic.Int64

// NewRoot creates a HostRoot fiber anchored to a container.
func NewRoot(container any) *Fiber {
	return &Fiber{
		Tag:       HostRoot,
		ID:        nextFiberID.Add(1),
		StateNode: container,
	}
}

// FromElement creates a fresh fiber for an element that has no current
// counterpart.
func FromElement(el *element.Element, exp sched.ExpirationTime) *Fiber {
	f := &Fiber{
		ID:             nextFiberID.Add(1),
		Key:            el.Key,
		Pending:        el,
		ExpirationTime: exp,
	}
	switch el.Kind {
	case element.KindHost:
		f.Tag = HostComponent
		f.Type = el.Type
	case element.KindText:
		f.Tag = HostText
	case element.KindComponent:
		f.Tag = FunctionComponent
	case element.KindProvider:
		f.Tag = ContextProvider
		f.Context = el.Context
	case element.KindConsumer:
		f.Tag = ContextConsumer
		f.Context = el.Context
	case element.KindBoundary:
		f.Tag = ErrorBoundary
	case element.KindFragment:
		f.Tag = Fragment
	case element.KindPortal:
		f.Tag = Portal
		f.StateNode = el.ContainerInfo
	default:
		panic(fmt.Sprintf("fiber: unknown element kind %v", el.Kind))
	}
	return f
}

// Matches reports whether an element describes the same logical node as this
// fiber: same kind of work and, for hosts, the same type. A mismatch means
// the old fiber cannot be reused.
func (f *Fiber) Matches(el *element.Element) bool {
	switch f.Tag {
	case HostComponent:
		return el.Kind == element.KindHost && f.Type == el.Type
	case HostText:
		return el.Kind == element.KindText
	case FunctionComponent:
		return el.Kind == element.KindComponent
	case ContextProvider:
		return el.Kind == element.KindProvider && f.Context == el.Context
	case ContextConsumer:
		return el.Kind == element.KindConsumer && f.Context == el.Context
	case ErrorBoundary:
		return el.Kind == element.KindBoundary
	case Fragment:
		return el.Kind == element.KindFragment
	case Portal:
		return el.Kind == element.KindPortal && f.StateNode == el.ContainerInfo
	default:
		return false
	}
}

// Props returns the pending element's props, or nil.
func (f *Fiber) Props() element.Props {
	if f.Pending == nil {
		return nil
	}
	return f.Pending.Props
}

// MemoizedProps returns the last committed props, or nil.
func (f *Fiber) MemoizedProps() element.Props {
	if f.Memoized == nil {
		return nil
	}
	return f.Memoized.Props
}

// AppendEffect links f onto parent's effect list, preserving tree order.
func (parent *Fiber) AppendEffect(f *Fiber) {
	if parent.FirstEffect == nil {
		parent.FirstEffect = f
	} else {
		parent.LastEffect.NextEffect = f
	}
	parent.LastEffect = f
	f.NextEffect = nil
}

// BubbleEffects splices a completed child's effect list (and the child
// itself, if flagged) onto the parent. Called in completion order, this
// yields the stable tree-order effect sequence the commit phase relies on.
func (parent *Fiber) BubbleEffects(child *Fiber) {
	if child.FirstEffect != nil {
		if parent.FirstEffect == nil {
			parent.FirstEffect = child.FirstEffect
		} else {
			parent.LastEffect.NextEffect = child.FirstEffect
		}
		parent.LastEffect = child.LastEffect
	}
	if child.Flags != NoFlags {
		parent.AppendEffect(child)
	}
}

// Detach severs tree links on a deleted fiber so the collected subtree can
// be reclaimed once the commit drops it.
func (f *Fiber) Detach() {
	f.Return = nil
	f.Child = nil
	f.Sibling = nil
	if alt := f.Alternate; alt != nil {
		alt.Return = nil
		alt.Child = nil
		alt.Sibling = nil
	}
}
