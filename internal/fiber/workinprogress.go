package fiber

import (
	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/sched"
)

// CreateWorkInProgress returns current's shadow fiber, primed to render
// pending at the given expiration. The first call for a position allocates
// the alternate and links the pair symmetrically; later passes reuse it,
// so steady-state re-renders allocate no fibers.
func CreateWorkInProgress(current *Fiber, pending *element.Element, exp sched.ExpirationTime) *Fiber {
	wip := current.Alternate
	if wip == nil {
		wip = &Fiber{
			Tag:       current.Tag,
			Key:       current.Key,
			Type:      current.Type,
			Context:   current.Context,
			ID:        current.ID,
			StateNode: current.StateNode,
		}
		wip.Alternate = current
		current.Alternate = wip
	} else {
		// Reused alternates carry stale effect state from the pass that
		// built them.
		wip.Flags = NoFlags
		wip.FirstEffect = nil
		wip.LastEffect = nil
		wip.NextEffect = nil
		wip.Type = current.Type
		wip.StateNode = current.StateNode
	}

	wip.Pending = pending
	wip.Memoized = current.Memoized
	wip.MemoizedState = current.MemoizedState
	wip.UpdatePayload = nil
	wip.Dependencies = current.Dependencies.Clone()

	// Start from the current child set; reconciliation replaces these links.
	wip.Child = current.Child
	wip.Sibling = current.Sibling
	wip.Index = current.Index
	wip.Return = current.Return

	wip.ExpirationTime = current.ExpirationTime
	wip.ChildExpirationTime = current.ChildExpirationTime

	return wip
}

// CloneChildFibers clones current's children under wip when begin-work bails
// out of re-rendering a fiber but must still descend (some descendant has
// pending work). Children are cloned rather than aliased so descendant
// mutation happens in the work-in-progress buffer only.
func CloneChildFibers(wip *Fiber) {
	if wip.Child == nil {
		return
	}
	current := wip.Child
	newChild := CreateWorkInProgress(current, current.Pending, current.ExpirationTime)
	wip.Child = newChild
	newChild.Return = wip
	for current.Sibling != nil {
		current = current.Sibling
		sib := CreateWorkInProgress(current, current.Pending, current.ExpirationTime)
		newChild.Sibling = sib
		sib.Return = wip
		sib.Sibling = nil
		newChild = sib
	}
	newChild.Sibling = nil
}
