package engine

import (
	"fmt"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/fiber"
	"github.com/loomui/loom/internal/sched"
)

// beginWork renders one fiber: it produces the fiber's child elements,
// reconciles them against the committed children, and returns the first
// child to descend into (nil for leaves). A returned error comes from user
// render code and unwinds to the nearest boundary.
func (e *Engine) beginWork(wip *fiber.Fiber) (*fiber.Fiber, error) {
	current := wip.Alternate

	// Value stacks are pushed before the bailout check so a skipped fiber
	// still scopes its descendants correctly; complete-work pops either way.
	switch wip.Tag {
	case fiber.HostComponent:
		e.pushHostContext(wip)
	case fiber.ContextProvider:
		e.pushProvider(wip, wip.Pending.Value)
	}

	// A fiber whose element is pointer-identical to the committed one and
	// which holds no due deadline did not change this pass. Descend only if
	// the subtree summary says something below is due.
	if current != nil && wip.Flags&fiber.DidCapture == 0 &&
		wip.Pending != nil && wip.Pending == current.Memoized &&
		!e.fiberIsDue(wip) {
		return e.bailout(wip), nil
	}

	switch wip.Tag {
	case fiber.HostRoot:
		var children []*element.Element
		if el := e.wipRoot.element; el != nil {
			children = []*element.Element{el}
		}
		e.reconcileChildren(wip, children)
		return wip.Child, nil

	case fiber.HostComponent:
		props := wip.Props()
		var children []*element.Element
		if !e.host.ShouldSetTextContent(wip.Type, props) {
			children = wip.Pending.Children
			if current != nil && e.host.ShouldSetTextContent(wip.Type, current.MemoizedProps()) {
				// leaving host-managed text: clear it before children mount
				wip.Flags |= fiber.ContentReset
			}
		}
		e.reconcileChildren(wip, children)
		return wip.Child, nil

	case fiber.HostText:
		return nil, nil

	case fiber.FunctionComponent:
		e.prepareToRead(wip)
		child, err := wip.Pending.Component(e, wip.Props())
		e.finishReading()
		if err != nil {
			return nil, err
		}
		e.reconcileChildren(wip, singleChild(child))
		return wip.Child, nil

	case fiber.ContextProvider:
		if current != nil {
			bits := e.changedBits(wip.Context, current.Memoized.Value, wip.Pending.Value)
			if bits != 0 {
				e.propagateContextChange(wip, wip.Context, bits)
			}
		}
		e.reconcileChildren(wip, wip.Pending.Children)
		return wip.Child, nil

	case fiber.ContextConsumer:
		e.prepareToRead(wip)
		value := e.ReadContext(wip.Context, wip.Pending.ObservedBits)
		child, err := wip.Pending.Render(value)
		e.finishReading()
		if err != nil {
			return nil, err
		}
		e.reconcileChildren(wip, singleChild(child))
		return wip.Child, nil

	case fiber.ErrorBoundary:
		if wip.Flags&fiber.DidCapture != 0 {
			capturedErr, _ := wip.MemoizedState.(error)
			var fallback *element.Element
			if wip.Pending.Fallback != nil {
				fallback = wip.Pending.Fallback(capturedErr)
			}
			e.reconcileChildren(wip, singleChild(fallback))
			return wip.Child, nil
		}
		e.reconcileChildren(wip, wip.Pending.Children)
		return wip.Child, nil

	case fiber.Fragment, fiber.Portal:
		e.reconcileChildren(wip, wip.Pending.Children)
		return wip.Child, nil
	}

	return nil, fmt.Errorf("engine: unhandled work tag %v", wip.Tag)
}

// fiberIsDue reports whether the fiber's own deadline is at least as urgent
// as the pass being rendered.
func (e *Engine) fiberIsDue(f *fiber.Fiber) bool {
	return f.ExpirationTime != sched.NoWork && !sched.MoreUrgent(e.renderExp, f.ExpirationTime)
}

// bailout skips re-rendering an unchanged fiber. If nothing in the subtree
// is due either, the committed children are reused as-is and the whole
// subtree is skipped; otherwise the children are cloned into the
// work-in-progress buffer and descended.
func (e *Engine) bailout(wip *fiber.Fiber) *fiber.Fiber {
	if wip.ChildExpirationTime == sched.NoWork || sched.MoreUrgent(e.renderExp, wip.ChildExpirationTime) {
		return nil
	}
	fiber.CloneChildFibers(wip)
	return wip.Child
}

func singleChild(el *element.Element) []*element.Element {
	if el == nil {
		return nil
	}
	return []*element.Element{el}
}
