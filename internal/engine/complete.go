package engine

import (
	"github.com/loomui/loom/internal/fiber"
)

// completeWork finishes a fiber after its subtree has completed. Host fibers
// materialize or diff their instances here; providers and host components
// pop the value stacks they pushed in begin-work.
func (e *Engine) completeWork(f *fiber.Fiber) error {
	switch f.Tag {
	case fiber.ContextProvider:
		e.popProvider(f)
		return nil

	case fiber.HostComponent:
		return e.completeHostComponent(f)

	case fiber.HostText:
		return e.completeHostText(f)

	default:
		return nil
	}
}

func (e *Engine) completeHostComponent(f *fiber.Fiber) error {
	// pop first so a creation failure below leaves the stack balanced
	hostCtx := e.popHostContext(f)
	current := f.Alternate

	if current != nil && f.StateNode != nil {
		if current.Memoized != f.Pending {
			payload, needed := e.host.PrepareUpdate(f.StateNode, f.Type, current.MemoizedProps(), f.Props(), hostCtx)
			if needed {
				f.UpdatePayload = payload
				f.Flags |= fiber.Update
			}
		}
		return nil
	}

	instance, err := e.host.CreateInstance(f.Type, f.Props(), e.wipRoot.container, hostCtx)
	if err != nil {
		return err
	}
	e.appendAllChildren(instance, f)
	f.StateNode = instance
	if f.Pending.Ref != nil {
		f.Flags |= fiber.Callback
	}
	return nil
}

func (e *Engine) completeHostText(f *fiber.Fiber) error {
	current := f.Alternate
	if current != nil && f.StateNode != nil {
		if current.Memoized.Text != f.Pending.Text {
			f.Flags |= fiber.Update
		}
		return nil
	}
	instance, err := e.host.CreateTextInstance(f.Pending.Text, e.wipRoot.container, e.topHostContext())
	if err != nil {
		return err
	}
	f.StateNode = instance
	return nil
}

// appendAllChildren attaches the detached instance's direct host descendants:
// the first host or text fiber down every branch, looking through components,
// fragments, providers and boundaries, never into other host instances.
// Portal subtrees are skipped; their nodes belong to another container.
func (e *Engine) appendAllChildren(instance any, wip *fiber.Fiber) {
	node := wip.Child
	for node != nil {
		if node.Tag == fiber.HostComponent || node.Tag == fiber.HostText {
			e.host.AppendInitialChild(instance, node.StateNode)
		} else if node.Tag != fiber.Portal && node.Child != nil {
			node.Child.Return = node
			node = node.Child
			continue
		}
		if node == wip {
			return
		}
		for node.Sibling == nil {
			if node.Return == nil || node.Return == wip {
				return
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
	}
}
