package engine

import (
	"github.com/loomui/loom/internal/devtools"
	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/fiber"
	"github.com/loomui/loom/internal/sched"
)

// commitRoot applies a finished tree to the host in three fixed phases:
// before-mutation bracket, mutations in effect-list order, after-mutation
// bracket plus callbacks. The buffer swap happens after mutations, so
// observers of Current never see a half-applied tree. Host errors here are
// not recoverable; the commit aborts loudly.
func (e *Engine) commitRoot(root *Root, finished *fiber.Fiber, exp sched.ExpirationTime) error {
	e.phase = PhaseCommitting

	firstEffect := finished.FirstEffect
	if finished.Flags != fiber.NoFlags {
		// the root fiber's own effects go last
		if finished.LastEffect != nil {
			finished.LastEffect.NextEffect = finished
		} else {
			firstEffect = finished
		}
		finished.NextEffect = nil
	}

	var muts []devtools.Mutation
	effectCount := 0

	e.host.PrepareForCommit(root.container)
	for f := firstEffect; f != nil; f = f.NextEffect {
		effectCount++
		if f.Flags&fiber.ContentReset != 0 {
			e.host.ResetTextContent(f.StateNode)
			muts = append(muts, devtools.Mutation{Op: devtools.MutResetText, Node: f.ID})
		}
		switch f.Flags & (fiber.Placement | fiber.Update | fiber.Deletion) {
		case fiber.Placement:
			e.commitPlacement(f, &muts)
		case fiber.Placement | fiber.Update:
			e.commitPlacement(f, &muts)
			if err := e.commitWork(f, &muts); err != nil {
				return e.abortCommit(root, exp, err)
			}
		case fiber.Update:
			if err := e.commitWork(f, &muts); err != nil {
				return e.abortCommit(root, exp, err)
			}
		case fiber.Deletion:
			e.commitDeletion(f, &muts)
		}
	}
	e.host.ResetAfterCommit(root.container)

	// buffer swap
	root.fiber = finished
	root.finished = nil
	root.clearPending(exp)

	for f := firstEffect; f != nil; f = f.NextEffect {
		if f.Flags&fiber.Callback != 0 && f.Pending != nil && f.Pending.Ref != nil {
			f.Pending.Ref(f.StateNode)
		}
	}

	e.hook.OnCommitRoot(e.rendererID, devtools.CommitSummary{
		RendererID:  e.rendererID,
		RootID:      root.ID(),
		Expiration:  int64(exp),
		EffectCount: effectCount,
		Mutations:   muts,
	})
	e.log.Debug("commit",
		"root", root.ID(),
		"expiration", int64(exp),
		"effects", effectCount,
		"mutations", len(muts),
	)
	return nil
}

func (e *Engine) abortCommit(root *Root, exp sched.ExpirationTime, err error) error {
	root.clearPending(exp)
	root.finished = nil
	return &RuntimeError{
		Code:    ErrCodeCommitFailed,
		Message: "host mutation failed mid-commit",
		RootID:  root.ID(),
		Err:     err,
	}
}

func isHostParent(f *fiber.Fiber) bool {
	return f.Tag == fiber.HostComponent || f.Tag == fiber.HostRoot || f.Tag == fiber.Portal
}

func hostParentFiber(f *fiber.Fiber) *fiber.Fiber {
	for p := f.Return; p != nil; p = p.Return {
		if isHostParent(p) {
			return p
		}
	}
	panic("engine: fiber has no host parent")
}

// hostSibling finds the next stable host node after f under the same host
// parent: the anchor for insertBefore. Fibers that are themselves being
// placed this commit are not stable anchors and are skipped.
func hostSibling(f *fiber.Fiber) *fiber.Fiber {
	node := f
search:
	for {
		for node.Sibling == nil {
			if node.Return == nil || isHostParent(node.Return) {
				return nil
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
		for node.Tag != fiber.HostComponent && node.Tag != fiber.HostText {
			if node.Flags&fiber.Placement != 0 {
				continue search
			}
			if node.Child == nil || node.Tag == fiber.Portal {
				continue search
			}
			node.Child.Return = node
			node = node.Child
		}
		if node.Flags&fiber.Placement == 0 {
			return node
		}
	}
}

// commitPlacement inserts or moves the host nodes of f's subtree: every
// top-level host descendant goes before the nearest stable sibling, or to
// the end when there is none. Freshly mounted nodes also emit their creation
// records so a commit trace can be replayed standalone.
func (e *Engine) commitPlacement(f *fiber.Fiber, muts *[]devtools.Mutation) {
	parentFiber := hostParentFiber(f)
	parentInstance := parentFiber.StateNode
	before := hostSibling(f)

	node := f
	for {
		if node.Tag == fiber.HostComponent || node.Tag == fiber.HostText {
			if node.Alternate == nil {
				emitCreateMutations(node, muts)
			}
			if before != nil {
				e.host.InsertBefore(parentInstance, node.StateNode, before.StateNode)
				*muts = append(*muts, devtools.Mutation{
					Op:     devtools.MutInsertBefore,
					Node:   node.ID,
					Parent: parentFiber.ID,
					Before: before.ID,
				})
			} else {
				e.host.AppendChild(parentInstance, node.StateNode)
				*muts = append(*muts, devtools.Mutation{
					Op:     devtools.MutAppend,
					Node:   node.ID,
					Parent: parentFiber.ID,
				})
			}
		} else if node.Tag != fiber.Portal && node.Child != nil {
			node.Child.Return = node
			node = node.Child
			continue
		}
		if node == f {
			return
		}
		for node.Sibling == nil {
			if node.Return == nil || node.Return == f {
				return
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
	}
}

// emitCreateMutations records the creation of a freshly mounted host node
// and the attachment of its (also fresh) host descendants, so the mutation
// stream alone suffices to rebuild the subtree.
func emitCreateMutations(f *fiber.Fiber, muts *[]devtools.Mutation) {
	if f.Tag == fiber.HostText {
		*muts = append(*muts, devtools.Mutation{Op: devtools.MutCreateText, Node: f.ID, Text: f.Pending.Text})
	} else {
		*muts = append(*muts, devtools.Mutation{Op: devtools.MutCreate, Node: f.ID, Type: f.Type, Props: f.Props()})
	}
	emitChildAttach(f, f, muts)
}

func emitChildAttach(hostAncestor, f *fiber.Fiber, muts *[]devtools.Mutation) {
	for c := f.Child; c != nil; c = c.Sibling {
		switch c.Tag {
		case fiber.HostComponent, fiber.HostText:
			emitCreateMutations(c, muts)
			*muts = append(*muts, devtools.Mutation{Op: devtools.MutAppend, Node: c.ID, Parent: hostAncestor.ID})
		case fiber.Portal:
			// portal children record their own placements
		default:
			emitChildAttach(hostAncestor, c, muts)
		}
	}
}

func (e *Engine) commitWork(f *fiber.Fiber, muts *[]devtools.Mutation) error {
	switch f.Tag {
	case fiber.HostComponent:
		if f.UpdatePayload == nil {
			return nil
		}
		var oldProps element.Props
		if alt := f.Alternate; alt != nil {
			oldProps = alt.MemoizedProps()
		}
		if err := e.host.CommitUpdate(f.StateNode, f.UpdatePayload, f.Type, oldProps, f.Props()); err != nil {
			return err
		}
		patch, _ := f.UpdatePayload.(element.Props)
		*muts = append(*muts, devtools.Mutation{Op: devtools.MutUpdate, Node: f.ID, Type: f.Type, Props: patch})
		f.UpdatePayload = nil

	case fiber.HostText:
		var oldText string
		if alt := f.Alternate; alt != nil && alt.Memoized != nil {
			oldText = alt.Memoized.Text
		}
		if err := e.host.CommitTextUpdate(f.StateNode, oldText, f.Pending.Text); err != nil {
			return err
		}
		*muts = append(*muts, devtools.Mutation{Op: devtools.MutUpdateText, Node: f.ID, Text: f.Pending.Text})
	}
	return nil
}

// commitDeletion removes f's host nodes from the target, detaches committed
// refs and notifies the hook for every fiber in the deleted subtree.
func (e *Engine) commitDeletion(f *fiber.Fiber, muts *[]devtools.Mutation) {
	walkSubtree(f, func(fb *fiber.Fiber) {
		if (fb.Tag == fiber.HostComponent || fb.Tag == fiber.HostText) &&
			fb.Memoized != nil && fb.Memoized.Ref != nil {
			fb.Memoized.Ref(nil)
		}
		e.hook.OnCommitUnmount(e.rendererID, fb.ID)
	})
	parent := hostParentFiber(f)
	e.removeHostSubtree(f, parent.StateNode, parent.ID, muts)
	f.Detach()
}

func (e *Engine) removeHostSubtree(f *fiber.Fiber, parentInstance any, parentID int64, muts *[]devtools.Mutation) {
	switch f.Tag {
	case fiber.HostComponent, fiber.HostText:
		// children leave with their parent; no per-descendant removal
		e.host.RemoveChild(parentInstance, f.StateNode)
		*muts = append(*muts, devtools.Mutation{Op: devtools.MutRemove, Node: f.ID, Parent: parentID})
	case fiber.Portal:
		for c := f.Child; c != nil; c = c.Sibling {
			e.removeHostSubtree(c, f.StateNode, f.ID, muts)
		}
	default:
		for c := f.Child; c != nil; c = c.Sibling {
			e.removeHostSubtree(c, parentInstance, parentID, muts)
		}
	}
}

func walkSubtree(f *fiber.Fiber, fn func(*fiber.Fiber)) {
	fn(f)
	for c := f.Child; c != nil; c = c.Sibling {
		walkSubtree(c, fn)
	}
}
