package engine

import (
	"math"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/fiber"
)

// reconcileChildren diffs a fiber's new child elements against its committed
// children and installs the resulting child list on wip. Side effects
// (placements, deletions) are only tracked once the fiber has a committed
// counterpart; fresh subtrees are assembled detached and placed in one shot
// by their topmost inserted fiber.
func (e *Engine) reconcileChildren(wip *fiber.Fiber, children []*element.Element) {
	var currentFirst *fiber.Fiber
	track := wip.Alternate != nil
	if track {
		currentFirst = wip.Alternate.Child
	}
	if wip.Tag == fiber.Portal {
		// portal children attach to the portal container, never to a
		// surrounding host instance, so they always carry placements
		track = true
	}
	wip.Child = e.reconcileChildList(wip, currentFirst, children, track)
}

// reconcileChildList is the keyed two-phase list diff.
//
// Phase one walks old and new lists in lockstep while keys line up,
// reusing compatible fibers in place. On the first key mismatch the
// remaining old children are indexed by key (position for unkeyed ones) and
// the remaining new children claim matches out of that index; unclaimed old
// fibers are deleted. A final backward pass decides which reused children
// actually have to move.
func (e *Engine) reconcileChildList(parent *fiber.Fiber, currentFirst *fiber.Fiber, newChildren []*element.Element, track bool) *fiber.Fiber {
	e.warnMixedKeys(parent, newChildren)

	var first, prev *fiber.Fiber
	link := func(f *fiber.Fiber) {
		f.Return = parent
		f.Sibling = nil
		if prev == nil {
			first = f
		} else {
			prev.Sibling = f
		}
		prev = f
	}

	oldFiber := currentFirst
	newIdx := 0

	for oldFiber != nil && newIdx < len(newChildren) {
		el := newChildren[newIdx]
		if oldFiber.Key != el.Key {
			break
		}
		var f *fiber.Fiber
		if oldFiber.Matches(el) {
			f = e.useFiber(oldFiber, el)
		} else {
			// same key, incompatible kind: replace in place
			e.deleteChild(parent, oldFiber, track)
			f = fiber.FromElement(el, e.renderExp)
		}
		f.Index = newIdx
		link(f)
		oldFiber = oldFiber.Sibling
		newIdx++
	}

	switch {
	case newIdx == len(newChildren):
		for ; oldFiber != nil; oldFiber = oldFiber.Sibling {
			e.deleteChild(parent, oldFiber, track)
		}

	case oldFiber == nil:
		for ; newIdx < len(newChildren); newIdx++ {
			f := fiber.FromElement(newChildren[newIdx], e.renderExp)
			f.Index = newIdx
			link(f)
		}

	default:
		// Order changed or identities turned over. Index the old remainder;
		// the set tracks which old fibers are still unclaimed.
		existing := make(map[string]*fiber.Fiber)
		unclaimed := mapset.NewThreadUnsafeSet[*fiber.Fiber]()
		for f := oldFiber; f != nil; f = f.Sibling {
			existing[childMapKey(f.Key, f.Index)] = f
			unclaimed.Add(f)
		}

		for ; newIdx < len(newChildren); newIdx++ {
			el := newChildren[newIdx]
			var f *fiber.Fiber
			if old, ok := existing[childMapKey(el.Key, newIdx)]; ok && unclaimed.Contains(old) && old.Matches(el) {
				unclaimed.Remove(old)
				f = e.useFiber(old, el)
			} else {
				f = fiber.FromElement(el, e.renderExp)
			}
			f.Index = newIdx
			link(f)
		}

		// deletion order follows the old list, not set iteration order
		for f := oldFiber; f != nil; f = f.Sibling {
			if unclaimed.Contains(f) {
				e.deleteChild(parent, f, track)
			}
		}
	}

	markPlacements(first, track)
	return first
}

// markPlacements flags the children that must be inserted or moved. Walking
// backward, a reused child whose committed index is above the lowest
// committed index seen so far jumped rightward in the old order and must
// move; everything else already sits in relative order and stays put. This
// keeps the common "one child hoisted to the front" reorder at a single
// move without computing a full minimal edit script.
func markPlacements(first *fiber.Fiber, track bool) {
	if !track {
		return
	}
	var order []*fiber.Fiber
	for f := first; f != nil; f = f.Sibling {
		order = append(order, f)
	}
	lastPlaced := math.MaxInt
	for i := len(order) - 1; i >= 0; i-- {
		f := order[i]
		alt := f.Alternate
		if alt == nil {
			f.Flags |= fiber.Placement
			continue
		}
		if alt.Index > lastPlaced {
			f.Flags |= fiber.Placement
		} else {
			lastPlaced = alt.Index
		}
	}
}

func (e *Engine) useFiber(current *fiber.Fiber, el *element.Element) *fiber.Fiber {
	return fiber.CreateWorkInProgress(current, el, e.renderExp)
}

// deleteChild schedules a committed fiber for removal. Deletions ride the
// parent's effect list immediately because the deleted fiber is no longer
// reachable from the new child links and would never be completed.
func (e *Engine) deleteChild(parent *fiber.Fiber, child *fiber.Fiber, track bool) {
	if !track {
		return
	}
	child.Flags = fiber.Deletion
	parent.AppendEffect(child)
}

// childMapKey builds the slow-path lookup key: explicit keys match by key,
// unkeyed children match by position. The prefixes keep a user key like "3"
// from colliding with position 3.
func childMapKey(key string, index int) string {
	if key != "" {
		return "k:" + key
	}
	return "i:" + strconv.Itoa(index)
}

func (e *Engine) warnMixedKeys(parent *fiber.Fiber, children []*element.Element) {
	if e.warnedMixedKeys || len(children) < 2 {
		return
	}
	keyed, unkeyed := false, false
	for _, el := range children {
		if el.Key != "" {
			keyed = true
		} else {
			unkeyed = true
		}
	}
	if keyed && unkeyed {
		e.warnedMixedKeys = true
		e.log.Warn("mixed keyed and unkeyed siblings; unkeyed children match by position",
			"parent", parent.ID,
			"children", len(children),
		)
	}
}
