package engine

import (
	"fmt"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/fiber"
	"github.com/loomui/loom/internal/sched"
)

// providerEntry is one frame of the provider value stack, carrying the value
// it shadowed so pops restore it exactly. The stack is balanced on every
// exit path: normal completion, error unwind, and pass interruption.
type providerEntry struct {
	f       *fiber.Fiber
	prev    any
	prevHas bool
}

func (e *Engine) pushProvider(f *fiber.Fiber, value any) {
	ctx := f.Context
	prev, ok := e.ctxValues[ctx]
	e.providerStack = append(e.providerStack, providerEntry{f: f, prev: prev, prevHas: ok})
	e.ctxValues[ctx] = value
}

func (e *Engine) popProvider(f *fiber.Fiber) {
	n := len(e.providerStack)
	if n == 0 {
		panic("engine: provider stack underflow")
	}
	top := e.providerStack[n-1]
	if top.f.Context != f.Context {
		panic(fmt.Sprintf("engine: unbalanced provider pop: have %q, want %q",
			top.f.Context.Name, f.Context.Name))
	}
	e.popProviderTop()
}

func (e *Engine) popProviderTop() {
	n := len(e.providerStack)
	top := e.providerStack[n-1]
	e.providerStack = e.providerStack[:n-1]
	if top.prevHas {
		e.ctxValues[top.f.Context] = top.prev
	} else {
		delete(e.ctxValues, top.f.Context)
	}
}

// prepareToRead makes f the reading fiber and drops last render's dependency
// list; reads during this render rebuild it from scratch.
func (e *Engine) prepareToRead(f *fiber.Fiber) {
	f.Dependencies = nil
	e.reading = f
}

func (e *Engine) finishReading() {
	e.reading = nil
}

// ReadContext implements element.Reader. It returns the innermost provided
// value for ctx (or its default) and records the read on the rendering
// fiber's dependency list. Calling it outside a render is a programming
// error, not a recoverable condition.
func (e *Engine) ReadContext(ctx *element.Context, observedBits int32) any {
	f := e.reading
	if f == nil {
		panic("engine: ReadContext called outside render")
	}
	bits := observedBits
	if bits == 0 {
		bits = element.MaxChangedBits
	}
	if f.Dependencies == nil {
		f.Dependencies = &fiber.Dependencies{}
	}
	var found *fiber.ContextDependency
	for rec := f.Dependencies.First; rec != nil; rec = rec.Next {
		if rec.Context == ctx {
			found = rec
			break
		}
	}
	if found != nil {
		found.ObservedBits |= bits
	} else {
		f.Dependencies.First = &fiber.ContextDependency{
			Context:      ctx,
			ObservedBits: bits,
			Next:         f.Dependencies.First,
		}
	}
	if v, ok := e.ctxValues[ctx]; ok {
		return v
	}
	return ctx.Default
}

// changedBits compares two provided values. ObjectIs decides whether
// anything changed at all; the context's own comparator then refines the
// change to a bitmask.
func (e *Engine) changedBits(ctx *element.Context, oldValue, newValue any) int32 {
	if element.ObjectIs(oldValue, newValue) {
		return 0
	}
	if ctx.CalculateChangedBits == nil {
		return element.MaxChangedBits
	}
	bits := ctx.CalculateChangedBits(oldValue, newValue)
	if bits&^element.MaxChangedBits != 0 {
		e.log.Warn("changed bits out of range, clamping", "context", ctx.Name, "bits", bits)
		bits &= element.MaxChangedBits
	}
	return bits
}

// propagateContextChange walks the committed subtree below a provider whose
// value changed and marks every fiber whose recorded reads intersect the
// changed bits. Marked fibers (and the parent chain's subtree summaries) get
// the pass's deadline so bailouts cannot skip over them. The walk stops at a
// nested provider of the same context: its subtree sees that provider's
// value, not ours.
func (e *Engine) propagateContextChange(provider *fiber.Fiber, ctx *element.Context, changed int32) {
	f := provider.Child
	if f != nil {
		// the committed child still points at the committed provider;
		// reparent so the walk cannot escape this subtree
		f.Return = provider
	}
	for f != nil && f != provider {
		var next *fiber.Fiber
		if deps := f.Dependencies; deps != nil {
			next = f.Child
			for rec := deps.First; rec != nil; rec = rec.Next {
				if rec.Context == ctx && rec.ObservedBits&changed != 0 {
					e.markContextWork(f, provider)
					break
				}
			}
		} else if f.Tag == fiber.ContextProvider && f.Context == ctx {
			next = nil
		} else {
			next = f.Child
		}
		if next != nil {
			next.Return = f
			f = next
			continue
		}
		node := f
		for {
			if node == provider {
				return
			}
			if node.Sibling != nil {
				node.Sibling.Return = node.Return
				next = node.Sibling
				break
			}
			node = node.Return
			if node == nil {
				return
			}
		}
		f = next
	}
}

func (e *Engine) markContextWork(f *fiber.Fiber, stopAt *fiber.Fiber) {
	f.ExpirationTime = sched.Earliest(f.ExpirationTime, e.renderExp)
	if alt := f.Alternate; alt != nil {
		alt.ExpirationTime = sched.Earliest(alt.ExpirationTime, e.renderExp)
	}
	for node := f.Return; node != nil; node = node.Return {
		node.ChildExpirationTime = sched.Earliest(node.ChildExpirationTime, e.renderExp)
		if alt := node.Alternate; alt != nil {
			alt.ChildExpirationTime = sched.Earliest(alt.ChildExpirationTime, e.renderExp)
		}
		if node == stopAt {
			return
		}
	}
}

// hostCtxEntry is one frame of the host context stack. self is the context
// that applied to the fiber's own instance creation; child is handed to its
// descendants.
type hostCtxEntry struct {
	f     *fiber.Fiber
	self  any
	child any
}

func (e *Engine) pushHostContext(f *fiber.Fiber) {
	parent := e.topHostContext()
	e.hostCtxStack = append(e.hostCtxStack, hostCtxEntry{
		f:     f,
		self:  parent,
		child: e.host.GetChildHostContext(parent, f.Type, e.wipRoot.container),
	})
}

func (e *Engine) popHostContext(f *fiber.Fiber) any {
	n := len(e.hostCtxStack)
	if n == 0 {
		panic("engine: host context stack underflow")
	}
	top := e.hostCtxStack[n-1]
	if top.f != f {
		panic("engine: unbalanced host context pop")
	}
	e.hostCtxStack = e.hostCtxStack[:n-1]
	return top.self
}

func (e *Engine) topHostContext() any {
	if n := len(e.hostCtxStack); n > 0 {
		return e.hostCtxStack[n-1].child
	}
	return e.wipRoot.hostCtx
}
