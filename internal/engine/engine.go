package engine

import (
	"log/slog"

	"github.com/loomui/loom/internal/devtools"
	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/fiber"
	"github.com/loomui/loom/internal/host"
	"github.com/loomui/loom/internal/sched"
)

// Version is reported to devtools tooling on injection.
const Version = "0.1.0"

// Phase is the engine's scheduling state.
type Phase uint8

const (
	// PhaseIdle: no pending work on any root.
	PhaseIdle Phase = iota
	// PhaseScheduled: work is pending, waiting for a host callback.
	PhaseScheduled
	// PhaseRendering: a work-in-progress tree is being built.
	PhaseRendering
	// PhaseCommitting: a finished tree is being applied to the host.
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScheduled:
		return "scheduled"
	case PhaseRendering:
		return "rendering"
	case PhaseCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// Engine reconciles element trees into a host target. One engine drives any
// number of roots, single-threaded: all entry points must be called from the
// same goroutine that services host callbacks.
type Engine struct {
	host  host.Config
	clock sched.Clock
	hook  *devtools.Guard
	log   *slog.Logger

	rendererID string

	roots []*Root
	phase Phase

	// In-flight render pass. nextUnit survives yields so a pass resumes at
	// the fiber boundary it stopped at; an interrupt clears it instead.
	wipRoot   *Root
	nextUnit  *fiber.Fiber
	renderExp sched.ExpirationTime

	// Context machinery for the current pass.
	providerStack []providerEntry
	ctxValues     map[*element.Context]any
	hostCtxStack  []hostCtxEntry
	reading       *fiber.Fiber

	callbackScheduled bool
	warnedMixedKeys   bool
	isPerformingWork  bool

	// interrupted asks the render loop to discard the in-flight pass at the
	// next unit boundary. Set instead of resetting inline when more urgent
	// work arrives from inside a unit of work, where the value stacks and
	// nextUnit are still live.
	interrupted bool
}

var _ element.Reader = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithClock substitutes the time source. Tests drive a manual clock.
func WithClock(c sched.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDevtools attaches an instrumentation hook, overriding the globally
// installed one.
func WithDevtools(h devtools.Hook) Option {
	return func(e *Engine) { e.hook = devtools.NewGuard(h) }
}

// WithLogger substitutes the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine bound to a host configuration.
func New(h host.Config, opts ...Option) *Engine {
	e := &Engine{
		host:      h,
		clock:     sched.NewClock(),
		log:       slog.Default(),
		ctxValues: make(map[*element.Context]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.hook == nil {
		e.hook = devtools.NewGuard(devtools.Installed())
	}
	e.rendererID = e.hook.Inject(devtools.RendererDescriptor{Name: "loom", Version: Version})
	return e
}

// Phase returns the engine's current scheduling state.
func (e *Engine) Phase() Phase { return e.phase }

// Root binds a fiber tree to a host container. The fiber field always holds
// the committed buffer; a render pass builds its alternate and the commit
// swaps them.
type Root struct {
	engine    *Engine
	fiber     *fiber.Fiber
	container any
	hostCtx   any

	// element is the latest description rendered into this root. Updates
	// replace it wholesale; urgency is tracked separately in pending.
	element *element.Element

	// pending holds the deadlines of updates not yet committed. A commit at
	// deadline T retires every entry at least as urgent as T; anything less
	// urgent triggers a follow-up pass recomputed from scratch.
	pending  []sched.ExpirationTime
	finished *fiber.Fiber

	lastError error
	released  bool
}

// ID returns the root's stable logical identity.
func (r *Root) ID() int64 { return r.fiber.ID }

// Container returns the host container handle.
func (r *Root) Container() any { return r.container }

// Current returns the committed fiber tree.
func (r *Root) Current() *fiber.Fiber { return r.fiber }

// LastError returns the error of the most recent failed pass, if any.
func (r *Root) LastError() error { return r.lastError }

func (r *Root) expiration() sched.ExpirationTime {
	var out sched.ExpirationTime
	for _, p := range r.pending {
		out = sched.Earliest(out, p)
	}
	return out
}

func (r *Root) clearPending(upTo sched.ExpirationTime) {
	kept := r.pending[:0]
	for _, p := range r.pending {
		if sched.MoreUrgent(upTo, p) {
			kept = append(kept, p)
		}
	}
	r.pending = kept
}

// CreateRoot anchors a new tree to a host container.
func (e *Engine) CreateRoot(container any) *Root {
	root := &Root{
		engine:    e,
		fiber:     fiber.NewRoot(container),
		container: container,
		hostCtx:   e.host.GetRootHostContext(container),
	}
	e.roots = append(e.roots, root)
	return root
}

// Render schedules el as the root's new description at the given priority.
// Sync renders flush before returning and report the pass outcome; async
// renders return immediately and surface failures via LastError.
func (e *Engine) Render(root *Root, el *element.Element, p sched.Priority) error {
	if root == nil || root.released {
		return &RuntimeError{Code: ErrCodeRootNotMounted, Message: "render on released root"}
	}
	exp := sched.Compute(p, e.clock.Now())
	root.element = el
	root.lastError = nil
	e.scheduleRoot(root, exp)
	if exp == sched.Sync {
		e.PerformWork(sched.NewTimedOutDeadline())
		return root.lastError
	}
	return nil
}

// Unmount synchronously removes the root's tree and releases the root.
func (e *Engine) Unmount(root *Root) error {
	if root == nil || root.released {
		return &RuntimeError{Code: ErrCodeRootNotMounted, Message: "unmount on released root"}
	}
	err := e.Render(root, nil, sched.PrioritySync)
	root.released = true
	for i, r := range e.roots {
		if r == root {
			e.roots = append(e.roots[:i], e.roots[i+1:]...)
			break
		}
	}
	return err
}

func (e *Engine) scheduleRoot(root *Root, exp sched.ExpirationTime) {
	wasIdle := len(root.pending) == 0
	dup := false
	for _, p := range root.pending {
		if p == exp {
			dup = true
			break
		}
	}
	if !dup {
		root.pending = append(root.pending, exp)
	}
	if wasIdle {
		e.hook.OnScheduleRoot(e.rendererID, root.ID())
	}
	// More urgent work discards an in-flight lower-priority pass whole; the
	// discarded work is recomputed later at its own deadline.
	if e.wipRoot != nil && e.nextUnit != nil && sched.MoreUrgent(exp, e.renderExp) {
		e.log.Debug("interrupting in-flight pass",
			"root", e.wipRoot.ID(),
			"in_flight", int64(e.renderExp),
			"incoming", int64(exp),
		)
		if e.isPerformingWork {
			// scheduled from inside a unit of work (a render-phase update):
			// the current unit must finish before the pass can be discarded
			e.interrupted = true
		} else {
			e.resetWorkInProgress()
		}
	}
	if e.phase == PhaseIdle {
		e.phase = PhaseScheduled
	}
	e.requestCallback(exp)
}

// nextPaintHorizonMs: deadlines this close are serviced before the next
// paint rather than during idle time.
const nextPaintHorizonMs = 200

func (e *Engine) requestCallback(exp sched.ExpirationTime) {
	if exp == sched.Sync || e.callbackScheduled {
		return
	}
	e.callbackScheduled = true
	if sched.ExpirationTimeToMs(exp)-e.clock.Now() <= nextPaintHorizonMs {
		e.host.ScheduleAnimationCallback(e.performAnimationWork)
		return
	}
	e.host.ScheduleDeferredCallback(e.performDeferredWork)
}

func (e *Engine) performAnimationWork() {
	e.callbackScheduled = false
	e.PerformWork(sched.NewTimedOutDeadline())
}

func (e *Engine) performDeferredWork(deadline sched.Deadline) {
	e.callbackScheduled = false
	e.PerformWork(deadline)
}

// PerformWork flushes pending roots in urgency order until the deadline runs
// out. Expired work ignores the deadline: once a deadline has passed, the
// pass runs to completion so a stream of urgent updates cannot starve it.
func (e *Engine) PerformWork(deadline sched.Deadline) {
	if e.isPerformingWork {
		// re-entrant Render from user code only schedules
		return
	}
	e.isPerformingWork = true
	defer func() { e.isPerformingWork = false }()

	for {
		root := e.nextFlushableRoot()
		if root == nil {
			e.phase = PhaseIdle
			return
		}
		exp := root.expiration()
		mustFlush := exp == sched.Sync || exp.Expired(e.clock.Now()) || deadline.DidTimeout()
		if !mustFlush && deadline.TimeRemaining() <= 0 {
			e.phase = PhaseScheduled
			e.requestCallback(exp)
			return
		}
		finished, err := e.renderRoot(root, deadline, !mustFlush)
		if err != nil {
			e.handleFatal(root, exp, err)
			continue
		}
		if finished == nil {
			if e.wipRoot == nil {
				// discarded mid-loop by a more urgent re-entrant schedule;
				// service the urgent deadline in this same flush
				continue
			}
			// yielded at a fiber boundary; resume on the next callback
			e.phase = PhaseScheduled
			e.requestCallback(exp)
			return
		}
		if err := e.commitRoot(root, finished, exp); err != nil {
			e.log.Error("commit failed", "root", root.ID(), "err", err)
			root.lastError = err
			e.phase = PhaseIdle
			return
		}
	}
}

func (e *Engine) nextFlushableRoot() *Root {
	var best *Root
	var bestExp sched.ExpirationTime
	for _, r := range e.roots {
		exp := r.expiration()
		if exp == sched.NoWork {
			continue
		}
		if best == nil || sched.MoreUrgent(exp, bestExp) {
			best, bestExp = r, exp
		}
	}
	return best
}

func (e *Engine) handleFatal(root *Root, exp sched.ExpirationTime, err error) {
	root.lastError = err
	root.clearPending(exp)
	e.log.Error("render pass failed; committed tree left untouched",
		"root", root.ID(),
		"err", err,
	)
}

// renderRoot builds (or resumes) the work-in-progress tree for root. It
// returns the finished root fiber, or nil if the pass yielded.
func (e *Engine) renderRoot(root *Root, deadline sched.Deadline, yieldy bool) (*fiber.Fiber, error) {
	exp := root.expiration()
	if e.wipRoot != root || e.nextUnit == nil || e.renderExp != exp {
		e.resetWorkInProgress()
		e.wipRoot = root
		e.renderExp = exp
		root.finished = nil
		e.nextUnit = fiber.CreateWorkInProgress(root.fiber, nil, exp)
		e.log.Debug("render pass started", "root", root.ID(), "expiration", int64(exp))
	}
	e.phase = PhaseRendering

	for e.nextUnit != nil {
		if yieldy && deadline.TimeRemaining() <= 0 {
			return nil, nil
		}
		next, err := e.performUnitOfWork(e.nextUnit)
		if err != nil {
			return nil, err
		}
		if e.interrupted {
			e.resetWorkInProgress()
			return nil, nil
		}
		e.nextUnit = next
	}

	finished := root.finished
	e.wipRoot = nil
	e.renderExp = sched.NoWork
	return finished, nil
}

func (e *Engine) performUnitOfWork(wip *fiber.Fiber) (*fiber.Fiber, error) {
	next, err := e.beginWork(wip)
	if err != nil {
		return e.unwind(wip.Return, err)
	}
	if next == nil {
		return e.completeUnitOfWork(wip)
	}
	return next, nil
}

func (e *Engine) completeUnitOfWork(f *fiber.Fiber) (*fiber.Fiber, error) {
	for {
		if err := e.completeWork(f); err != nil {
			return e.unwind(f.Return, err)
		}
		f.Memoized = f.Pending
		e.retireExpiration(f)

		ret := f.Return
		if ret == nil {
			e.wipRoot.finished = f
			return nil, nil
		}
		ret.BubbleEffects(f)
		if f.Sibling != nil {
			return f.Sibling, nil
		}
		f = ret
	}
}

// retireExpiration clears a fiber's own deadline once this pass has serviced
// it and re-summarizes the subtree deadline from its (possibly untouched)
// children.
func (e *Engine) retireExpiration(f *fiber.Fiber) {
	if f.ExpirationTime != sched.NoWork && !sched.MoreUrgent(e.renderExp, f.ExpirationTime) {
		f.ExpirationTime = sched.NoWork
	}
	var childExp sched.ExpirationTime
	for c := f.Child; c != nil; c = c.Sibling {
		childExp = sched.Earliest(childExp, sched.Earliest(c.ExpirationTime, c.ChildExpirationTime))
	}
	f.ChildExpirationTime = childExp
}

// unwind walks from a failing fiber's parent toward the root, restoring the
// value stacks fiber by fiber. The first boundary without a captured error
// claims err and re-renders with its fallback; if none exists the pass is
// abandoned and the committed tree stays in place.
func (e *Engine) unwind(from *fiber.Fiber, err error) (*fiber.Fiber, error) {
	e.reading = nil
	for f := from; f != nil; f = f.Return {
		switch f.Tag {
		case fiber.ContextProvider:
			e.popProvider(f)
		case fiber.HostComponent:
			e.popHostContext(f)
		case fiber.ErrorBoundary:
			if f.Flags&fiber.DidCapture == 0 {
				f.Flags |= fiber.DidCapture
				f.MemoizedState = err
				// effects gathered by the abandoned children are stale
				f.FirstEffect, f.LastEffect = nil, nil
				e.log.Warn("render error captured by boundary", "fiber", f.ID, "err", err)
				return f, nil
			}
		}
	}
	var rootID int64
	if e.wipRoot != nil {
		rootID = e.wipRoot.ID()
	}
	e.resetWorkInProgress()
	return nil, &RuntimeError{
		Code:    ErrCodeUncaughtRender,
		Message: "render error reached the root",
		RootID:  rootID,
		Err:     err,
	}
}

// resetWorkInProgress discards the in-flight pass and rebalances the value
// stacks. The discarded tree is never partially reused: a later pass starts
// again from the committed buffer.
func (e *Engine) resetWorkInProgress() {
	for len(e.providerStack) > 0 {
		e.popProviderTop()
	}
	e.hostCtxStack = e.hostCtxStack[:0]
	if e.wipRoot != nil {
		e.wipRoot.finished = nil
	}
	e.wipRoot = nil
	e.nextUnit = nil
	e.renderExp = sched.NoWork
	e.reading = nil
	e.interrupted = false
}
