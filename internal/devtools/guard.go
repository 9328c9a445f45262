package devtools

import (
	"log/slog"
	"sync"
)

// Guard wraps a Hook so observer failures cannot interrupt the render/commit
// cycle: every call recovers panics, and the first failure is logged; later
// ones are swallowed silently so a broken observer cannot spam the log.
type Guard struct {
	hook    Hook
	logOnce sync.Once
}

// NewGuard wraps hook. A nil hook yields a guard around NopHook.
func NewGuard(hook Hook) *Guard {
	if hook == nil {
		hook = NopHook{}
	}
	return &Guard{hook: hook}
}

func (g *Guard) protect(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logOnce.Do(func() {
				slog.Error("devtools hook failed; suppressing further hook errors",
					"op", op,
					"panic", r,
				)
			})
		}
	}()
	fn()
}

// Inject registers the renderer, falling back to an empty ID on failure.
func (g *Guard) Inject(rd RendererDescriptor) string {
	var id string
	g.protect("inject", func() { id = g.hook.Inject(rd) })
	return id
}

func (g *Guard) OnScheduleRoot(rendererID string, rootID int64) {
	g.protect("on_schedule_root", func() { g.hook.OnScheduleRoot(rendererID, rootID) })
}

func (g *Guard) OnCommitRoot(rendererID string, commit CommitSummary) {
	g.protect("on_commit_root", func() { g.hook.OnCommitRoot(rendererID, commit) })
}

func (g *Guard) OnCommitUnmount(rendererID string, fiberID int64) {
	g.protect("on_commit_unmount", func() { g.hook.OnCommitUnmount(rendererID, fiberID) })
}

func (g *Guard) Emit(event string, payload any) {
	g.protect("emit", func() { g.hook.Emit(event, payload) })
}
