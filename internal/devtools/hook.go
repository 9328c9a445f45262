// Package devtools is the optional instrumentation hook notified of tree
// lifecycle events.
//
// The engine receives a Hook by dependency injection at construction (no-op
// by default) and only ever talks to it through Guard, which recovers
// observer panics and logs them at most once per session - instrumentation
// failures must never break rendering. A process-wide well-known slot is
// also provided for external tooling; installation into it is idempotent.
package devtools

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

// RendererDescriptor identifies an engine instance to external tooling.
// All fields are optional; the hook must tolerate absence of any of them.
type RendererDescriptor struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Mutation is one host mutation applied during a commit, in effect-list
// order. Node identities are the fibers' stable logical IDs.
type Mutation struct {
	Op     string         `json:"op"`
	Node   int64          `json:"node,omitempty"`
	Parent int64          `json:"parent,omitempty"`
	Before int64          `json:"before,omitempty"`
	Type   string         `json:"type,omitempty"`
	Text   string         `json:"text,omitempty"`
	Props  map[string]any `json:"props,omitempty"`
}

// Mutation op kinds, mirroring the host contract surface.
const (
	MutCreate       = "create"
	MutCreateText   = "create_text"
	MutAppend       = "append"
	MutInsertBefore = "insert_before"
	MutRemove       = "remove"
	MutUpdate       = "update"
	MutUpdateText   = "update_text"
	MutResetText    = "reset_text"
)

// CommitSummary describes one committed render pass.
type CommitSummary struct {
	RendererID  string     `json:"renderer_id"`
	RootID      int64      `json:"root_id"`
	Expiration  int64      `json:"expiration"`
	EffectCount int        `json:"effect_count"`
	Mutations   []Mutation `json:"mutations"`
}

// Listener receives emitted events.
type Listener func(payload any)

// Subscription identifies a registered listener for Off.
type Subscription string

// Hook observes tree lifecycle events. Implementations may panic freely;
// the engine wraps every call in Guard.
type Hook interface {
	// Inject registers a renderer and returns its assigned ID.
	Inject(rd RendererDescriptor) string
	// OnScheduleRoot fires when work is first scheduled on an idle root.
	OnScheduleRoot(rendererID string, rootID int64)
	// OnCommitRoot fires after a commit completes and buffers have swapped.
	OnCommitRoot(rendererID string, commit CommitSummary)
	// OnCommitUnmount fires for each fiber deleted during a commit.
	OnCommitUnmount(rendererID string, fiberID int64)

	On(event string, fn Listener) Subscription
	Off(event string, sub Subscription)
	Emit(event string, payload any)
}

// NopHook discards everything. It is the engine's default collaborator,
// keeping the hook an explicit optional dependency rather than a global.
type NopHook struct{}

var _ Hook = NopHook{}

func (NopHook) Inject(RendererDescriptor) string            { return uuid.NewString() }
func (NopHook) OnScheduleRoot(string, int64)                {}
func (NopHook) OnCommitRoot(string, CommitSummary)          {}
func (NopHook) OnCommitUnmount(string, int64)               {}
func (NopHook) On(string, Listener) Subscription            { return "" }
func (NopHook) Off(string, Subscription)                    {}
func (NopHook) Emit(string, any)                            {}

// Emitter is a reusable On/Off/Emit implementation for hook authors.
// Listener identity is a generated subscription token because function
// values are not comparable.
type Emitter struct {
	mu     sync.Mutex
	events map[string]mapset.Set[Subscription]
	subs   map[Subscription]Listener
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		events: make(map[string]mapset.Set[Subscription]),
		subs:   make(map[Subscription]Listener),
	}
}

// On registers fn for the event and returns its subscription token.
func (e *Emitter) On(event string, fn Listener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := Subscription(uuid.NewString())
	set, ok := e.events[event]
	if !ok {
		set = mapset.NewThreadUnsafeSet[Subscription]()
		e.events[event] = set
	}
	set.Add(sub)
	e.subs[sub] = fn
	return sub
}

// Off removes a subscription. Unknown tokens are ignored.
func (e *Emitter) Off(event string, sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if set, ok := e.events[event]; ok {
		set.Remove(sub)
	}
	delete(e.subs, sub)
}

// Emit delivers payload to every listener of the event.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.Lock()
	var fns []Listener
	if set, ok := e.events[event]; ok {
		for sub := range set.Iter() {
			if fn, ok := e.subs[sub]; ok {
				fns = append(fns, fn)
			}
		}
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(payload)
	}
}
