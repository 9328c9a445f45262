package host

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/sched"
)

// Node is the Recording host's target node.
type Node struct {
	ID       int64
	Type     string // empty for text nodes
	Text     string
	Props    element.Props
	Children []*Node
}

// Op is one recorded host call. Fields are zero when not applicable to the
// operation kind.
type Op struct {
	Op      string `json:"op"`
	Type    string `json:"type,omitempty"`
	Text    string `json:"text,omitempty"`
	OldText string `json:"old_text,omitempty"`
	Node    int64  `json:"node,omitempty"`
	Parent  int64  `json:"parent,omitempty"`
	Before  int64  `json:"before,omitempty"`

	Props element.Props `json:"props,omitempty"`
}

// Op kinds recorded by the Recording host.
const (
	OpCreate        = "create"
	OpCreateText    = "create_text"
	OpAppendInitial = "append_initial"
	OpAppend        = "append"
	OpInsertBefore  = "insert_before"
	OpRemove        = "remove"
	OpUpdate        = "update"
	OpUpdateText    = "update_text"
	OpResetText     = "reset_text"
	OpPrepareCommit = "prepare_commit"
	OpResetCommit   = "reset_commit"
)

// Recording is an in-memory Config that applies mutations to a Node tree
// and records every call in order. It also queues scheduling callbacks for
// manual flushing, giving tests full control over time slicing.
//
// Not safe for concurrent use; the engine is single-threaded by design.
type Recording struct {
	Container *Node
	Ops       []Op

	// FailCreate, when set, makes CreateInstance fail for the given type.
	// Fault injection for commit/boundary tests.
	FailCreate map[string]error
	// FailUpdate makes CommitUpdate fail for the given type.
	FailUpdate map[string]error

	deferred []func(sched.Deadline)
	anim     []func()

	nextID atomic.Int64
}

var _ Config = (*Recording)(nil)

// NewRecording creates a recording host with an empty root container.
func NewRecording() *Recording {
	r := &Recording{}
	r.Container = &Node{ID: r.nextID.Add(1), Type: "#root"}
	return r
}

func (r *Recording) record(op Op) { r.Ops = append(r.Ops, op) }

// TakeOps returns the recorded operations and clears the log.
func (r *Recording) TakeOps() []Op {
	ops := r.Ops
	r.Ops = nil
	return ops
}

// MutationOps returns recorded ops excluding the commit brackets - the calls
// that actually changed the target tree.
func (r *Recording) MutationOps() []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Op == OpPrepareCommit || op.Op == OpResetCommit {
			continue
		}
		out = append(out, op)
	}
	return out
}

func (r *Recording) GetRootHostContext(rootContainer any) any { return "root-ctx" }

func (r *Recording) GetChildHostContext(parentContext any, typ string, rootContainer any) any {
	return parentContext
}

func (r *Recording) CreateInstance(typ string, props element.Props, rootContainer, hostContext any) (any, error) {
	if err := r.FailCreate[typ]; err != nil {
		return nil, err
	}
	n := &Node{ID: r.nextID.Add(1), Type: typ, Props: props.Clone()}
	if text, ok := props["textContent"].(string); ok {
		n.Text = text
	}
	r.record(Op{Op: OpCreate, Type: typ, Node: n.ID, Props: props.Clone()})
	return n, nil
}

func (r *Recording) CreateTextInstance(text string, rootContainer, hostContext any) (any, error) {
	n := &Node{ID: r.nextID.Add(1), Text: text}
	r.record(Op{Op: OpCreateText, Text: text, Node: n.ID})
	return n, nil
}

func (r *Recording) AppendInitialChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	p.Children = append(p.Children, c)
	r.record(Op{Op: OpAppendInitial, Parent: p.ID, Node: c.ID})
}

func (r *Recording) AppendChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	p.detach(c)
	p.Children = append(p.Children, c)
	r.record(Op{Op: OpAppend, Parent: p.ID, Node: c.ID})
}

func (r *Recording) InsertBefore(parent, child, before any) {
	p, c, b := parent.(*Node), child.(*Node), before.(*Node)
	p.detach(c)
	for i, sib := range p.Children {
		if sib == b {
			p.Children = append(p.Children[:i], append([]*Node{c}, p.Children[i:]...)...)
			r.record(Op{Op: OpInsertBefore, Parent: p.ID, Node: c.ID, Before: b.ID})
			return
		}
	}
	panic(fmt.Sprintf("host: insertBefore target %d not a child of %d", b.ID, p.ID))
}

func (r *Recording) RemoveChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	p.detach(c)
	r.record(Op{Op: OpRemove, Parent: p.ID, Node: c.ID})
}

func (n *Node) detach(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return
		}
	}
}

// PrepareUpdate diffs props into a patch map: changed keys map to their new
// value, removed keys map to nil. Equal fingerprints skip the per-key walk.
func (r *Recording) PrepareUpdate(instance any, typ string, oldProps, newProps element.Props, hostContext any) (any, bool) {
	oldFP, newFP := oldProps.Fingerprint(), newProps.Fingerprint()
	if oldFP != 0 && oldFP == newFP {
		return nil, false
	}
	patch := element.Props{}
	for k, v := range newProps {
		if old, ok := oldProps[k]; !ok || !element.ObjectIs(old, v) {
			patch[k] = v
		}
	}
	for k := range oldProps {
		if _, ok := newProps[k]; !ok {
			patch[k] = nil
		}
	}
	if len(patch) == 0 {
		return nil, false
	}
	return patch, true
}

func (r *Recording) CommitUpdate(instance, payload any, typ string, oldProps, newProps element.Props) error {
	if err := r.FailUpdate[typ]; err != nil {
		return err
	}
	n := instance.(*Node)
	patch := payload.(element.Props)
	if n.Props == nil {
		n.Props = element.Props{}
	}
	for k, v := range patch {
		if v == nil {
			delete(n.Props, k)
		} else {
			n.Props[k] = v
		}
	}
	if text, ok := patch["textContent"].(string); ok {
		n.Text = text
	}
	r.record(Op{Op: OpUpdate, Type: typ, Node: n.ID, Props: patch.Clone()})
	return nil
}

func (r *Recording) CommitTextUpdate(textInstance any, oldText, newText string) error {
	n := textInstance.(*Node)
	n.Text = newText
	r.record(Op{Op: OpUpdateText, Node: n.ID, Text: newText, OldText: oldText})
	return nil
}

// ShouldSetTextContent: a "textContent" prop means the host owns the node's
// text directly and the engine skips child text fibers.
func (r *Recording) ShouldSetTextContent(typ string, props element.Props) bool {
	_, ok := props["textContent"]
	return ok
}

func (r *Recording) ResetTextContent(instance any) {
	n := instance.(*Node)
	n.Text = ""
	r.record(Op{Op: OpResetText, Node: n.ID})
}

func (r *Recording) PrepareForCommit(rootContainer any) {
	r.record(Op{Op: OpPrepareCommit})
}

func (r *Recording) ResetAfterCommit(rootContainer any) {
	r.record(Op{Op: OpResetCommit})
}

func (r *Recording) ScheduleAnimationCallback(fn func()) {
	r.anim = append(r.anim, fn)
}

func (r *Recording) ScheduleDeferredCallback(fn func(deadline sched.Deadline)) {
	r.deferred = append(r.deferred, fn)
}

// PendingDeferred reports how many deferred callbacks are queued.
func (r *Recording) PendingDeferred() int { return len(r.deferred) }

// FlushDeferred runs queued deferred callbacks under the given deadline.
// Callbacks scheduled during the flush wait for the next flush, mirroring
// how a real host schedules follow-up idle slices.
func (r *Recording) FlushDeferred(deadline sched.Deadline) {
	pending := r.deferred
	r.deferred = nil
	for _, fn := range pending {
		fn(deadline)
	}
}

// FlushAnimation runs queued animation callbacks.
func (r *Recording) FlushAnimation() {
	pending := r.anim
	r.anim = nil
	for _, fn := range pending {
		fn()
	}
}

// TreeString renders the container tree in a stable indented form for
// fixtures and golden files.
func (r *Recording) TreeString() string {
	var buf bytes.Buffer
	writeNode(&buf, r.Container, 0)
	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *Node, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
	if n.Type == "" {
		fmt.Fprintf(buf, "%q\n", n.Text)
		return
	}
	buf.WriteString(n.Type)
	if len(n.Props) > 0 {
		if b, err := element.MarshalCanonical(n.Props); err == nil {
			buf.WriteByte(' ')
			buf.Write(b)
		}
	}
	if n.Text != "" {
		fmt.Fprintf(buf, " %q", n.Text)
	}
	buf.WriteByte('\n')
	for _, c := range n.Children {
		writeNode(buf, c, depth+1)
	}
}
