package store

import (
	"context"
	"fmt"

	"github.com/loomui/loom/internal/devtools"
	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/host"
)

// Replay rebuilds a host tree from a session's stored mutation stream,
// without the engine or the original element descriptions. Each record
// replays inside the host's commit brackets, mirroring the live passes.
//
// Node identities in the trace are fiber IDs; a parent ID the trace never
// created (the root, or a portal target) resolves to the given container.
func Replay(ctx context.Context, st *Store, token string, h host.Config, container any) error {
	records, err := st.ReadSession(ctx, token)
	if err != nil {
		return err
	}

	r := &replayer{
		h:         h,
		container: container,
		rootCtx:   h.GetRootHostContext(container),
		nodes:     make(map[int64]any),
	}
	for _, rec := range records {
		if len(rec.Mutations) == 0 {
			continue
		}
		h.PrepareForCommit(container)
		for _, m := range rec.Mutations {
			if err := r.apply(m); err != nil {
				h.ResetAfterCommit(container)
				return fmt.Errorf("replay session %s seq %d: %w", token, rec.Seq, err)
			}
		}
		h.ResetAfterCommit(container)
	}
	return nil
}

type replayer struct {
	h         host.Config
	container any
	rootCtx   any
	nodes     map[int64]any
}

func (r *replayer) node(id int64) (any, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown node %d", id)
	}
	return n, nil
}

func (r *replayer) parent(id int64) any {
	if n, ok := r.nodes[id]; ok {
		return n
	}
	return r.container
}

func (r *replayer) apply(m devtools.Mutation) error {
	switch m.Op {
	case devtools.MutCreate:
		inst, err := r.h.CreateInstance(m.Type, element.Props(m.Props), r.container, r.rootCtx)
		if err != nil {
			return fmt.Errorf("create %q: %w", m.Type, err)
		}
		r.nodes[m.Node] = inst

	case devtools.MutCreateText:
		inst, err := r.h.CreateTextInstance(m.Text, r.container, r.rootCtx)
		if err != nil {
			return fmt.Errorf("create text: %w", err)
		}
		r.nodes[m.Node] = inst

	case devtools.MutAppend:
		n, err := r.node(m.Node)
		if err != nil {
			return err
		}
		r.h.AppendChild(r.parent(m.Parent), n)

	case devtools.MutInsertBefore:
		n, err := r.node(m.Node)
		if err != nil {
			return err
		}
		before, err := r.node(m.Before)
		if err != nil {
			return err
		}
		r.h.InsertBefore(r.parent(m.Parent), n, before)

	case devtools.MutRemove:
		n, err := r.node(m.Node)
		if err != nil {
			return err
		}
		r.h.RemoveChild(r.parent(m.Parent), n)

	case devtools.MutUpdate:
		n, err := r.node(m.Node)
		if err != nil {
			return err
		}
		if err := r.h.CommitUpdate(n, element.Props(m.Props), m.Type, nil, element.Props(m.Props)); err != nil {
			return fmt.Errorf("update %q: %w", m.Type, err)
		}

	case devtools.MutUpdateText:
		n, err := r.node(m.Node)
		if err != nil {
			return err
		}
		if err := r.h.CommitTextUpdate(n, "", m.Text); err != nil {
			return fmt.Errorf("update text: %w", err)
		}

	case devtools.MutResetText:
		n, err := r.node(m.Node)
		if err != nil {
			return err
		}
		r.h.ResetTextContent(n)

	default:
		return fmt.Errorf("unknown mutation op %q", m.Op)
	}
	return nil
}
