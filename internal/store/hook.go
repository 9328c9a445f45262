package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/loomui/loom/internal/devtools"
)

// RecordingHook is a devtools.Hook that persists every committed pass to a
// Store. A write failure is logged and the record dropped; recording must
// never stall rendering, which runs inside the hook call.
//
// Unmount notifications arrive while the commit is still applying, so they
// are buffered and attached to the pass's record when OnCommitRoot fires.
type RecordingHook struct {
	*devtools.Emitter

	store *Store
	log   *slog.Logger

	mu       sync.Mutex
	session  string
	seq      int64
	unmounts []int64
}

var _ devtools.Hook = (*RecordingHook)(nil)

// NewRecordingHook opens a fresh session on st and returns the hook
// recording into it.
func NewRecordingHook(ctx context.Context, st *Store, log *slog.Logger) (*RecordingHook, error) {
	if log == nil {
		log = slog.Default()
	}
	session, err := st.BeginSession(ctx, "")
	if err != nil {
		return nil, err
	}
	return &RecordingHook{
		Emitter: devtools.NewEmitter(),
		store:   st,
		log:     log,
		session: session,
	}, nil
}

// Session returns the token commits are recorded under.
func (h *RecordingHook) Session() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

func (h *RecordingHook) Inject(rd devtools.RendererDescriptor) string {
	id := uuid.NewString()
	session := h.Session()
	if err := h.store.SetSessionRenderer(context.Background(), session, id); err != nil {
		h.log.Error("failed to attribute session", "session", session, "error", err)
	}
	h.log.Info("renderer attached", "renderer_id", id, "name", rd.Name, "session", session)
	return id
}

func (h *RecordingHook) OnScheduleRoot(rendererID string, rootID int64) {
	h.Emit("scheduleRoot", rootID)
}

func (h *RecordingHook) OnCommitRoot(rendererID string, commit devtools.CommitSummary) {
	h.mu.Lock()
	rec := CommitRecord{
		Session:     h.session,
		Seq:         h.seq,
		RootID:      commit.RootID,
		Expiration:  commit.Expiration,
		EffectCount: commit.EffectCount,
		Mutations:   commit.Mutations,
		Unmounts:    h.unmounts,
	}
	h.seq++
	h.unmounts = nil
	h.mu.Unlock()

	if err := h.store.WriteCommit(context.Background(), rec); err != nil {
		h.log.Error("failed to record commit", "session", rec.Session, "seq", rec.Seq, "error", err)
	}
	h.Emit("commitRoot", commit)
}

func (h *RecordingHook) OnCommitUnmount(rendererID string, fiberID int64) {
	h.mu.Lock()
	h.unmounts = append(h.unmounts, fiberID)
	h.mu.Unlock()
	h.Emit("commitUnmount", fiberID)
}
