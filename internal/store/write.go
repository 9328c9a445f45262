package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loomui/loom/internal/devtools"
)

// CommitRecord is one committed render pass within a session. Seq orders
// passes within the session and is assigned by the writer.
type CommitRecord struct {
	Session     string
	Seq         int64
	RootID      int64
	Expiration  int64
	EffectCount int
	Mutations   []devtools.Mutation
	Unmounts    []int64
}

// BeginSession registers a new trace session and returns its token.
func (s *Store) BeginSession(ctx context.Context, rendererID string) (string, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, renderer_id, created_ms)
		VALUES (?, ?, ?)
	`, token, rendererID, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	return token, nil
}

// SetSessionRenderer attributes a session to the renderer recording into it.
// The renderer ID is only known once the engine injects into the hook, after
// the session row already exists.
func (s *Store) SetSessionRenderer(ctx context.Context, token, rendererID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET renderer_id = ? WHERE token = ?
	`, rendererID, token)
	if err != nil {
		return fmt.Errorf("set session renderer: %w", err)
	}
	return nil
}

// WriteCommit appends a commit record to its session.
// Uses ON CONFLICT(session, seq) DO NOTHING for idempotency - a retried
// write of the same pass is silently ignored. Other constraint violations
// (e.g. an unknown session) still return errors.
func (s *Store) WriteCommit(ctx context.Context, rec CommitRecord) error {
	mutsJSON, err := marshalMutations(rec.Mutations)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}

	unmountsJSON, err := marshalUnmounts(rec.Unmounts)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commits
		(session, seq, root_id, expiration, effect_count, mutations, unmounts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		rec.Session,
		rec.Seq,
		rec.RootID,
		rec.Expiration,
		rec.EffectCount,
		mutsJSON,
		unmountsJSON,
	)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}

	return nil
}
