package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionInfo describes a recorded session.
type SessionInfo struct {
	Token      string
	RendererID string
	CreatedMs  int64
	Commits    int64
}

// ReadSession returns every commit of a session in the order it was
// recorded: ORDER BY seq ASC, id ASC so replay is deterministic.
//
// Returns an empty slice (not nil) if the session has no commits.
func (s *Store) ReadSession(ctx context.Context, token string) ([]CommitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, root_id, expiration, effect_count, mutations, unmounts
		FROM commits
		WHERE session = ?
		ORDER BY seq ASC, id ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	var records []CommitRecord
	for rows.Next() {
		rec, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}

	if records == nil {
		records = []CommitRecord{}
	}

	return records, nil
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.token, s.renderer_id, s.created_ms, COUNT(c.id)
		FROM sessions s
		LEFT JOIN commits c ON c.session = s.token
		GROUP BY s.token
		ORDER BY s.created_ms ASC, s.token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.Token, &info.RendererID, &info.CreatedMs, &info.Commits); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	if infos == nil {
		infos = []SessionInfo{}
	}

	return infos, nil
}

// LatestSession returns the most recently created session token.
func (s *Store) LatestSession(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `
		SELECT token FROM sessions ORDER BY created_ms DESC, token DESC LIMIT 1
	`).Scan(&token)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no sessions recorded")
	}
	if err != nil {
		return "", fmt.Errorf("query latest session: %w", err)
	}
	return token, nil
}

func scanCommit(rows *sql.Rows) (CommitRecord, error) {
	var rec CommitRecord
	var mutsJSON, unmountsJSON string
	if err := rows.Scan(
		&rec.Session,
		&rec.Seq,
		&rec.RootID,
		&rec.Expiration,
		&rec.EffectCount,
		&mutsJSON,
		&unmountsJSON,
	); err != nil {
		return CommitRecord{}, fmt.Errorf("scan commit: %w", err)
	}

	muts, err := unmarshalMutations(mutsJSON)
	if err != nil {
		return CommitRecord{}, err
	}
	rec.Mutations = muts

	unmounts, err := unmarshalUnmounts(unmountsJSON)
	if err != nil {
		return CommitRecord{}, err
	}
	rec.Unmounts = unmounts

	return rec, nil
}
