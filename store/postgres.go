// Package store persists reconciliation runs, match proofs, and
// history entries to Postgres via pgx. Adapted from the teacher's
// internal/db/postgres.go: pgxpool connect/schema/transaction idioms
// kept, table and query shapes rewritten for this domain.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/ledgerrecon/pkg/history"
	"github.com/rawblock/ledgerrecon/pkg/models"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}
	log.Println("Successfully connected to PostgreSQL for ledgerrecon")
	return &Store{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recon_runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	left_count INT NOT NULL,
	right_count INT NOT NULL,
	matched_count INT NOT NULL,
	left_only_count INT NOT NULL,
	right_only_count INT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_proofs (
	run_id TEXT NOT NULL REFERENCES recon_runs(id) ON DELETE CASCADE,
	seq INT NOT NULL,
	bucket_id TEXT NOT NULL,
	pass TEXT NOT NULL,
	ambiguous BOOLEAN NOT NULL,
	ambiguity_reason TEXT,
	nodes_visited INT NOT NULL,
	nodes_pruned INT NOT NULL,
	cap_hit BOOLEAN NOT NULL,
	proof_json JSONB NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS history_entries (
	workbook_id TEXT NOT NULL,
	entry_id BIGINT NOT NULL,
	kind_tag SMALLINT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	action_json JSONB NOT NULL,
	PRIMARY KEY (workbook_id, entry_id)
);
`

// InitSchema creates the persistence tables if they do not already
// exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}
	log.Println("ledgerrecon schema initialized")
	return nil
}

// SaveReconResult persists a completed reconciliation run and every
// match's proof inside one transaction, returning the generated run id.
func (s *Store) SaveReconResult(ctx context.Context, leftCount, rightCount int, result models.ReconResult) (uuid.UUID, error) {
	runID := uuid.New()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertRun := `
		INSERT INTO recon_runs (id, left_count, right_count, matched_count, left_only_count, right_only_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, insertRun, runID.String(), leftCount, rightCount, len(result.Matched), len(result.LeftOnly), len(result.RightOnly))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert recon_runs: %v", err)
	}

	insertProof := `
		INSERT INTO match_proofs (run_id, seq, bucket_id, pass, ambiguous, ambiguity_reason, nodes_visited, nodes_pruned, cap_hit, proof_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i, m := range result.Matched {
		proofJSON, err := json.Marshal(m.Proof)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to serialize match proof: %v", err)
		}
		var reason any
		if m.Proof.AmbiguityReason != "" {
			reason = string(m.Proof.AmbiguityReason)
		}
		_, err = tx.Exec(ctx, insertProof, runID.String(), i, m.Proof.BucketID, string(m.Proof.Pass),
			m.Proof.Ambiguous, reason, m.Proof.NodesVisited, m.Proof.NodesPruned, m.Proof.CapHit, proofJSON)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert match_proofs: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return runID, nil
}

// RunSummary is a lightweight projection of a persisted recon run,
// returned by ListRuns.
type RunSummary struct {
	ID             uuid.UUID `json:"id"`
	MatchedCount   int       `json:"matchedCount"`
	LeftOnlyCount  int       `json:"leftOnlyCount"`
	RightOnlyCount int       `json:"rightOnlyCount"`
}

// ListRuns returns the most recent recon runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, matched_count, left_only_count, right_only_count
		FROM recon_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var idStr string
		var r RunSummary
		if err := rows.Scan(&idStr, &r.MatchedCount, &r.LeftOnlyCount, &r.RightOnlyCount); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("stored run id %q is not a valid uuid: %v", idStr, err)
		}
		r.ID = id
		out = append(out, r)
	}
	if out == nil {
		out = []RunSummary{}
	}
	return out, nil
}

// AppendHistoryEntry persists one history entry for a workbook, used so
// a session server can survive a restart without losing the undo log.
func (s *Store) AppendHistoryEntry(ctx context.Context, workbookID uuid.UUID, entry history.HistoryEntry) error {
	actionJSON, err := json.Marshal(entry.Action)
	if err != nil {
		return fmt.Errorf("failed to serialize history action: %v", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO history_entries (workbook_id, entry_id, kind_tag, recorded_at, action_json)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workbook_id, entry_id) DO UPDATE
		SET kind_tag = EXCLUDED.kind_tag, recorded_at = EXCLUDED.recorded_at, action_json = EXCLUDED.action_json
	`, workbookID.String(), int64(entry.ID), int16(entry.Action.Kind), entry.Timestamp, actionJSON)
	if err != nil {
		return fmt.Errorf("failed to insert history_entries: %v", err)
	}
	return nil
}

// Pool exposes the underlying connection pool for callers that need
// lower-level access (e.g. a custom migration tool).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
