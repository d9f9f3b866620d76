package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/albarami/udc-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	complexity TEXT NOT NULL,
	status     TEXT NOT NULL,
	confidence REAL NOT NULL,
	cost_usd   REAL NOT NULL,
	llm_calls  INTEGER NOT NULL,
	state      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_complexity ON sessions(complexity);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, state *model.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal state")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, query, complexity, status, confidence, cost_usd, llm_calls, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			confidence = excluded.confidence,
			cost_usd = excluded.cost_usd,
			llm_calls = excluded.llm_calls,
			state = excluded.state`,
		state.SessionID,
		state.Query,
		string(state.Complexity),
		string(state.VerificationStatus),
		state.ConfidenceScore,
		state.CumulativeCost,
		state.LLMCalls,
		string(stateJSON),
		state.ExecutionStart.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save session %s", state.SessionID)
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = ?`, sessionID,
	)

	var stateJSON string
	err := row.Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", sessionID)
	}

	var state model.State
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal state")
	}
	return &state, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]SessionRecord, error) {
	query := `SELECT id, query, complexity, status, confidence, cost_usd, llm_calls, created_at
		FROM sessions WHERE 1=1`
	var args []any

	if filter.Complexity != "" {
		query += ` AND complexity = ?`
		args = append(args, string(filter.Complexity))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var createdAt time.Time
		if err := rows.Scan(&r.SessionID, &r.Query, &r.Complexity, &r.Status,
			&r.Confidence, &r.CostUSD, &r.LLMCalls, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		r.CreatedAt = createdAt
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}
