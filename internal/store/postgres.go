package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it, so Postgres behavior is testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"save_session": `INSERT INTO sessions (id, query, complexity, status, confidence, cost_usd, llm_calls, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			confidence = EXCLUDED.confidence,
			cost_usd = EXCLUDED.cost_usd,
			llm_calls = EXCLUDED.llm_calls,
			state = EXCLUDED.state`,
	"get_session": `SELECT state FROM sessions WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, query := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, query); err != nil {
				return fmt.Errorf("prepare %s: %w", name, err)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	complexity TEXT NOT NULL,
	status     TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	cost_usd   DOUBLE PRECISION NOT NULL,
	llm_calls  INTEGER NOT NULL,
	state      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_complexity ON sessions(complexity);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, state *model.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal state")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["save_session"],
		state.SessionID,
		state.Query,
		string(state.Complexity),
		string(state.VerificationStatus),
		state.ConfidenceScore,
		state.CumulativeCost,
		state.LLMCalls,
		stateJSON,
		state.ExecutionStart.UTC(),
	)
	return eris.Wrapf(err, "postgres: save session %s", state.SessionID)
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*model.State, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_session"], sessionID)

	var stateJSON []byte
	err := row.Scan(&stateJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", sessionID)
	}

	var state model.State
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal state")
	}
	return &state, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]SessionRecord, error) {
	query := `SELECT id, query, complexity, status, confidence, cost_usd, llm_calls, created_at
		FROM sessions WHERE 1=1`
	var args []any

	if filter.Complexity != "" {
		args = append(args, string(filter.Complexity))
		query += fmt.Sprintf(` AND complexity = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var createdAt time.Time
		if err := rows.Scan(&r.SessionID, &r.Query, &r.Complexity, &r.Status,
			&r.Confidence, &r.CostUSD, &r.LLMCalls, &createdAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		r.CreatedAt = createdAt
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}
