package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albarami/udc-sub000/internal/model"
)

func newTestPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_SaveSession(t *testing.T) {
	s, mock := newTestPostgres(t)
	state := storedState("s1", model.ComplexityComplex)

	stateJSON, err := json.Marshal(state)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s1", "how is the business", "complex", "complete",
			0.82, 0.34, 7, stateJSON, state.ExecutionStart.UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveSession(context.Background(), state))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSession(t *testing.T) {
	s, mock := newTestPostgres(t)
	state := storedState("s1", model.ComplexityMedium)
	stateJSON, err := json.Marshal(state)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT state FROM sessions").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(stateJSON))

	got, err := s.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, model.ComplexityMedium, got.Complexity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSessionMissing(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT state FROM sessions").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"state"}))

	_, err := s.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListSessions(t *testing.T) {
	s, mock := newTestPostgres(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "query", "complexity", "status", "confidence", "cost_usd", "llm_calls", "created_at",
	}).
		AddRow("s2", "q2", "complex", "complete", 0.9, 0.5, 9, now).
		AddRow("s1", "q1", "simple", "partial", 0.7, 0.1, 3, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, query, complexity, status").
		WithArgs(100).
		WillReturnRows(rows)

	records, err := s.ListSessions(context.Background(), SessionFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s2", records[0].SessionID)
	assert.Equal(t, model.ComplexityComplex, records[0].Complexity)
	assert.Equal(t, model.VerificationPartial, records[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListSessionsFiltered(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT id, query, complexity, status").
		WithArgs("critical", "partial", 5).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "query", "complexity", "status", "confidence", "cost_usd", "llm_calls", "created_at",
		}))

	records, err := s.ListSessions(context.Background(), SessionFilter{
		Complexity: model.ComplexityCritical,
		Status:     model.VerificationPartial,
		Limit:      5,
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
