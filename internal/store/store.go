// Package store persists completed analysis sessions for run history.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/model"
)

// ErrNotFound is returned when a session ID has no stored record.
var ErrNotFound = eris.New("store: session not found")

// SessionRecord is the listing view of a stored session: the header
// columns without the full state document.
type SessionRecord struct {
	SessionID  string                   `json:"session_id"`
	Query      string                   `json:"query"`
	Complexity model.Complexity         `json:"complexity"`
	Status     model.VerificationStatus `json:"status"`
	Confidence float64                  `json:"confidence"`
	CostUSD    float64                  `json:"cost_usd"`
	LLMCalls   int                      `json:"llm_calls"`
	CreatedAt  time.Time                `json:"created_at"`
}

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Complexity model.Complexity         `json:"complexity,omitempty"`
	Status     model.VerificationStatus `json:"status,omitempty"`
	Limit      int                      `json:"limit,omitempty"`
	Offset     int                      `json:"offset,omitempty"`
}

// Store defines the run-history persistence interface.
type Store interface {
	SaveSession(ctx context.Context, state *model.State) error
	GetSession(ctx context.Context, sessionID string) (*model.State, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]SessionRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
