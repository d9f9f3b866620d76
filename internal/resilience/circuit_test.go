package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingFn(_ context.Context) error { return eris.New("downstream failure") }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(context.Background(), failingFn))
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	assert.Error(t, cb.Execute(context.Background(), failingFn))
	assert.Error(t, cb.Execute(context.Background(), failingFn))
	require.NoError(t, cb.Execute(context.Background(), func(_ context.Context) error { return nil }))
	assert.Error(t, cb.Execute(context.Background(), failingFn))
	assert.Error(t, cb.Execute(context.Background(), failingFn))

	// Still closed: the success reset the consecutive count.
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})

	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	assert.Error(t, cb.Execute(context.Background(), failingFn))
	assert.ErrorIs(t, cb.Execute(context.Background(), failingFn), ErrCircuitOpen)

	now = now.Add(11 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// A successful probe closes the circuit.
	require.NoError(t, cb.Execute(context.Background(), func(_ context.Context) error { return nil }))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})

	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	assert.Error(t, cb.Execute(context.Background(), failingFn))
	now = now.Add(11 * time.Second)
	assert.Error(t, cb.Execute(context.Background(), failingFn))
	assert.ErrorIs(t, cb.Execute(context.Background(), failingFn), ErrCircuitOpen)
}

func TestCircuitBreaker_ShouldTripFilter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       IsTransient,
	})

	// A permanent error does not count toward the threshold.
	assert.Error(t, cb.Execute(context.Background(), failingFn))
	assert.Equal(t, CircuitClosed, cb.State())

	assert.Error(t, cb.Execute(context.Background(), func(_ context.Context) error {
		return NewTransientError(eris.New("503"), 503)
	}))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestExecuteVal_PreservesValue(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	val, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "payload", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", val)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	assert.Error(t, cb.Execute(context.Background(), failingFn))
	assert.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
}
