package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/llm/circuitbreaker"
	"github.com/ariavoice/control-plane/types"
)

func TestAdmissionAcquireAllowsWithinCapacity(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(), zap.NewNop())
	a := NewAdmission(60, breaker, zap.NewNop())
	require.NoError(t, a.Acquire())
}

func TestAdmissionAcquireRejectsWhenExhausted(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(), zap.NewNop())
	a := NewAdmission(1, breaker, zap.NewNop())
	for i := 0; i < 2; i++ {
		_ = a.Acquire()
	}
	err := a.Acquire()
	require.Error(t, err)
	typed, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.ErrRateLimited, typed.Code)
	assert.Equal(t, 429, typed.HTTPStatus)
}

func TestAdmissionOrchestratorAvailableReflectsBreakerState(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(), zap.NewNop())
	a := NewAdmission(60, breaker, zap.NewNop())
	assert.True(t, a.OrchestratorAvailable())

	for i := 0; i < 10; i++ {
		_ = a.CallOrchestrator(context.Background(), func() error { return errors.New("boom") })
	}
	assert.False(t, a.OrchestratorAvailable())
}
