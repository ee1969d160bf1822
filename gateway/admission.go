package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/internal/ratelimit"
	"github.com/ariavoice/control-plane/llm/circuitbreaker"
	"github.com/ariavoice/control-plane/types"
)

// Admission is the Gateway's admission-control front gate: a process-
// global token bucket followed by a check of the orchestrator circuit
// breaker's state. Grounded on spec §4.1's admission rule (capacity =
// 2x requests-per-minute, refill at requests-per-minute/60 per second)
// and original_source/src/gateway/main.go's route_to_orchestrator, which
// checks the breaker before ever making the orchestrator HTTP call.
type Admission struct {
	bucket  *ratelimit.Bucket
	breaker circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewAdmission builds an Admission gate from a requests-per-minute budget
// and an already-constructed orchestrator circuit breaker.
func NewAdmission(requestsPerMinute float64, breaker circuitbreaker.CircuitBreaker, logger *zap.Logger) *Admission {
	bucket := ratelimit.NewBucket(ratelimit.Config{
		Capacity:        requestsPerMinute * 2,
		RefillPerSecond: requestsPerMinute / 60,
	})
	return &Admission{
		bucket:  bucket,
		breaker: breaker,
		logger:  logger.With(zap.String("component", "gateway_admission")),
	}
}

// Acquire consumes one rate-limit token, returning a rate_limited error
// when the bucket is empty. This check is never retried by the caller.
func (a *Admission) Acquire() error {
	if !a.bucket.Allow() {
		return types.NewError(types.ErrRateLimited, "rate limit exceeded").WithHTTPStatus(429)
	}
	return nil
}

// OrchestratorAvailable reports whether the orchestrator circuit breaker
// currently permits a call. When it does not, the caller should skip
// directly to the local fallback and record circuit_open as the
// fallback reason, per spec §4.1.
func (a *Admission) OrchestratorAvailable() bool {
	return a.breaker.State() != circuitbreaker.StateOpen
}

// CallOrchestrator runs fn through the breaker, recording success/failure
// for the breaker's state machine.
func (a *Admission) CallOrchestrator(ctx context.Context, fn func() error) error {
	return a.breaker.Call(ctx, fn)
}
