package breaker

import (
	"sync"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
	"github.com/hashicorp/go-hclog"
)

type CircuitBreakerImpl struct {
	providerName string
	config       core.BreakerConfig
	logger       hclog.Logger

	lock            sync.Mutex
	state           core.BreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

var _ core.CircuitBreaker = (*CircuitBreakerImpl)(nil)

func NewCircuitBreaker(
	providerName string, config core.BreakerConfig, logger hclog.Logger,
) *CircuitBreakerImpl {
	return &CircuitBreakerImpl{
		providerName: providerName,
		config:       config,
		logger:       logger.Named("circuit_breaker"),
		state:        core.BreakerClosed,
	}
}

// Allow reports whether the next provider call may proceed. An open breaker
// transitions to half-open once the recovery timeout has elapsed, letting a
// trial call through.
func (cb *CircuitBreakerImpl) Allow() bool {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	switch cb.state {
	case core.BreakerClosed, core.BreakerHalfOpen:
		return true
	case core.BreakerOpen:
		if time.Since(cb.lastFailureTime) >= cb.config.RecoveryTimeout() {
			cb.transitionTo(core.BreakerHalfOpen)

			return true
		}

		return false
	default:
		return false
	}
}

func (cb *CircuitBreakerImpl) RecordSuccess() {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	switch cb.state {
	case core.BreakerClosed:
		cb.failureCount = 0
	case core.BreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.transitionTo(core.BreakerClosed)
		}
	case core.BreakerOpen:
	}
}

func (cb *CircuitBreakerImpl) RecordFailure() {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case core.BreakerClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.transitionTo(core.BreakerOpen)
		}
	case core.BreakerHalfOpen:
		// any failure during the trial period reopens the breaker
		cb.transitionTo(core.BreakerOpen)
	case core.BreakerOpen:
	}
}

func (cb *CircuitBreakerImpl) CurrentState() core.BreakerSnapshot {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	return core.BreakerSnapshot{
		State:        cb.state,
		FailureCount: cb.failureCount,
	}
}

func (cb *CircuitBreakerImpl) transitionTo(newState core.BreakerState) {
	oldState := cb.state
	cb.state = newState
	cb.successCount = 0

	if newState == core.BreakerClosed {
		cb.failureCount = 0
	}

	cb.logger.Info("circuit breaker state changed",
		"provider", cb.providerName, "from", oldState, "to", newState)

	telemetry.UpdateBreakerTransitionCounter(cb.providerName, newState.String())
	telemetry.UpdateBreakerStateGauge(cb.providerName, int(newState))
}
