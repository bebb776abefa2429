package gateway

import (
	"jobpilot/internal/config"
	"jobpilot/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker guards backend calls with a circuit breaker. Only transport
// failures count against it; any HTTP response, 401 included, is a success.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[*Response]
}

// NewBreaker returns nil when the breaker is disabled
func NewBreaker(name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *Breaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.IsType(err, errors.ErrorTypeTransport)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[*Response](settings)}
}

// Execute runs fn under the breaker; a nil breaker runs fn directly
func (b *Breaker) Execute(fn func() (*Response, error)) (*Response, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	resp, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.NewTransportError(errors.ErrCodeCircuitOpen,
			"backend temporarily unavailable (circuit open)", err)
	}
	return resp, err
}

// Stats returns circuit breaker statistics
func (b *Breaker) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// Healthy reports whether the breaker is closed
func (b *Breaker) Healthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
