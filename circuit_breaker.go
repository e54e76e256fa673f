package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/pior/redisclient/resp"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards command execution. A nil breaker is never used.
type CircuitBreaker = gobreaker.CircuitBreaker[*resp.Reply]

// NewCircuitBreakerConfig returns a function that creates circuit breakers,
// for Config.NewCircuitBreaker. This is a helper for common use cases.
//
// The breaker opens when at least 3 requests were seen in the interval and
// 60% of them failed. Error replies from the server are not failures; only
// acquisition, I/O and framing errors count. Context cancellation by the
// caller is not held against the server either.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(name string) *CircuitBreaker {
	return func(name string) *CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        name,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}
		return gobreaker.NewCircuitBreaker[*resp.Reply](settings)
	}
}
