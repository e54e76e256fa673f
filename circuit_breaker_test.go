package redisclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pior/redisclient/resp"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCircuitBreakerConfig(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Second, time.Second)("10.0.0.1:6379")
	require.NotNil(t, cb)

	assert.Equal(t, "10.0.0.1:6379", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Execute_Success(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Second, time.Second)("test")

	result, err := cb.Execute(func() (*resp.Reply, error) {
		return &resp.Reply{Kind: resp.KindStatus, Str: "OK"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "OK", result.Str)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Trips(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")

	// Below the minimum request count the circuit stays closed
	for range 2 {
		_, err := cb.Execute(func() (*resp.Reply, error) {
			return nil, fmt.Errorf("failure")
		})
		require.Error(t, err)
		assert.Equal(t, gobreaker.StateClosed, cb.State())
	}

	_, err := cb.Execute(func() (*resp.Reply, error) {
		return nil, fmt.Errorf("failure")
	})
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err = cb.Execute(func() (*resp.Reply, error) {
		t.Fatal("called while open")
		return nil, nil
	})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreaker_RatioBelowThreshold(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")

	outcomes := []error{nil, nil, errors.New("failure"), nil, errors.New("failure")}
	for _, outcome := range outcomes {
		_, _ = cb.Execute(func() (*resp.Reply, error) {
			return nil, outcome
		})
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State(), "40% failures keep the circuit closed")
}

func TestCircuitBreaker_CanceledIsNotFailure(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")

	for range 5 {
		_, err := cb.Execute(func() (*resp.Reply, error) {
			return nil, fmt.Errorf("%w: read interrupted", context.Canceled)
		})
		require.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, uint32(0), cb.Counts().TotalFailures)
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, 20*time.Millisecond)("test")

	for range 3 {
		_, _ = cb.Execute(func() (*resp.Reply, error) { return nil, errors.New("failure") })
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	_, err := cb.Execute(func() (*resp.Reply, error) {
		return &resp.Reply{Kind: resp.KindStatus, Str: "PONG"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestClient_BreakerStateWithoutBreaker(t *testing.T) {
	client, _, _ := newFakeClient(t, 1)
	assert.Equal(t, gobreaker.StateClosed, client.BreakerState())
}
