package redisclient

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/pior/redisclient/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []string
		wantErr bool
	}{
		{"host and port", []string{"10.0.0.1:7000"}, []string{"10.0.0.1:7000"}, false},
		{"default port", []string{"cache.local"}, []string{"cache.local:6379"}, false},
		{"ipv6", []string{"[::1]:7000", "::1"}, []string{"[::1]:7000", "[::1]:6379"}, false},
		{"empty list", nil, nil, true},
		{"empty endpoint", []string{""}, nil, true},
		{"no host", []string{":6379"}, nil, true},
		{"bad port", []string{"localhost:http"}, nil, true},
		{"port out of range", []string{"localhost:70000"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEndpoints(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestEndpointSet(addrs []string, retryDelay time.Duration) *endpointSet {
	return newEndpointSet(addrs, &net.Dialer{}, time.Second, retryDelay, slog.New(slog.DiscardHandler))
}

func TestEndpointSet_OrderPrimaryFirst(t *testing.T) {
	e := newTestEndpointSet([]string{"a:1", "b:1", "c:1"}, time.Minute)

	for range 100 {
		assert.Equal(t, []int{0, 1, 2}, e.order())
	}
}

func TestEndpointSet_FailedEndpointLast(t *testing.T) {
	e := newTestEndpointSet([]string{"a:1", "b:1", "c:1"}, time.Minute)

	e.markFailed(0)
	assert.Equal(t, []int{1, 2, 0}, e.order())

	e.markFailed(2)
	assert.Equal(t, []int{1, 0, 2}, e.order(), "failed endpoints keep configured order")

	e.markHealthy(0)
	assert.Equal(t, []int{0, 1, 2}, e.order())
}

func TestEndpointSet_RetryDelayExpires(t *testing.T) {
	e := newTestEndpointSet([]string{"a:1", "b:1"}, time.Minute)
	e.markFailed(0)
	require.Equal(t, []int{1, 0}, e.order())

	e.failedAt[0] = time.Now().Add(-2 * time.Minute)
	assert.Equal(t, []int{0, 1}, e.order(), "primary tried first again after the retry delay")
}

func TestEndpointSet_Dial(t *testing.T) {
	server := testutils.NewServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := listener.Addr().String()
	listener.Close()

	e := newTestEndpointSet([]string{dead, server.Addr()}, time.Minute)

	for range 3 {
		conn, err := e.dial(context.Background())
		require.NoError(t, err)
		assert.Equal(t, server.Addr(), conn.Addr())
		conn.Close()
	}
	assert.True(t, e.failedAt[1].IsZero())
}

func TestEndpointSet_DialAllFail(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := listener.Addr().String()
	listener.Close()

	e := newTestEndpointSet([]string{dead, dead}, time.Minute)

	_, err = e.dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all endpoints failed")
	assert.False(t, e.failedAt[0].IsZero(), "failed endpoint marked")
	assert.False(t, e.failedAt[1].IsZero(), "failed endpoint marked")
}

func TestEndpointSet_DialCanceled(t *testing.T) {
	e := newTestEndpointSet([]string{"127.0.0.1:1"}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.dial(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
