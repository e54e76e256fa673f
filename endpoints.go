package redisclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pior/redisclient/internal/coarsetime"
)

// DefaultPort is used for endpoints given without a port.
const DefaultPort = 6379

// normalizeEndpoints validates addresses and adds the default port where missing.
func normalizeEndpoints(endpoints []string) ([]string, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no endpoints provided")
	}

	addrs := make([]string, len(endpoints))
	for i, ep := range endpoints {
		if ep == "" {
			return nil, fmt.Errorf("endpoint %d is empty", i)
		}

		host, port, err := net.SplitHostPort(ep)
		if err != nil {
			// No port: the whole value is the host
			addrs[i] = net.JoinHostPort(ep, strconv.Itoa(DefaultPort))
			continue
		}
		if host == "" {
			return nil, fmt.Errorf("endpoint %q has no host", ep)
		}
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return nil, fmt.Errorf("endpoint %q has an invalid port", ep)
		}
		addrs[i] = ep
	}
	return addrs, nil
}

// endpointSet dials new connections across the configured endpoints.
//
// Endpoints are one logical server: the first is the primary and the others
// are failover targets. Each dial tries them in configured order, except
// that an endpoint that failed to connect is tried last until retryDelay
// passed.
type endpointSet struct {
	addrs          []string
	dialer         *net.Dialer
	connectTimeout time.Duration
	retryDelay     time.Duration
	logger         *slog.Logger

	mu       sync.Mutex
	failedAt []time.Time
}

func newEndpointSet(addrs []string, dialer *net.Dialer, connectTimeout, retryDelay time.Duration, logger *slog.Logger) *endpointSet {
	return &endpointSet{
		addrs:          addrs,
		dialer:         dialer,
		connectTimeout: connectTimeout,
		retryDelay:     retryDelay,
		logger:         logger,
		failedAt:       make([]time.Time, len(addrs)),
	}
}

// order returns the endpoint indexes to try for the next dial.
func (e *endpointSet) order() []int {
	n := len(e.addrs)

	now := coarsetime.Now()
	ready := make([]int, 0, n)
	var backoff []int

	e.mu.Lock()
	for idx, failed := range e.failedAt {
		if !failed.IsZero() && now.Sub(failed) < e.retryDelay {
			backoff = append(backoff, idx)
			continue
		}
		ready = append(ready, idx)
	}
	e.mu.Unlock()

	return append(ready, backoff...)
}

func (e *endpointSet) markFailed(idx int) {
	e.mu.Lock()
	e.failedAt[idx] = coarsetime.Now()
	e.mu.Unlock()
}

func (e *endpointSet) markHealthy(idx int) {
	e.mu.Lock()
	e.failedAt[idx] = time.Time{}
	e.mu.Unlock()
}

// dial connects to the first endpoint that accepts a connection.
func (e *endpointSet) dial(ctx context.Context) (*Connection, error) {
	var errs []error

	for _, idx := range e.order() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		addr := e.addrs[idx]
		netConn, err := e.dialOne(ctx, addr)
		if err != nil {
			e.markFailed(idx)
			e.logger.Warn("redisclient: dial failed", "endpoint", addr, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}

		e.markHealthy(idx)
		e.logger.Debug("redisclient: connected", "endpoint", addr)
		return NewConnection(netConn, addr), nil
	}

	return nil, fmt.Errorf("redisclient: all endpoints failed: %w", errors.Join(errs...))
}

func (e *endpointSet) dialOne(ctx context.Context, addr string) (net.Conn, error) {
	if e.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.connectTimeout)
		defer cancel()
	}
	return e.dialer.DialContext(ctx, "tcp", addr)
}
