package redisclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/redisclient/resp"
	"github.com/sony/gobreaker/v2"
)

const (
	DefaultMaxSize        = 10
	DefaultConnectTimeout = 5 * time.Second
	DefaultRetryDelay     = 5 * time.Second
)

var (
	ErrClientClosed = errors.New("redisclient: client closed")
	ErrPoolCreate   = errors.New("redisclient: can't create pool")

	// ErrNoReply is returned when a Protocol returns neither a reply nor an
	// error. A nil reply from the server is a KindNil reply, never ErrNoReply.
	ErrNoReply = errors.New("redisclient: no reply")
)

// UnexpectedReplyError is returned by the typed commands (Set, Get, Incr)
// when the server answers with a reply kind the command never produces,
// for example an array where a string was expected.
type UnexpectedReplyError struct {
	Command string
	Kind    resp.Kind
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("redisclient: unexpected %s reply to %s", e.Kind, e.Command)
}

// Config holds configuration for the client and its connection pool.
type Config struct {
	// Endpoints are the server addresses, "host:port" or "host" for the
	// default port. New connections fail over between them in order.
	// Required: at least one.
	Endpoints []string

	// MaxSize is the maximum number of connections in the pool.
	// Zero means DefaultMaxSize.
	MaxSize int32

	// ConnectTimeout bounds establishing one connection.
	// Zero means DefaultConnectTimeout; negative means no limit.
	ConnectTimeout time.Duration

	// Timeout bounds each command, including waiting for a free connection,
	// when the caller's context has no deadline. Zero means no limit.
	Timeout time.Duration

	// RetryDelay is how long an endpoint that failed to connect is tried
	// after the others. Zero means DefaultRetryDelay.
	RetryDelay time.Duration

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit. Enforced by health checks.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit. Enforced by health checks.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle connections are checked with PING.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Pool is the connection pool factory.
	// If nil, uses NewChannelPool. NewPuddlePool is the alternative.
	Pool PoolFactory

	// Protocol sends commands and reads replies.
	// If nil, uses RESP.
	Protocol Protocol

	// NewCircuitBreaker creates the circuit breaker guarding all commands.
	// Called once with the joined endpoint list. If nil, no circuit breaker is used.
	NewCircuitBreaker func(name string) *CircuitBreaker

	// Logger receives pool lifecycle events.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// for testing purposes only
	constructor func(ctx context.Context) (*Connection, error)
}

// Client is a thread-safe client for Redis-compatible servers.
//
// It owns one connection pool for its whole lifetime. Every command checks
// out one connection, sends the command, reads the reply and returns the
// connection before the method returns, so a single Client can be shared
// by any number of goroutines. Safety under concurrency comes from the pool;
// the command path takes no locks.
//
// A Client must not be copied.
type Client struct {
	noCopy noCopy

	pool     Pool
	protocol Protocol
	breaker  *CircuitBreaker
	timeout  time.Duration
	logger   *slog.Logger

	maxConnLifetime     time.Duration
	maxConnIdleTime     time.Duration
	healthCheckInterval time.Duration

	closed          atomic.Bool
	closeOnce       sync.Once
	stopHealthCheck chan struct{}
	healthCheckDone chan struct{}

	stats clientStatsCollector
}

// New creates the connection pool and returns a client using it.
// It fails with an error wrapping ErrPoolCreate when the pool can't be created.
// Connections are dialed lazily, on first use.
func New(config Config) (*Client, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	if maxSize < 0 {
		return nil, fmt.Errorf("%w: invalid pool size %d", ErrPoolCreate, maxSize)
	}

	name := "redisclient"
	constructor := config.constructor
	if constructor == nil {
		addrs, err := normalizeEndpoints(config.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPoolCreate, err)
		}
		name = strings.Join(addrs, ",")

		dialer := config.Dialer
		if dialer == nil {
			dialer = &net.Dialer{}
		}

		connectTimeout := config.ConnectTimeout
		if connectTimeout == 0 {
			connectTimeout = DefaultConnectTimeout
		}

		retryDelay := config.RetryDelay
		if retryDelay == 0 {
			retryDelay = DefaultRetryDelay
		}

		constructor = newEndpointSet(addrs, dialer, connectTimeout, retryDelay, logger).dial
	}

	poolFactory := config.Pool
	if poolFactory == nil {
		poolFactory = NewChannelPool
	}

	pool, err := poolFactory(constructor, maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolCreate, err)
	}

	protocol := config.Protocol
	if protocol == nil {
		protocol = RESP
	}

	client := &Client{
		pool:                pool,
		protocol:            protocol,
		timeout:             config.Timeout,
		logger:              logger,
		maxConnLifetime:     config.MaxConnLifetime,
		maxConnIdleTime:     config.MaxConnIdleTime,
		healthCheckInterval: config.HealthCheckInterval,
		stopHealthCheck:     make(chan struct{}),
		healthCheckDone:     make(chan struct{}),
	}

	if config.NewCircuitBreaker != nil {
		client.breaker = config.NewCircuitBreaker(name)
	}

	// Start health check goroutine if enabled
	if config.HealthCheckInterval > 0 {
		go client.healthCheckLoop()
	} else {
		close(client.healthCheckDone)
	}

	logger.Debug("redisclient: pool created", "name", name, "max_size", maxSize)
	return client, nil
}

// Close stops health checks and destroys the pool. Commands in flight
// finish normally; their connections are closed when released.
// Further commands fail with ErrClientClosed. Close is idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		close(c.stopHealthCheck)
		<-c.healthCheckDone

		c.pool.Close()
		c.logger.Debug("redisclient: pool destroyed")
	})
}

// Do sends one command and returns its reply. The caller owns the reply
// and must Close the handle.
//
// An error reply from the server is a valid reply, not an error: check
// ReplyHandle.Err. A Go error means no reply was obtained: no connection
// was available (ErrPoolExhausted), the connection failed (*resp.ConnectionError),
// the server sent malformed data (*resp.ProtocolError) or the circuit
// breaker is open. No retries are performed.
func (c *Client) Do(ctx context.Context, args ...resp.Arg) (*ReplyHandle, error) {
	reply, err := c.do(ctx, args)
	if err != nil {
		return nil, err
	}
	return NewReplyHandle(reply, c.protocol.Free), nil
}

// Commandf formats a command with resp.Format and sends it with Do.
//
//	reply, err := client.Commandf(ctx, "HSET user:%d name %s", id, name)
func (c *Client) Commandf(ctx context.Context, format string, values ...any) (*ReplyHandle, error) {
	args, err := resp.Format(format, values...)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}
	return c.Do(ctx, args...)
}

func (c *Client) do(ctx context.Context, args []resp.Arg) (*resp.Reply, error) {
	if c.closed.Load() {
		c.stats.recordError()
		return nil, ErrClientClosed
	}

	if len(args) == 0 {
		c.stats.recordError()
		return nil, resp.ErrEmptyCommand
	}

	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	// A context that is already done must not take an idle connection,
	// it would only be discarded on the way back.
	if err := ctx.Err(); err != nil {
		c.stats.recordError()
		return nil, err
	}

	var (
		reply *resp.Reply
		err   error
	)
	if c.breaker != nil {
		reply, err = c.breaker.Execute(func() (*resp.Reply, error) {
			return c.execute(ctx, args)
		})
	} else {
		reply, err = c.execute(ctx, args)
	}

	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	c.stats.recordCommand(reply.Kind == resp.KindError)
	return reply, nil
}

// aLongTimeAgo is a deadline in the past, used to interrupt blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// execute runs one command on one pooled connection.
// The connection is back in the pool, or destroyed, when execute returns.
func (c *Client) execute(ctx context.Context, args []resp.Arg) (*resp.Reply, error) {
	pc, err := Acquire(ctx, c.pool)
	if err != nil {
		return nil, err
	}
	defer pc.Release()

	conn := pc.Conn()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		pc.Discard()
		return nil, &resp.ConnectionError{Op: "set deadline", Err: err}
	}

	// Cancellation interrupts blocked reads and writes
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(aLongTimeAgo)
	})

	reply, err := c.protocol.Execute(conn, args)
	if err == nil && reply == nil {
		err = ErrNoReply
	}

	if !stop() {
		// The deadline was moved under us: the stream position is unknown
		pc.Discard()
		if err != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
	}

	if err != nil {
		if resp.ShouldCloseConnection(err) {
			pc.Discard()
		}
		return nil, err
	}

	return reply, nil
}

// Set sets key to hold the string value and returns the status text of
// the reply ("OK").
func (c *Client) Set(ctx context.Context, key, value string) (string, error) {
	h, err := c.Do(ctx, resp.String("SET"), resp.String(key), resp.String(value))
	if err != nil {
		return "", err
	}
	defer h.Close()

	if err := c.expect(h, "SET", resp.KindStatus); err != nil {
		return "", err
	}

	c.stats.recordSet()
	return h.Str(), nil
}

// Get returns the value of key, or "" when the key does not exist.
//
// An error reply, like WRONGTYPE for a key holding a list, is returned as a
// *resp.ServerError, so an absent key is never confused with a failure.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	h, err := c.Do(ctx, resp.String("GET"), resp.String(key))
	if err != nil {
		return "", err
	}
	defer h.Close()

	if err := c.expect(h, "GET", resp.KindString, resp.KindNil); err != nil {
		return "", err
	}

	found := h.Kind() == resp.KindString
	c.stats.recordGet(found)
	return h.Str(), nil
}

// Incr increments the integer stored at key by one and returns the new
// value. A missing key counts as 0.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	h, err := c.Do(ctx, resp.String("INCR"), resp.String(key))
	if err != nil {
		return 0, err
	}
	defer h.Close()

	if err := c.expect(h, "INCR", resp.KindInteger); err != nil {
		return 0, err
	}

	c.stats.recordIncr()
	return h.Int(), nil
}

// expect converts error replies and unexpected reply kinds into Go errors.
func (c *Client) expect(h *ReplyHandle, command string, kinds ...resp.Kind) error {
	if err := h.Err(); err != nil {
		c.stats.recordError()
		return err
	}

	if !slices.Contains(kinds, h.Kind()) {
		c.stats.recordError()
		return &UnexpectedReplyError{Command: command, Kind: h.Kind()}
	}
	return nil
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// PoolStats returns a snapshot of connection pool statistics.
func (c *Client) PoolStats() PoolStats {
	return c.pool.Stats()
}

// BreakerState returns the circuit breaker state, StateClosed when none is configured.
func (c *Client) BreakerState() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}
