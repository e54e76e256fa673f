package redisclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pior/redisclient/internal/coarsetime"
)

// NewChannelPool creates a channel-based connection pool.
// This is the default pool implementation.
func NewChannelPool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("redisclient: pool size must be positive, got %d", maxSize)
	}

	return &channelPool{
		constructor: constructor,
		maxSize:     maxSize,
		resources:   make(chan *channelResource, maxSize),
		slotFreed:   make(chan struct{}),
	}, nil
}

// channelResource implements Resource for channel pool.
type channelResource struct {
	conn         *Connection
	pool         *channelPool
	creationTime time.Time
	lastUsedTime time.Time
}

func (r *channelResource) Value() *Connection {
	return r.conn
}

func (r *channelResource) Release() {
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

func (r *channelResource) ReleaseUnused() {
	// Don't update lastUsedTime for health checks
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	r.conn.Close()
	r.pool.removeActive()
}

func (r *channelResource) CreationTime() time.Time {
	return r.creationTime
}

func (r *channelResource) IdleDuration() time.Duration {
	return coarsetime.Since(r.lastUsedTime)
}

// channelPool keeps idle connections in a buffered channel.
// size counts idle and checked out connections.
type channelPool struct {
	constructor func(ctx context.Context) (*Connection, error)
	maxSize     int32

	mu        sync.Mutex
	resources chan *channelResource
	size      int32
	closed    bool

	// slotFreed is closed and replaced whenever a connection is destroyed,
	// waking up Acquire calls that wait on a full pool.
	slotFreed chan struct{}

	stats poolStatsCollector
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	var waitStart time.Time

	for {
		// Try to get an idle connection from the pool first
		select {
		case res, ok := <-p.resources:
			if !ok {
				p.stats.recordAcquireError()
				return nil, ErrPoolClosed
			}
			p.stats.recordAcquireFromIdle()
			return res, nil
		default:
			// No idle connection, create new one if under limit
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.stats.recordAcquireError()
			return nil, ErrPoolClosed
		}

		if p.size < p.maxSize {
			p.size++
			p.mu.Unlock()
			return p.create(ctx)
		}

		slotFreed := p.slotFreed
		p.mu.Unlock()

		// Pool is full, wait for a connection to be released or destroyed
		if waitStart.IsZero() {
			waitStart = coarsetime.Now()
		}

		select {
		case res, ok := <-p.resources:
			if !ok {
				p.stats.recordAcquireError()
				return nil, ErrPoolClosed
			}
			p.stats.recordAcquireWait(coarsetime.Since(waitStart))
			p.stats.recordAcquireFromIdle()
			return res, nil
		case <-slotFreed:
			// A slot opened up, try again
		case <-ctx.Done():
			p.stats.recordAcquireError()
			return nil, ctx.Err()
		}
	}
}

// create builds a new connection for a slot already reserved in size.
func (p *channelPool) create(ctx context.Context) (Resource, error) {
	conn, err := p.constructor(ctx)
	if err != nil {
		p.mu.Lock()
		p.size--
		p.notifySlotFreed()
		p.mu.Unlock()
		p.stats.recordAcquireError()
		return nil, err
	}

	p.stats.recordCreate()
	p.stats.recordActivate() // New connection goes straight to active

	now := coarsetime.Now()
	return &channelResource{
		conn:         conn,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}, nil
}

func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		res.conn.Close()
		p.size--
		p.stats.recordDestroyActive()
		return
	}

	select {
	case p.resources <- res:
		// Successfully returned to pool
		p.stats.recordRelease()
	default:
		// Pool channel is full, close this connection
		res.conn.Close()
		p.size--
		p.notifySlotFreed()
		p.stats.recordDestroyActive()
	}
}

func (p *channelPool) removeActive() {
	p.mu.Lock()
	p.size--
	p.notifySlotFreed()
	p.mu.Unlock()
	p.stats.recordDestroyActive()
}

// notifySlotFreed must be called with mu held.
func (p *channelPool) notifySlotFreed() {
	close(p.slotFreed)
	p.slotFreed = make(chan struct{})
}

func (p *channelPool) AcquireAllIdle() []Resource {
	var idle []Resource

	// Drain all idle connections from the channel
	for {
		select {
		case res, ok := <-p.resources:
			if !ok {
				return idle
			}
			p.stats.recordAcquireFromIdle()
			idle = append(idle, res)
		default:
			return idle
		}
	}
}

func (p *channelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	// Close all idle connections
	close(p.resources)
	for res := range p.resources {
		res.conn.Close()
		p.size--
		p.stats.recordDestroyIdle()
	}

	// Wake up waiters so they observe the closed pool
	p.notifySlotFreed()
}

// Stats returns a snapshot of pool statistics.
func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
