package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// NewPuddlePool creates a pool backed by github.com/jackc/puddle/v2.
// Use it with Config.Pool: redisclient.NewPuddlePool
//
// Unlike the channel pool, Close waits for checked out connections to be
// returned before it returns.
func NewPuddlePool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("redisclient: pool size must be positive, got %d", maxSize)
	}

	p := &puddlePool{}

	pool, err := puddle.NewPool(&puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			conn, err := constructor(ctx)
			if err != nil {
				return nil, err
			}
			p.created.Add(1)
			return conn, nil
		},
		Destructor: func(conn *Connection) {
			p.destroyed.Add(1)
			_ = conn.Close()
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, err
	}

	p.pool = pool
	return p, nil
}

// puddlePool adapts puddle.Pool to Pool.
// *puddle.Resource[*Connection] satisfies Resource as is.
type puddlePool struct {
	pool *puddle.Pool[*Connection]

	// puddle counts canceled acquires only; dial failures are counted here
	created       atomic.Uint64
	destroyed     atomic.Uint64
	acquireErrors atomic.Uint64
}

func (p *puddlePool) Acquire(ctx context.Context) (Resource, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		p.acquireErrors.Add(1)
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrPoolClosed
		}
		return nil, err
	}
	return res, nil
}

func (p *puddlePool) AcquireAllIdle() []Resource {
	idle := p.pool.AcquireAllIdle()

	resources := make([]Resource, len(idle))
	for i, res := range idle {
		resources[i] = res
	}
	return resources
}

func (p *puddlePool) Close() {
	p.pool.Close()
}

func (p *puddlePool) Stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()) + p.acquireErrors.Load(),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
		CreatedConns:      p.created.Load(),
		DestroyedConns:    p.destroyed.Load(),
		AcquireErrors:     p.acquireErrors.Load(),
	}
}
