package redisclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/pior/redisclient/resp"
)

// ErrPoolExhausted is returned when no connection could be checked out of
// the pool: the pool is full until the context ended, it is closed, or a
// new connection could not be dialed. The cause is joined to the error.
var ErrPoolExhausted = errors.New("redisclient: no connection available")

// noCopy marks structs that must not be copied after first use (go vet copylocks).
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// PooledConn is one connection checked out of a pool for the duration of a
// scope. The connection goes back to the pool exactly once: the first call
// to Release or Discard wins and later calls do nothing, so
//
//	pc, err := Acquire(ctx, pool)
//	if err != nil {
//		return err
//	}
//	defer pc.Release()
//
// is safe on every exit path, including after an explicit Discard.
//
// A PooledConn is used by a single goroutine.
type PooledConn struct {
	noCopy noCopy

	res  Resource
	done bool
}

// Acquire checks out a connection from pool.
// It fails with an error wrapping ErrPoolExhausted if the pool yields none.
func Acquire(ctx context.Context, pool Pool) (*PooledConn, error) {
	res, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolExhausted, err)
	}
	if res == nil {
		return nil, ErrPoolExhausted
	}
	return &PooledConn{res: res}, nil
}

// Conn returns the checked out connection, for passing to protocol calls.
// It must not be used after Release or Discard.
func (pc *PooledConn) Conn() *Connection {
	return pc.res.Value()
}

// Release returns the connection to the pool. Only the first call has an effect.
func (pc *PooledConn) Release() {
	if pc == nil || pc.done {
		return
	}
	pc.done = true
	pc.res.Release()
}

// Discard closes the connection instead of returning it, for connections
// left in an unknown protocol state. Only the first call has an effect.
func (pc *PooledConn) Discard() {
	if pc == nil || pc.done {
		return
	}
	pc.done = true
	pc.res.Destroy()
}

// Returned reports whether the connection was released or discarded.
func (pc *PooledConn) Returned() bool {
	return pc.done
}

// With runs fn with a connection from pool and always gives it back, also
// when fn panics. If fn fails with an error that leaves the connection in
// an unknown state (see resp.ShouldCloseConnection), the connection is
// discarded instead of returned.
func With(ctx context.Context, pool Pool, fn func(conn *Connection) error) error {
	pc, err := Acquire(ctx, pool)
	if err != nil {
		return err
	}
	defer pc.Release()

	err = fn(pc.Conn())
	if resp.ShouldCloseConnection(err) {
		pc.Discard()
	}
	return err
}
