package redisclient

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pior/redisclient/internal/testutils"
	"github.com/pior/redisclient/resp"
)

// countingPool is a Pool handing out mock connections. It counts acquires
// and returns, and flags a connection handed out twice at the same time.
type countingPool struct {
	mu        sync.Mutex
	maxSize   int
	idle      []*countingResource
	inUse     map[*Connection]bool
	created   int
	acquired  int
	released  int
	destroyed int
	shared    int
	closed    bool

	// acquireErr, when set, makes every Acquire fail.
	acquireErr error
}

func newCountingPool(maxSize int) *countingPool {
	return &countingPool{maxSize: maxSize, inUse: make(map[*Connection]bool)}
}

type countingResource struct {
	pool    *countingPool
	conn    *Connection
	created time.Time
}

func (r *countingResource) Value() *Connection          { return r.conn }
func (r *countingResource) Release()                    { r.pool.giveBack(r, false) }
func (r *countingResource) ReleaseUnused()              { r.pool.giveBack(r, false) }
func (r *countingResource) Destroy()                    { r.pool.giveBack(r, true) }
func (r *countingResource) CreationTime() time.Time     { return r.created }
func (r *countingResource) IdleDuration() time.Duration { return 0 }

func (p *countingPool) Acquire(ctx context.Context) (Resource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	if p.closed {
		return nil, ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res *countingResource
	if n := len(p.idle); n > 0 {
		res = p.idle[n-1]
		p.idle = p.idle[:n-1]
	} else {
		if p.created-p.destroyed >= p.maxSize {
			return nil, errors.New("pool empty")
		}
		p.created++
		res = &countingResource{
			pool:    p,
			conn:    NewConnection(testutils.NewConnectionMock(), "fake:6379"),
			created: time.Now(),
		}
	}

	if p.inUse[res.conn] {
		p.shared++
	}
	p.inUse[res.conn] = true
	p.acquired++
	return res, nil
}

func (p *countingPool) giveBack(res *countingResource, destroy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inUse, res.conn)
	if destroy {
		p.destroyed++
		res.conn.Close()
		return
	}
	p.released++
	p.idle = append(p.idle, res)
}

func (p *countingPool) AcquireAllIdle() []Resource {
	p.mu.Lock()
	defer p.mu.Unlock()

	resources := make([]Resource, 0, len(p.idle))
	for _, res := range p.idle {
		p.inUse[res.conn] = true
		p.acquired++
		resources = append(resources, res)
	}
	p.idle = nil
	return resources
}

func (p *countingPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *countingPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		AcquireCount:   uint64(p.acquired),
		CreatedConns:   uint64(p.created),
		DestroyedConns: uint64(p.destroyed),
		TotalConns:     int32(p.created - p.destroyed),
		IdleConns:      int32(len(p.idle)),
		ActiveConns:    int32(len(p.inUse)),
	}
}

// assertBalanced fails the test if a connection is still checked out.
func (p *countingPool) assertBalanced(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	if returned := p.released + p.destroyed; returned != p.acquired {
		t.Errorf("unbalanced pool: %d acquired, %d released, %d destroyed", p.acquired, p.released, p.destroyed)
	}
	if p.shared != 0 {
		t.Errorf("connection handed out while in use %d times", p.shared)
	}
}

// fakeProtocol implements PING, SET, GET and INCR against an in-memory map.
// It counts allocated and freed replies and detects concurrent use of a
// connection.
type fakeProtocol struct {
	mu       sync.Mutex
	store    map[string]string
	commands [][]string
	active   map[*Connection]bool
	overlap  int

	delay     time.Duration
	err       error
	allocated atomic.Int64
	freed     atomic.Int64
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{store: make(map[string]string), active: make(map[*Connection]bool)}
}

func (p *fakeProtocol) Execute(conn *Connection, args []resp.Arg) (*resp.Reply, error) {
	words := make([]string, len(args))
	for i, arg := range args {
		words[i] = arg.String()
	}

	p.mu.Lock()
	p.commands = append(p.commands, words)
	if p.active[conn] {
		p.overlap++
	}
	p.active[conn] = true
	err := p.err
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.active, conn)
		p.mu.Unlock()
	}()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reply := p.newReply(resp.KindStatus)
	switch strings.ToUpper(words[0]) {
	case "SET":
		p.store[words[1]] = words[2]
		reply.Str = "OK"
	case "GET":
		v, ok := p.store[words[1]]
		if !ok {
			reply.Kind = resp.KindNil
			break
		}
		reply.Kind = resp.KindString
		reply.Str = v
	case "INCR":
		n, _ := strconv.ParseInt(p.store[words[1]], 10, 64)
		n++
		p.store[words[1]] = strconv.FormatInt(n, 10)
		reply.Kind = resp.KindInteger
		reply.Int = n
	case "PING":
		reply.Str = "PONG"
	case "LRANGE":
		reply.Kind = resp.KindArray
	default:
		reply.Kind = resp.KindError
		reply.Str = "ERR unknown command '" + words[0] + "'"
	}
	return reply, nil
}

func (p *fakeProtocol) newReply(kind resp.Kind) *resp.Reply {
	p.allocated.Add(1)
	return resp.NewReply(kind)
}

func (p *fakeProtocol) Free(reply *resp.Reply) {
	p.freed.Add(1)
	resp.FreeReply(reply)
}

func (p *fakeProtocol) executed() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.commands...)
}

// newFakeClient returns a client using a counting pool and a fake protocol.
func newFakeClient(t *testing.T, maxSize int) (*Client, *countingPool, *fakeProtocol) {
	t.Helper()

	pool := newCountingPool(maxSize)
	protocol := newFakeProtocol()

	client, err := New(Config{
		Endpoints: []string{"fake"},
		Pool: func(func(context.Context) (*Connection, error), int32) (Pool, error) {
			return pool, nil
		},
		Protocol: protocol,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(client.Close)

	return client, pool, protocol
}
