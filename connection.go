package redisclient

import (
	"bufio"
	"net"
	"time"
)

const (
	readBufferSize  = 4096
	writeBufferSize = 4096
)

// Connection is a single connection to a server.
// It is not safe for concurrent use; the pool hands it to one command at a time.
type Connection struct {
	Reader *bufio.Reader
	Writer *bufio.Writer

	conn net.Conn
	addr string
}

// NewConnection wraps a net.Conn connected to addr.
func NewConnection(conn net.Conn, addr string) *Connection {
	return &Connection{
		Reader: bufio.NewReaderSize(conn, readBufferSize),
		Writer: bufio.NewWriterSize(conn, writeBufferSize),
		conn:   conn,
		addr:   addr,
	}
}

// Addr returns the endpoint this connection was dialed to.
func (c *Connection) Addr() string {
	return c.addr
}

// SetDeadline sets the read and write deadline of the underlying connection.
// A zero value clears it.
func (c *Connection) SetDeadline(t time.Time) error {
	if c.conn == nil {
		return nil
	}
	return c.conn.SetDeadline(t)
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
