package redisclient

import "github.com/pior/redisclient/resp"

// Protocol sends one command over a connection and reads its reply.
//
// Execute returns a reply owned by the caller, to be handed back with Free
// exactly once. Error replies are replies, not Go errors. A Go error means
// the command failed at the connection or framing level; whether the
// connection can be reused is decided with resp.ShouldCloseConnection.
//
// Implementations must be safe for concurrent use on distinct connections.
type Protocol interface {
	Execute(conn *Connection, args []resp.Arg) (*resp.Reply, error)
	Free(reply *resp.Reply)
}

// RESP is the default Protocol, speaking RESP2.
var RESP Protocol = respProtocol{}

type respProtocol struct{}

func (respProtocol) Execute(conn *Connection, args []resp.Arg) (*resp.Reply, error) {
	if err := resp.WriteCommand(conn.Writer, args); err != nil {
		return nil, err
	}
	return resp.ReadReply(conn.Reader)
}

func (respProtocol) Free(reply *resp.Reply) {
	resp.FreeReply(reply)
}
