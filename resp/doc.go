// Package resp implements the RESP2 wire protocol used by Redis-compatible
// servers.
//
// It provides low-level building blocks with no connection management:
//
//   - Arg: a typed command argument (string, integer or binary blob)
//   - WriteCommand: serializes a command as an array of bulk strings
//   - ReadReply: parses one reply (status, error, integer, bulk, array)
//   - Reply: the in-memory reply object, allocated from a reuse pool and
//     returned with FreeReply
//   - Format: builds a command from a printf-like format string
//
// # Reply ownership
//
// Replies returned by ReadReply are owned by the caller and must be handed
// back exactly once with FreeReply. Freeing a reply also frees its array
// elements. Freeing the same reply twice panics. A freed reply must not be
// read again: its memory is reused by later reads.
//
// # Error handling
//
// Error replies from the server ("-ERR ...") are not Go errors: ReadReply
// returns a Reply with Kind == KindError. Reply.Err converts it into a
// *ServerError when the caller wants one.
//
// Go errors returned by ReadReply and WriteCommand are either *ProtocolError
// (malformed data) or *ConnectionError (I/O). Both leave the connection in
// an unknown state; use ShouldCloseConnection to decide whether to keep it.
//
// Wire format
//
//	*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n
//
// Replies:
//
//	+OK\r\n                  status
//	-ERR unknown command\r\n  error
//	:42\r\n                  integer
//	$5\r\nvalue\r\n           bulk string
//	$-1\r\n                  nil bulk string
//	*2\r\n:1\r\n:2\r\n         array
//	*-1\r\n                  nil array
package resp
