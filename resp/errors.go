package resp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCommand is returned when a command has no arguments.
var ErrEmptyCommand = errors.New("resp: empty command")

// ServerError is an error reply sent by the server, like "ERR syntax error"
// or "WRONGTYPE Operation against a key holding the wrong kind of value".
//
// Connection handling: the connection stays usable.
type ServerError struct {
	// Code is the leading upper-case word (ERR, WRONGTYPE, MOVED, ...).
	// Empty when the message has no such prefix.
	Code    string
	Message string
}

// NewServerError splits an error reply line into its code and message.
func NewServerError(line string) *ServerError {
	code, rest, found := strings.Cut(line, " ")
	if code != "" && code == strings.ToUpper(code) && isWord(code) {
		if !found {
			rest = ""
		}
		return &ServerError{Code: code, Message: rest}
	}
	return &ServerError{Message: line}
}

func isWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && c != '_' && c != '-' {
			return false
		}
	}
	return true
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Code + " " + e.Message
}

// ShouldCloseConnection returns false - error replies are complete frames.
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// ProtocolError reports data that does not follow the wire format.
//
// Connection handling: CLOSE, the stream position is unknown.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "resp: protocol error: " + e.Message + ": " + e.Err.Error()
	}
	return "resp: protocol error: " + e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps an I/O failure while talking to the server.
//
// Connection handling: CLOSE.
type ConnectionError struct {
	Op  string // read, write, flush
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("resp: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// FormatError is returned by Format for an invalid format string or
// mismatched arguments. Nothing has been sent when it occurs.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return "resp: format: " + e.Message
}

func (e *FormatError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is implemented by the error types of this package.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns false for nil, ServerError, FormatError and ErrEmptyCommand.
// Unknown error types are treated as fatal for the connection.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrEmptyCommand) {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
