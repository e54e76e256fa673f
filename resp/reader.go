package resp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

var crlfBytes = []byte(CRLF)

// ReadReply reads and parses a single reply from r.
//
// Error replies are returned as a Reply with Kind == KindError, not as a Go
// error. Go errors indicate I/O failures (*ConnectionError, wrapping io.EOF
// when the server closed the connection) or malformed data (*ProtocolError).
// In both cases the connection should be closed.
//
// The returned reply is owned by the caller and must be released with
// FreeReply.
func ReadReply(r *bufio.Reader) (*Reply, error) {
	return readReply(r, 0)
}

func readReply(r *bufio.Reader, depth int) (*Reply, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	if len(line) == 0 {
		return nil, &ProtocolError{Message: "empty reply line"}
	}

	payload := line[1:]

	switch line[0] {
	case PrefixStatus:
		reply := NewReply(KindStatus)
		reply.Str = string(payload)
		return reply, nil

	case PrefixError:
		reply := NewReply(KindError)
		reply.Str = string(payload)
		return reply, nil

	case PrefixInteger:
		n, err := parseInt(payload)
		if err != nil {
			return nil, &ProtocolError{Message: "invalid integer reply", Err: err}
		}
		reply := NewReply(KindInteger)
		reply.Int = n
		return reply, nil

	case PrefixBulk:
		size, err := parseInt(payload)
		if err != nil {
			return nil, &ProtocolError{Message: "invalid bulk length", Err: err}
		}
		if size == -1 {
			return NewReply(KindNil), nil
		}
		if size < 0 || size > MaxBulkSize {
			return nil, &ProtocolError{Message: "bulk length out of range: " + string(payload)}
		}

		// Read data + CRLF in a single read
		data := make([]byte, size+2)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, &ConnectionError{Op: "read", Err: err}
		}
		if !bytes.HasSuffix(data, crlfBytes) {
			return nil, &ProtocolError{Message: "invalid bulk terminator"}
		}

		reply := NewReply(KindString)
		reply.Str = string(data[:size])
		return reply, nil

	case PrefixArray:
		count, err := parseInt(payload)
		if err != nil {
			return nil, &ProtocolError{Message: "invalid array length", Err: err}
		}
		if count == -1 {
			return NewReply(KindNil), nil
		}
		if count < 0 || count > MaxArrayLen {
			return nil, &ProtocolError{Message: "array length out of range: " + string(payload)}
		}
		if depth >= MaxNesting {
			return nil, &ProtocolError{Message: "arrays nested too deeply"}
		}

		reply := NewReply(KindArray)
		for range count {
			elem, err := readReply(r, depth+1)
			if err != nil {
				FreeReply(reply)
				return nil, err
			}
			reply.Elems = append(reply.Elems, elem)
		}
		return reply, nil

	default:
		return nil, &ProtocolError{Message: "unknown reply type " + strconv.QuoteRune(rune(line[0]))}
	}
}

// readLine returns the next line without its CRLF.
// The slice is only valid until the next read from r.
func readLine(r *bufio.Reader) ([]byte, error) {
	// ReadSlice avoids allocation; fall back to ReadBytes for long lines
	line, err := r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		head := append([]byte(nil), line...)
		var rest []byte
		rest, err = r.ReadBytes('\n')
		line = append(head, rest...)
	}
	if err != nil {
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, &ProtocolError{Message: "line not terminated by CRLF"}
	}
	return line[:len(line)-2], nil
}

func parseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty number")
	}
	return strconv.ParseInt(string(b), 10, 64)
}
