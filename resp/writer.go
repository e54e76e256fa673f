package resp

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"sync"
)

// Buffer pool for building commands
var bufferPool = sync.Pool{
	New: func() any {
		// Typical command is well under 256 bytes
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

const maxPooledBuffer = 64 * 1024

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// AppendCommand appends the wire form of args to dst.
// Format: *<n>\r\n followed by $<len>\r\n<payload>\r\n per argument.
func AppendCommand(dst []byte, args []Arg) []byte {
	dst = append(dst, PrefixArray)
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, CRLF...)

	for _, a := range args {
		dst = append(dst, PrefixBulk)
		dst = strconv.AppendInt(dst, int64(a.Len()), 10)
		dst = append(dst, CRLF...)
		dst = a.AppendTo(dst)
		dst = append(dst, CRLF...)
	}
	return dst
}

// WriteCommand serializes args and writes them to w.
//
// When w is a *bufio.Writer the command is written through it and flushed.
// Other writers receive the whole command in a single Write call.
func WriteCommand(w io.Writer, args []Arg) error {
	if len(args) == 0 {
		return ErrEmptyCommand
	}

	if bw, ok := w.(*bufio.Writer); ok {
		return writeCommandBuffered(bw, args)
	}

	return writeCommandUnbuffered(w, args)
}

func writeCommandBuffered(bw *bufio.Writer, args []Arg) error {
	var scratch [24]byte

	bw.WriteByte(PrefixArray)
	bw.Write(strconv.AppendInt(scratch[:0], int64(len(args)), 10))
	bw.WriteString(CRLF)

	for _, a := range args {
		bw.WriteByte(PrefixBulk)
		bw.Write(strconv.AppendInt(scratch[:0], int64(a.Len()), 10))
		bw.WriteString(CRLF)

		switch a.kind {
		case ArgBytes:
			bw.Write(a.blob)
		case ArgInt:
			bw.Write(strconv.AppendInt(scratch[:0], a.num, 10))
		default:
			bw.WriteString(a.str)
		}
		bw.WriteString(CRLF)
	}

	// bufio.Writer keeps the first error; Flush reports it
	if err := bw.Flush(); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

func writeCommandUnbuffered(w io.Writer, args []Arg) error {
	buf := getBuffer()
	defer putBuffer(buf)

	buf.Write(AppendCommand(buf.AvailableBuffer(), args))

	if _, err := w.Write(buf.Bytes()); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}
