package resp

import "strconv"

// ArgKind identifies the Go type carried by an Arg.
type ArgKind uint8

const (
	ArgString ArgKind = iota
	ArgInt
	ArgBytes
)

// Arg is one command argument.
//
// Every argument is sent as a bulk string; the kind only describes how the
// value was supplied. The zero value is an empty string argument.
type Arg struct {
	kind ArgKind
	str  string
	num  int64
	blob []byte
}

// String returns a string argument.
func String(s string) Arg {
	return Arg{kind: ArgString, str: s}
}

// Int returns an integer argument, sent in decimal.
func Int(n int64) Arg {
	return Arg{kind: ArgInt, num: n}
}

// Bytes returns a binary argument. The slice is not copied.
func Bytes(b []byte) Arg {
	return Arg{kind: ArgBytes, blob: b}
}

// Strings converts words into string arguments.
func Strings(words ...string) []Arg {
	args := make([]Arg, len(words))
	for i, w := range words {
		args[i] = String(w)
	}
	return args
}

func (a Arg) Kind() ArgKind {
	return a.kind
}

// AppendTo appends the argument payload to dst.
func (a Arg) AppendTo(dst []byte) []byte {
	switch a.kind {
	case ArgInt:
		return strconv.AppendInt(dst, a.num, 10)
	case ArgBytes:
		return append(dst, a.blob...)
	default:
		return append(dst, a.str...)
	}
}

// Len returns the payload length in bytes.
func (a Arg) Len() int {
	switch a.kind {
	case ArgInt:
		var scratch [20]byte
		return len(strconv.AppendInt(scratch[:0], a.num, 10))
	case ArgBytes:
		return len(a.blob)
	default:
		return len(a.str)
	}
}

// String returns the payload as text.
func (a Arg) String() string {
	switch a.kind {
	case ArgInt:
		return strconv.FormatInt(a.num, 10)
	case ArgBytes:
		return string(a.blob)
	default:
		return a.str
	}
}
