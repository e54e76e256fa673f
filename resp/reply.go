package resp

import (
	"strconv"
	"strings"
	"sync"
)

// Kind is the reply type tag.
type Kind uint8

const (
	KindNil Kind = iota
	KindStatus
	KindError
	KindInteger
	KindString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Reply is one decoded server reply.
//
// Only the field matching Kind is meaningful:
//   - KindStatus, KindError, KindString: Str
//   - KindInteger: Int
//   - KindArray: Elems
//   - KindNil: none
type Reply struct {
	Kind  Kind
	Str   string
	Int   int64
	Elems []*Reply

	freed bool
}

var replyPool = sync.Pool{
	New: func() any {
		return new(Reply)
	},
}

// NewReply allocates a reply of the given kind from the reuse pool.
// The caller owns it and must release it with FreeReply.
func NewReply(kind Kind) *Reply {
	r := replyPool.Get().(*Reply)
	r.Kind = kind
	r.freed = false
	return r
}

// FreeReply returns r and its elements to the reuse pool.
// Freeing nil is a no-op. Freeing a reply twice panics.
func FreeReply(r *Reply) {
	if r == nil {
		return
	}
	if r.freed {
		panic("resp: reply freed twice")
	}

	for _, e := range r.Elems {
		FreeReply(e)
	}

	clear(r.Elems)
	r.Kind = KindNil
	r.Str = ""
	r.Int = 0
	r.Elems = r.Elems[:0]
	r.freed = true
	replyPool.Put(r)
}

// Freed reports whether r was handed back with FreeReply and not reused since.
func (r *Reply) Freed() bool {
	return r.freed
}

func (r *Reply) IsNil() bool {
	return r.Kind == KindNil
}

func (r *Reply) IsError() bool {
	return r.Kind == KindError
}

// Err returns the error reply as a *ServerError, or nil for other kinds.
func (r *Reply) Err() error {
	if r.Kind != KindError {
		return nil
	}
	return NewServerError(r.Str)
}

// String renders the reply for logs and debugging.
func (r *Reply) String() string {
	var b strings.Builder
	r.render(&b)
	return b.String()
}

func (r *Reply) render(b *strings.Builder) {
	switch r.Kind {
	case KindNil:
		b.WriteString("<nil>")
	case KindStatus:
		b.WriteString(r.Str)
	case KindError:
		b.WriteString("(error) ")
		b.WriteString(r.Str)
	case KindInteger:
		b.WriteString(strconv.FormatInt(r.Int, 10))
	case KindString:
		b.WriteByte('"')
		b.WriteString(r.Str)
		b.WriteByte('"')
	case KindArray:
		b.WriteByte('[')
		for i, e := range r.Elems {
			if i > 0 {
				b.WriteByte(' ')
			}
			e.render(b)
		}
		b.WriteByte(']')
	}
}
