package redisclient

import "github.com/pior/redisclient/resp"

// ReplyHandle owns one reply and frees it on Close.
//
// At most one handle owns a given reply. Take and Reset move ownership
// between handles, leaving the source empty; the reply itself is never
// copied. Closing an empty handle, or a nil *ReplyHandle, does nothing.
// Take, Release and the accessors treat a nil *ReplyHandle as empty, and
// Reset accepts a nil other. Reset and Adopt store into h, which must not
// be nil.
//
// A ReplyHandle is not safe for concurrent use.
type ReplyHandle struct {
	reply *resp.Reply
	free  func(*resp.Reply)
}

// ReplyRef carries a reply whose ownership is in transit, typically the
// return value of a function handing a fresh reply to its caller.
// Adopt it into a handle right away; a dropped ReplyRef leaks its reply.
type ReplyRef struct {
	reply *resp.Reply
	free  func(*resp.Reply)
}

// Reply returns the reply in transit, without taking ownership.
func (r ReplyRef) Reply() *resp.Reply {
	return r.reply
}

// NewReplyHandle adopts reply, which may be nil. free releases it and
// defaults to resp.FreeReply.
func NewReplyHandle(reply *resp.Reply, free func(*resp.Reply)) *ReplyHandle {
	if free == nil {
		free = resp.FreeReply
	}
	return &ReplyHandle{reply: reply, free: free}
}

// AdoptReply creates a handle owning the reply carried by ref.
func AdoptReply(ref ReplyRef) *ReplyHandle {
	return NewReplyHandle(ref.reply, ref.free)
}

// Close frees the owned reply, if any, and leaves the handle empty.
func (h *ReplyHandle) Close() {
	if h == nil || h.reply == nil {
		return
	}
	freeReply(h.detach(), h.free)
}

// Take moves the reply into a new handle. h is left empty.
func (h *ReplyHandle) Take() *ReplyHandle {
	if h == nil {
		return &ReplyHandle{}
	}
	return &ReplyHandle{reply: h.detach(), free: h.free}
}

// Release gives up ownership without freeing: the reply leaves h inside
// the returned ReplyRef.
func (h *ReplyHandle) Release() ReplyRef {
	if h == nil {
		return ReplyRef{}
	}
	return ReplyRef{reply: h.detach(), free: h.free}
}

// Reset frees the reply owned by h and moves the reply of other into h,
// leaving other empty. Resetting a handle from itself does nothing;
// resetting from a nil other only frees.
func (h *ReplyHandle) Reset(other *ReplyHandle) {
	if h == other {
		return
	}
	old, oldFree := h.reply, h.free
	h.reply = nil
	if other != nil {
		h.reply, h.free = other.detach(), other.free
	}
	freeReply(old, oldFree)
}

// Adopt frees the reply owned by h and takes ownership of the one in ref.
// Adopting the reply h already owns does nothing.
func (h *ReplyHandle) Adopt(ref ReplyRef) {
	if h.reply == ref.reply {
		return
	}
	old, oldFree := h.reply, h.free
	h.reply = ref.reply
	if ref.free != nil {
		h.free = ref.free
	}
	freeReply(old, oldFree)
}

func freeReply(reply *resp.Reply, free func(*resp.Reply)) {
	if reply == nil {
		return
	}
	if free == nil {
		free = resp.FreeReply
	}
	free(reply)
}

func (h *ReplyHandle) detach() *resp.Reply {
	reply := h.reply
	h.reply = nil
	return reply
}

// Empty reports whether h owns no reply.
// An owned reply of kind nil is not empty: check Kind for that.
func (h *ReplyHandle) Empty() bool {
	return h == nil || h.reply == nil
}

// Reply returns the owned reply for direct access. It stays owned by h
// and must not be used after h is closed.
func (h *ReplyHandle) Reply() *resp.Reply {
	if h == nil {
		return nil
	}
	return h.reply
}

// Kind returns the reply kind; resp.KindNil when h is empty.
func (h *ReplyHandle) Kind() resp.Kind {
	if h.Empty() {
		return resp.KindNil
	}
	return h.reply.Kind
}

// Str returns the status, error or bulk string payload.
func (h *ReplyHandle) Str() string {
	if h.Empty() {
		return ""
	}
	return h.reply.Str
}

// Int returns the integer payload.
func (h *ReplyHandle) Int() int64 {
	if h.Empty() {
		return 0
	}
	return h.reply.Int
}

// Elems returns the array elements. They are owned by the array reply.
func (h *ReplyHandle) Elems() []*resp.Reply {
	if h.Empty() {
		return nil
	}
	return h.reply.Elems
}

// Err returns the error reply as a *resp.ServerError, or nil.
func (h *ReplyHandle) Err() error {
	if h.Empty() {
		return nil
	}
	return h.reply.Err()
}

func (h *ReplyHandle) String() string {
	if h.Empty() {
		return "<empty>"
	}
	return h.reply.String()
}
