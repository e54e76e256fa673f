package testutils

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pior/redisclient/resp"
)

// Server is an in-process server speaking enough of the Redis protocol for
// client tests: PING, ECHO, SET, GET, INCR, DEL, LPUSH, LRANGE (whole list,
// indices ignored) and QUIT.
//
// Keys set through LPUSH hold lists, so string commands on them reply with
// WRONGTYPE like a real server.
type Server struct {
	listener net.Listener

	mu      sync.Mutex
	strings map[string]string
	lists   map[string][]string

	commands atomic.Int64
	accepted atomic.Int64
	wg       sync.WaitGroup
}

// NewServer starts a server on a random local port and stops it when the
// test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}

	s := &Server{
		listener: listener,
		strings:  make(map[string]string),
		lists:    make(map[string][]string),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Commands returns the number of commands served.
func (s *Server) Commands() int64 {
	return s.commands.Load()
}

// Connections returns the number of accepted connections.
func (s *Server) Connections() int64 {
	return s.accepted.Load()
}

// Value returns the string stored at key.
func (s *Server) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.strings[key]
	return v, ok
}

func (s *Server) Close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.accepted.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		req, err := resp.ReadReply(r)
		if err != nil {
			return
		}

		args := make([]string, 0, len(req.Elems))
		for _, e := range req.Elems {
			args = append(args, e.Str)
		}
		resp.FreeReply(req)

		if len(args) == 0 {
			w.WriteString("-ERR empty command\r\n")
			w.Flush()
			continue
		}

		s.commands.Add(1)
		quit := s.dispatch(w, args)
		if err := w.Flush(); err != nil || quit {
			return
		}
	}
}

func (s *Server) dispatch(w *bufio.Writer, args []string) (quit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToUpper(args[0])
	switch {
	case name == "PING" && len(args) == 1:
		w.WriteString("+PONG\r\n")

	case name == "ECHO" && len(args) == 2:
		writeBulk(w, args[1])

	case name == "QUIT":
		w.WriteString("+OK\r\n")
		return true

	case name == "SET" && len(args) == 3:
		delete(s.lists, args[1])
		s.strings[args[1]] = args[2]
		w.WriteString("+OK\r\n")

	case name == "GET" && len(args) == 2:
		if _, ok := s.lists[args[1]]; ok {
			writeWrongType(w)
			return false
		}
		v, ok := s.strings[args[1]]
		if !ok {
			w.WriteString("$-1\r\n")
			return false
		}
		writeBulk(w, v)

	case name == "INCR" && len(args) == 2:
		if _, ok := s.lists[args[1]]; ok {
			writeWrongType(w)
			return false
		}
		n, err := strconv.ParseInt(s.strings[args[1]], 10, 64)
		if err != nil && s.strings[args[1]] != "" {
			w.WriteString("-ERR value is not an integer or out of range\r\n")
			return false
		}
		n++
		s.strings[args[1]] = strconv.FormatInt(n, 10)
		w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")

	case name == "DEL" && len(args) >= 2:
		deleted := 0
		for _, key := range args[1:] {
			_, isString := s.strings[key]
			_, isList := s.lists[key]
			if isString || isList {
				deleted++
			}
			delete(s.strings, key)
			delete(s.lists, key)
		}
		w.WriteString(":" + strconv.Itoa(deleted) + "\r\n")

	case name == "LPUSH" && len(args) >= 3:
		if _, ok := s.strings[args[1]]; ok {
			writeWrongType(w)
			return false
		}
		for _, v := range args[2:] {
			s.lists[args[1]] = append([]string{v}, s.lists[args[1]]...)
		}
		w.WriteString(":" + strconv.Itoa(len(s.lists[args[1]])) + "\r\n")

	case name == "LRANGE" && len(args) == 4:
		items := s.lists[args[1]]
		w.WriteString("*" + strconv.Itoa(len(items)) + "\r\n")
		for _, v := range items {
			writeBulk(w, v)
		}

	default:
		w.WriteString("-ERR unknown command '" + args[0] + "'\r\n")
	}
	return false
}

func writeBulk(w *bufio.Writer, v string) {
	w.WriteString("$" + strconv.Itoa(len(v)) + "\r\n" + v + "\r\n")
}

func writeWrongType(w *bufio.Writer) {
	w.WriteString("-WRONGTYPE Operation against a key holding the wrong kind of value\r\n")
}
