package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pior/redisclient/resp"
)

// writeReply prints a reply the way redis-cli does. Array elements are
// numbered and nested arrays are indented under their index.
func writeReply(out io.Writer, r *resp.Reply, indent string) {
	if r == nil {
		fmt.Fprintln(out, "(nil)")
		return
	}

	switch r.Kind {
	case resp.KindNil:
		fmt.Fprintln(out, "(nil)")
	case resp.KindStatus:
		fmt.Fprintln(out, r.Str)
	case resp.KindError:
		fmt.Fprintf(out, "(error) %s\n", r.Str)
	case resp.KindInteger:
		fmt.Fprintf(out, "(integer) %d\n", r.Int)
	case resp.KindString:
		fmt.Fprintln(out, strconv.Quote(r.Str))
	case resp.KindArray:
		if len(r.Elems) == 0 {
			fmt.Fprintln(out, "(empty array)")
			return
		}

		width := len(strconv.Itoa(len(r.Elems)))
		for i, elem := range r.Elems {
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				fmt.Fprint(out, indent)
			}
			fmt.Fprint(out, prefix)
			writeReply(out, elem, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		fmt.Fprintf(out, "(unknown %s)\n", r.Kind)
	}
}
