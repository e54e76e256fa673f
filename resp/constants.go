package resp

// CRLF terminates every protocol line.
const CRLF = "\r\n"

// Type prefixes (first byte of every reply line).
const (
	PrefixStatus  = '+'
	PrefixError   = '-'
	PrefixInteger = ':'
	PrefixBulk    = '$'
	PrefixArray   = '*'
)

// Limits enforced while parsing replies.
const (
	// MaxBulkSize is the largest bulk string accepted (512MB, the server default).
	MaxBulkSize = 512 * 1024 * 1024

	// MaxArrayLen bounds the element count of a single array reply.
	MaxArrayLen = 1024 * 1024 * 1024

	// MaxNesting bounds nested arrays.
	MaxNesting = 32
)
