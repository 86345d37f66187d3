package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// Connection & transport
	KeyClientIP     = "client_ip"     // Remote IP of the connected panel
	KeyClientAddr   = "client_addr"   // Full remote address (ip:port)
	KeyConnectionID = "connection_id" // Server-assigned connection identifier

	// Block framing
	KeyCommand    = "command"     // Command name (ACCOUNT_ID, NEW_EVENT, ...)
	KeyCommandHex = "command_hex" // Raw command byte, hex formatted
	KeyPayloadLen = "payload_len" // Declared or actual payload length
	KeyRawBlock   = "raw_block"   // Raw block bytes, hex formatted

	// Event / account
	KeyAccount     = "account"      // Panel account number
	KeySiteName    = "site_name"    // Routed site name
	KeyEventCode   = "event_code"   // Two-letter SIA event code
	KeyZone        = "zone"         // Zone number
	KeyChunkIndex  = "chunk_index"  // 1-based index of the event chunk in a connection
	KeyChunkTotal  = "chunk_total"  // Total chunks found in a connection

	// Dispatch
	KeyTopicURL   = "topic_url"   // ntfy topic URL
	KeyPriority   = "priority"    // Notification priority 1..5
	KeyRetryCount = "retry_count" // Number of retry attempts so far
	KeyQueueDepth = "queue_depth" // Current depth of the dispatch queue
	KeyJobID      = "job_id"      // Notification job identifier

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// ClientIP returns a slog.Attr for the panel's remote IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientAddr returns a slog.Attr for the full remote address.
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// ConnectionID returns a slog.Attr for the connection identifier.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// Command returns a slog.Attr for a protocol command name.
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// CommandHex returns a slog.Attr for a raw command byte.
func CommandHex(b byte) slog.Attr {
	return slog.String(KeyCommandHex, hexByte(b))
}

// PayloadLen returns a slog.Attr for a payload length.
func PayloadLen(n int) slog.Attr {
	return slog.Int(KeyPayloadLen, n)
}

// RawBlock returns a slog.Attr for a raw block, hex formatted.
func RawBlock(b []byte) slog.Attr {
	return slog.String(KeyRawBlock, hexBytes(b))
}

// Account returns a slog.Attr for the panel account number.
func Account(account string) slog.Attr {
	return slog.String(KeyAccount, account)
}

// SiteName returns a slog.Attr for the routed site name.
func SiteName(name string) slog.Attr {
	return slog.String(KeySiteName, name)
}

// EventCode returns a slog.Attr for the two-letter SIA event code.
func EventCode(code string) slog.Attr {
	return slog.String(KeyEventCode, code)
}

// Zone returns a slog.Attr for the zone number.
func Zone(zone string) slog.Attr {
	return slog.String(KeyZone, zone)
}

// ChunkIndex returns a pair of slog.Attrs for a chunk's position among its siblings.
func ChunkIndex(i, total int) []slog.Attr {
	return []slog.Attr{slog.Int(KeyChunkIndex, i), slog.Int(KeyChunkTotal, total)}
}

// TopicURL returns a slog.Attr for the ntfy topic URL.
func TopicURL(url string) slog.Attr {
	return slog.String(KeyTopicURL, url)
}

// Priority returns a slog.Attr for notification priority.
func Priority(p int) slog.Attr {
	return slog.Int(KeyPriority, p)
}

// RetryCount returns a slog.Attr for the retry attempt count.
func RetryCount(n int) slog.Attr {
	return slog.Int(KeyRetryCount, n)
}

// QueueDepth returns a slog.Attr for the current dispatch queue depth.
func QueueDepth(n int) slog.Attr {
	return slog.Int(KeyQueueDepth, n)
}

// JobID returns a slog.Attr for a notification job identifier.
func JobID(id string) slog.Attr {
	return slog.String(KeyJobID, id)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func hexByte(b byte) string {
	const hexDigits = "0123456789abcdef"
	return "0x" + string(hexDigits[b>>4]) + string(hexDigits[b&0xf])
}

func hexBytes(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}
