package frame

import (
	"net"
	"time"
)

// reframerReadSize is the chunk size used for each underlying Read; it has
// no relationship to block size, only to how much the reframer is willing
// to buffer before re-checking for a complete block.
const reframerReadSize = 1024

// Reframer sits between a net.Conn and the decoder, guaranteeing that every
// value it returns is exactly one wire block (or the encryption handshake
// marker, or a buffer whose first byte cannot be a length byte, passed
// through whole; see splitBlock), regardless of how the underlying reads
// happened to land. A
// single Read can coalesce two panel blocks into one buffer, or deliver
// only half of one; Reframer buffers across Read calls so callers never see
// either case. One Reframer is created per accepted connection.
type Reframer struct {
	nc          net.Conn
	idleTimeout time.Duration
	buf         []byte
	scratch     [reframerReadSize]byte
}

// NewReframer wraps nc, applying idleTimeout as the read deadline before
// every underlying Read.
func NewReframer(nc net.Conn, idleTimeout time.Duration) *Reframer {
	return &Reframer{nc: nc, idleTimeout: idleTimeout}
}

// Next returns the next whole block. If the buffered bytes begin with the
// proprietary encryption handshake marker, Next returns them immediately
// without waiting for more data, since IsEncryptionHandshake only needs the
// first two bytes and the caller closes the connection on sight of it. Next
// returns a non-nil error only from the connection itself (setting the read
// deadline, or Read: closed connection, idle timeout, ...); framing errors are the decoder's concern, not the
// reframer's.
func (rf *Reframer) Next() ([]byte, error) {
	for {
		if len(rf.buf) >= 2 && IsEncryptionHandshake(rf.buf) {
			out := rf.buf
			rf.buf = nil
			return out, nil
		}

		if block, rest, ok := splitBlock(rf.buf); ok {
			rf.buf = rest
			return block, nil
		}

		if err := rf.nc.SetReadDeadline(time.Now().Add(rf.idleTimeout)); err != nil {
			return nil, err
		}

		n, err := rf.nc.Read(rf.scratch[:])
		if n > 0 {
			rf.buf = append(rf.buf, rf.scratch[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

// splitBlock reports whether buf begins with one complete wire block,
// returning it and the bytes left over for the next call. A length byte
// that can't possibly be valid (outside 0x40..0xFF) is handed to the
// decoder as-is rather than held forever waiting for a length that will
// never arrive — Decode still rejects it, with the same REJECT behavior as
// before the reframer existed.
func splitBlock(buf []byte) (block, rest []byte, ok bool) {
	if len(buf) == 0 {
		return nil, buf, false
	}

	declaredLen := int(buf[0]) - lengthBias
	if declaredLen < 0 || declaredLen > MaxPayloadLen {
		return buf, nil, true
	}

	total := declaredLen + 3
	if len(buf) < total {
		return nil, buf, false
	}
	return buf[:total], buf[total:], true
}
