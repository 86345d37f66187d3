// Package ipcheck implements the companion heartbeat listener the panel's
// proprietary "Path Viability Check" ping hits: read whatever the panel
// sends, echo it back, close. It shares no state with the galaxy adapter.
package ipcheck

import (
	"context"
	"fmt"
	"net"

	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/logger"
)

const readBufferSize = 1024

// Listener accepts heartbeat pings and echoes them back.
type Listener struct {
	addr string
	port int
}

// NewListener builds a Listener from the ip_check config section.
func NewListener(cfg config.IPCheckConfig) *Listener {
	return &Listener{addr: cfg.Addr, port: cfg.Port}
}

// Serve binds and accepts connections until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", l.addr, l.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ipcheck: failed to listen on %s: %w", addr, err)
	}

	logger.Info("ip-check listener started", "addr", addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Warn("ip-check accept error", "error", err)
				continue
			}
		}
		go handle(conn)
	}
}

func handle(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}
	logger.Debug("ip-check ping received", "bytes", n, "from", conn.RemoteAddr().String())
	if _, err := conn.Write(buf[:n]); err != nil {
		logger.Debug("ip-check echo failed", "error", err)
	}
}
