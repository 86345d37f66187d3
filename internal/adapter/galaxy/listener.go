package galaxy

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/logger"
	"github.com/mvndaai/galaxy-sia/internal/metrics"
	"github.com/mvndaai/galaxy-sia/internal/notify"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/charmap"
)

// shutdownGrace is how long Serve waits for in-flight connections to finish
// on their own before force-closing them.
const shutdownGrace = 2 * time.Second

// Listener accepts panel connections and spawns a conn per socket. It is the
// process's C8: one accept loop, one goroutine per connection, coordinated
// shutdown.
type Listener struct {
	cfg        *config.Config
	dispatcher *notify.Dispatcher
	metrics    *metrics.Metrics
	charMap    charmap.Map

	mu       sync.Mutex
	listener net.Listener

	activeConns  sync.WaitGroup
	connsMu      sync.Mutex
	conns        map[net.Conn]struct{}
	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// NewListener builds a Listener ready to Serve. charMap is the merged
// built-in-plus-configured character map every connection uses to decode
// ASCII blocks.
func NewListener(cfg *config.Config, dispatcher *notify.Dispatcher, m *metrics.Metrics, charMap charmap.Map) *Listener {
	return &Listener{
		cfg:        cfg,
		dispatcher: dispatcher,
		metrics:    m,
		charMap:    charMap,
		conns:      make(map[net.Conn]struct{}),
		shutdown:   make(chan struct{}),
	}
}

// Addr returns the bound listener address, or nil if Serve hasn't bound yet.
// Mainly useful in tests that bind to port 0 and need the OS-assigned port.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Serve binds the configured address and accepts connections until ctx is
// cancelled. It returns a non-nil error only for a bind failure; shutdown via
// ctx cancellation always returns nil.
func (l *Listener) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", l.cfg.Listen.Addr, l.cfg.Listen.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("galaxy: failed to listen on %s: %w", addr, err)
	}

	l.mu.Lock()
	l.listener = ln
	l.mu.Unlock()

	logger.Info("galaxy listener started", "addr", addr)

	go func() {
		<-ctx.Done()
		l.initiateShutdown()
	}()

	var connID int64
	for {
		tcpConn, err := ln.Accept()
		if err != nil {
			select {
			case <-l.shutdown:
				return l.gracefulShutdown()
			default:
				logger.Warn("error accepting connection", "error", err)
				continue
			}
		}

		connID++
		l.dispatchConn(ctx, tcpConn, connID)
	}
}

// dispatchConn registers tcpConn and spawns its handler goroutine. The setup
// itself is wrapped in recover so a panic while wiring up a connection can't
// take the accept loop down with it; the handler goroutine carries its own
// recover for panics during serve.
func (l *Listener) dispatchConn(ctx context.Context, tcpConn net.Conn, connID int64) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic accepting connection", "error", r, "stack", string(debug.Stack()))
			_ = tcpConn.Close()
		}
	}()

	id := fmt.Sprintf("conn-%d", connID)
	host, _, _ := net.SplitHostPort(tcpConn.RemoteAddr().String())

	l.connsMu.Lock()
	l.conns[tcpConn] = struct{}{}
	l.connsMu.Unlock()
	l.activeConns.Add(1)

	c := &conn{
		nc:         tcpConn,
		cfg:        l.cfg,
		dispatcher: l.dispatcher,
		metrics:    l.metrics,
		charMap:    l.charMap,
		lc:         logger.NewLogContext(id, host),
	}

	go func(tc net.Conn) {
		defer func() {
			// Prevents a single connection's panic from crashing the server.
			if r := recover(); r != nil {
				logger.Error("panic in connection handler", "error", r, "stack", string(debug.Stack()))
			}
			l.connsMu.Lock()
			delete(l.conns, tc)
			l.connsMu.Unlock()
			l.activeConns.Done()
		}()
		c.serve(ctx)
	}(tcpConn)
}

func (l *Listener) initiateShutdown() {
	l.shutdownOnce.Do(func() {
		close(l.shutdown)
		l.mu.Lock()
		if l.listener != nil {
			_ = l.listener.Close()
		}
		l.mu.Unlock()
	})
}

func (l *Listener) gracefulShutdown() error {
	done := make(chan struct{})
	go func() {
		l.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("galaxy listener shutdown complete")
	case <-time.After(shutdownGrace):
		logger.Warn("galaxy listener shutdown grace period exceeded, force-closing connections")
		l.connsMu.Lock()
		for tc := range l.conns {
			_ = tc.Close()
		}
		l.connsMu.Unlock()
	}
	return nil
}
