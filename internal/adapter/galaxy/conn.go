// Package galaxy implements the TCP connection handler and listener for the
// Galaxy Flex panel's SIA DC-09 variant: one connection per accepted socket,
// one state machine driving it through Reading, Validating, Processing, and
// Closing.
package galaxy

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/logger"
	"github.com/mvndaai/galaxy-sia/internal/metrics"
	"github.com/mvndaai/galaxy-sia/internal/notify"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/assembler"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/charmap"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/event"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/frame"
)

const (
	idleTimeout  = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// conn drives one accepted socket through the protocol state machine. It is
// created fresh for every connection and discarded once Serve returns.
type conn struct {
	nc         net.Conn
	cfg        *config.Config
	dispatcher *notify.Dispatcher
	metrics    *metrics.Metrics
	charMap    charmap.Map

	lc          *logger.LogContext
	validBlocks []frame.Block
}

// eventLogAdapter satisfies event.Logger by routing through the package-level
// context-aware logger, so parse-time Debug/Warn calls carry the connection's
// id, client IP, and account the same way every other log line in this
// connection does.
type eventLogAdapter struct{ ctx context.Context }

func (l eventLogAdapter) Debug(msg string, args ...any) { logger.DebugCtx(l.ctx, msg, args...) }
func (l eventLogAdapter) Warn(msg string, args ...any)  { logger.WarnCtx(l.ctx, msg, args...) }

// serve runs the connection until END_OF_DATA has been processed, ctx is
// cancelled, or a fatal protocol condition (read error, idle timeout,
// encryption handshake) ends it. It never returns an error: every failure is logged and contained here,
// matching the listener's expectation that a connection handler cannot bring
// down the accept loop.
func (c *conn) serve(ctx context.Context) {
	defer c.nc.Close()
	ctx = logger.WithContext(ctx, c.lc)

	logger.InfoCtx(ctx, "panel connected")
	c.metrics.IncConnectionOpened()
	defer func() {
		c.metrics.IncConnectionClosed()
		logger.InfoCtx(ctx, "panel disconnected", logger.DurationMs(c.lc.DurationMs()))
	}()

	rf := frame.NewReframer(c.nc, idleTimeout)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := rf.Next()
		if err != nil {
			logger.DebugCtx(ctx, "connection read ended", logger.Err(err))
			return
		}

		if frame.IsEncryptionHandshake(raw) {
			logger.WarnCtx(ctx, "proprietary encryption handshake unsupported, closing")
			return
		}

		block, err := frame.Decode(raw)
		if err != nil {
			c.handleInvalidBlock(ctx, err)
			continue
		}

		c.metrics.RecordBlockReceived(block.Command.String())
		if block.Command == frame.CommandAccountID {
			c.lc = c.lc.WithAccount(string(block.Payload))
			ctx = logger.WithContext(ctx, c.lc)
		}

		if !c.acknowledge(ctx) {
			return
		}

		if block.Command == frame.CommandEndOfData {
			c.process(ctx)
			return
		}

		c.validBlocks = append(c.validBlocks, block)
	}
}

// handleInvalidBlock replies REJECT to any framing failure; the encryption
// handshake is intercepted earlier in serve and never reaches Decode.
func (c *conn) handleInvalidBlock(ctx context.Context, err error) {
	kind := "unknown"
	var invalid *frame.InvalidBlockError
	if errors.As(err, &invalid) {
		kind = invalid.Kind.String()
	}
	logger.WarnCtx(ctx, "rejecting invalid block", logger.Err(err))
	c.metrics.RecordBlockRejected(kind)

	raw, encErr := frame.Encode(frame.CommandReject, nil)
	if encErr != nil {
		logger.ErrorCtx(ctx, "failed to encode REJECT block", logger.Err(encErr))
		return
	}
	c.write(ctx, raw)
}

// acknowledge replies ACKNOWLEDGE to the block just validated, returning
// false (and leaving the connection closed by the caller) if the write
// failed.
func (c *conn) acknowledge(ctx context.Context) bool {
	raw, err := frame.Encode(frame.CommandAcknowledge, nil)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to encode ACKNOWLEDGE block", logger.Err(err))
		return false
	}
	return c.write(ctx, raw)
}

func (c *conn) write(ctx context.Context, raw []byte) bool {
	if err := c.nc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		logger.WarnCtx(ctx, "failed to set write deadline", logger.Err(err))
		return false
	}
	if _, err := c.nc.Write(raw); err != nil {
		logger.WarnCtx(ctx, "failed to write response block", logger.Err(err))
		return false
	}
	return true
}

// process runs the assembler and parsers over everything collected this
// connection, enqueuing one notification job per chunk that yielded an
// event code.
func (c *conn) process(ctx context.Context) {
	chunks := assembler.Chunks(c.validBlocks)
	log := eventLogAdapter{ctx: ctx}

	for _, chunk := range chunks {
		e := event.ParseChunk(chunk, c.cfg.SiteName, c.charMap, log)
		c.metrics.RecordEventParsed()

		if e.EventCode == "" {
			logger.DebugCtx(ctx, "event chunk produced no event code, skipping dispatch",
				logger.Account(e.Account))
			continue
		}

		job := notify.NewJob(e)
		c.dispatcher.Enqueue(job)
		logger.InfoCtx(ctx, "notification enqueued",
			logger.Account(e.Account), logger.EventCode(e.EventCode), logger.JobID(job.ID.String()))
	}
}
