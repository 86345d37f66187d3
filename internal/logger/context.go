package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds per-connection logging context.
type LogContext struct {
	ConnectionID string    // Server-assigned connection identifier
	ClientIP     string    // Remote IP address of the panel (without port)
	Account      string    // Account number, once an ACCOUNT_ID block has been seen
	Command      string    // Most recently processed command name
	StartTime    time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a freshly accepted connection.
func NewLogContext(connectionID, clientIP string) *LogContext {
	return &LogContext{
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		StartTime:    time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		ConnectionID: lc.ConnectionID,
		ClientIP:     lc.ClientIP,
		Account:      lc.Account,
		Command:      lc.Command,
		StartTime:    lc.StartTime,
	}
}

// WithAccount returns a copy with the account set
func (lc *LogContext) WithAccount(account string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Account = account
	}
	return clone
}

// WithCommand returns a copy with the most recent command set
func (lc *LogContext) WithCommand(command string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Command = command
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
