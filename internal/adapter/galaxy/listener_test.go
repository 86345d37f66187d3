package galaxy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/metrics"
	"github.com/mvndaai/galaxy-sia/internal/notify"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/charmap"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/frame"
)

func waitForAddr(t *testing.T, l *Listener) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := l.Addr(); addr != nil {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("listener never bound")
	return nil
}

func TestListenerAcceptsAndAcknowledges(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Listen.Addr = "127.0.0.1"
	cfg.Listen.Port = 0

	d := notify.NewDispatcher(cfg, nopSender{}, metrics.NewDisabled())
	l := NewListener(cfg, d, metrics.NewDisabled(), charmap.Default)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- l.Serve(ctx) }()

	addr := waitForAddr(t, l)

	client, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer client.Close()

	raw, err := frame.Encode(frame.CommandAccountID, []byte("1234"))
	require.NoError(t, err)
	_, err = client.Write(raw)
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	require.NoError(t, err)
	ack, err := frame.Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, frame.CommandAcknowledge, ack.Command)

	cancel()
	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not shut down")
	}
}

func TestListenerRejectsBadBind(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Listen.Addr = "not-a-real-host"
	cfg.Listen.Port = 0

	d := notify.NewDispatcher(cfg, nopSender{}, metrics.NewDisabled())
	l := NewListener(cfg, d, metrics.NewDisabled(), charmap.Default)

	err := l.Serve(context.Background())
	require.Error(t, err)
}
