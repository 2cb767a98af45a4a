package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCommand_ReportsChanges(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.sessionsDir(), 0700))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- executeCommand(ctx, out, "", "--config", env.configPath, "watch")
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "sessions: (none)")
	}, 2*time.Second, 10*time.Millisecond)

	// The watcher starts right after the initial list is printed
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(env.sessionsDir(), "external.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0600))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "sessions: external")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestServeMetrics(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- serveMetrics(ctx, listener, out)
	}()

	url := fmt.Sprintf("http://%s/metrics", listener.Addr())
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(raw)
		return true
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, "sessions_available")
	assert.Contains(t, out.String(), "Serving metrics on http://"+listener.Addr().String())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestServeMetricsCommand_RejectsBadAddr(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("serve-metrics", "--addr", "not-an-addr")
	assert.Error(t, err)
}
