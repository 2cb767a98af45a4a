package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// syncBuffer is written to by watcher goroutines while tests read it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	t          *testing.T
	root       string
	configPath string
}

// newTestEnv writes a config file rooted in a temp dir and isolates HOME
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)

	configPath := filepath.Join(root, "idesession.yaml")
	content := "data_dir: " + root + "\n" +
		"sessions:\n  watch_debounce_ms: 20\n" +
		"logging:\n  level: error\n  pretty: false\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	return &testEnv{t: t, root: root, configPath: configPath}
}

func (e *testEnv) sessionsDir() string {
	return filepath.Join(e.root, "sessions")
}

func (e *testEnv) run(args ...string) (string, error) {
	return e.runContext(context.Background(), "", args...)
}

func (e *testEnv) runContext(ctx context.Context, stdin string, args ...string) (string, error) {
	e.t.Helper()
	out := &syncBuffer{}
	err := executeCommand(ctx, out, stdin, append([]string{"--config", e.configPath}, args...)...)
	return out.String(), err
}

// executeCommand runs the root command with fresh flag values. Cobra keeps
// flag values and contexts on the package-level commands between runs.
func executeCommand(ctx context.Context, out io.Writer, stdin string, args ...string) error {
	cmd := GetRootCmd()
	resetCommand(ctx, cmd)

	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}

func resetCommand(ctx context.Context, cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SetContext(ctx)

	for _, sub := range cmd.Commands() {
		resetCommand(ctx, sub)
	}
}

func hasSubcommand(name string) bool {
	for _, c := range GetRootCmd().Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}
