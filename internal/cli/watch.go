package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/idesession/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var metricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the session list whenever the sessions directory changes",
	Long: `Watch the sessions directory and print the session list whenever a
session file is created, changed or removed, for example by another
process. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		ctx, stop := signal.NotifyContext(env.ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sessions: %s\n", joinNames(env.mgr.AvailableSessions()))

		stopWatch, err := startSessionWatcher(env, func(names []string) {
			fmt.Fprintf(out, "sessions: %s\n", joinNames(names))
		})
		if err != nil {
			return err
		}
		defer stopWatch()

		<-ctx.Done()
		return nil
	}),
}

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics for the sessions directory",
	Long: `Serve Prometheus metrics on /metrics. The sessions_available gauge
follows the sessions directory. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		addr := env.cfg.Metrics.Addr
		if cmd.Flags().Changed("addr") {
			addr = metricsAddr
		}
		if addr == "" {
			return fmt.Errorf("metrics address is required")
		}

		ctx, stop := signal.NotifyContext(env.ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Seeds the sessions_available gauge
		env.mgr.AvailableSessions()

		stopWatch, err := startSessionWatcher(env, func(names []string) {
			observability.SetAvailableSessions(len(names))
		})
		if err != nil {
			return err
		}
		defer stopWatch()

		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}

		return serveMetrics(ctx, listener, cmd.OutOrStdout())
	}),
}

func init() {
	serveMetricsCmd.Flags().StringVar(&metricsAddr, "addr", "", "listen address (default from config metrics.addr)")

	rootCmd.AddCommand(watchCmd, serveMetricsCmd)
}

// startSessionWatcher starts a directory watcher using the configured debounce
func startSessionWatcher(env *commandEnv, onChange func([]string)) (func(), error) {
	debounce := time.Duration(env.cfg.Sessions.WatchDebounceMs) * time.Millisecond
	w, err := env.mgr.NewWatcher(debounce, onChange)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return nil, err
	}
	return func() {
		if err := w.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop session watcher")
		}
	}, nil
}

// serveMetrics serves /metrics on listener until ctx is done
func serveMetrics(ctx context.Context, listener net.Listener, out io.Writer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	fmt.Fprintf(out, "Serving metrics on http://%s/metrics\n", listener.Addr())
	log.Info().Str("addr", listener.Addr().String()).Msg("Metrics server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	log.Info().Msg("Metrics server stopped")
	return nil
}
