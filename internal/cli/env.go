package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/idesession/internal/config"
	"github.com/harun/idesession/internal/logger"
	"github.com/harun/idesession/internal/observability"
	"github.com/harun/idesession/internal/tracing"
	"github.com/harun/idesession/pkg/prefs"
	"github.com/harun/idesession/pkg/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// SavedAtKey is stamped into every session the CLI saves.
const SavedAtKey = "idesession/saved_at"

// commandEnv is the per-invocation runtime shared by session commands
type commandEnv struct {
	ctx    context.Context
	cfg    *config.Config
	logger *logger.Logger
	mgr    *session.Manager
}

// loadConfig reads the config file and applies global flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if sessionsDir != "" {
		cfg.Sessions.Dir = sessionsDir
	}
	if format != "" {
		cfg.Sessions.Format = format
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return cfg, nil
}

// newCommandEnv wires logging, audit, tracing, preferences and the session
// manager from configuration. Callers must Close it.
func newCommandEnv(cmd *cobra.Command) (*commandEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
		Out:       cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	env := &commandEnv{
		ctx:    tracing.NewCommandContext(cmd.Context()),
		cfg:    cfg,
		logger: lg,
	}

	if cfg.Audit.Enabled {
		if err := observability.InitAuditLogger(cfg.Audit.File); err != nil {
			env.Close()
			return nil, err
		}
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	store, err := prefs.NewFileStore(cfg.PrefsFile)
	if err != nil {
		env.Close()
		return nil, err
	}

	zl := lg.GetZerolog()
	mgr, err := session.New(session.Options{
		Dir:    cfg.Sessions.Dir,
		Format: cfg.Sessions.Format,
		Prefs:  store,
		Logger: &zl,
	})
	if err != nil {
		env.Close()
		return nil, err
	}

	mgr.OnSessionWillSave(func(s *session.Session) {
		s.Set(SavedAtKey, time.Now().UTC().Format(time.RFC3339))
	})
	mgr.OnSessionWillLoad(func(s *session.Session) {
		log.Debug().
			Str("session", s.Name()).
			Int("keys", len(s.Keys())).
			Msg("Session restored")
	})

	env.mgr = mgr
	return env, nil
}

// Close releases the log file, audit log and tracer provider
func (e *commandEnv) Close() {
	if e.cfg.Tracing.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down tracing")
		}
	}
	if e.cfg.Audit.Enabled {
		if err := observability.ResetAuditLogger(); err != nil {
			log.Warn().Err(err).Msg("Failed to close audit log")
		}
	}
	if e.logger != nil {
		e.logger.Close()
	}
}

// withEnv adapts a session command body to cobra's RunE
func withEnv(run func(cmd *cobra.Command, env *commandEnv, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := newCommandEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()
		return run(cmd, env, args)
	}
}
