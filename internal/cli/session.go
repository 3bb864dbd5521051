package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/applog"
	"github.com/roach88/catalog/internal/config"
	"github.com/roach88/catalog/internal/service"
	"github.com/roach88/catalog/internal/store"
)

// session is an open catalog: the store, its registry and the logger
// installed for the duration of one command.
type session struct {
	reg     *service.Registry
	store   *store.Store
	out     *OutputFormatter
	prevLog *slog.Logger
}

// openSession loads configuration, opens the store and seeds defaults.
// The persisting log handler is installed as the slog default until Close.
func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	path := cfg.Database.Path
	if opts.Database != "" {
		path = opts.Database
	}

	defaults, err := cfg.SettingDefaults()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid setting defaults", err)
	}

	st, err := store.Open(path, store.WithBusyTimeout(cfg.Database.BusyTimeoutMS))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	reg := service.NewRegistry(st, service.WithSettingDefaults(defaults))
	if err := reg.Initialize(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to initialize settings", err)
	}

	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	console := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})

	s := &session{
		reg:     reg,
		store:   st,
		out:     opts.formatter(cmd),
		prevLog: slog.Default(),
	}
	slog.SetDefault(slog.New(applog.New(reg, console)))
	s.out.VerboseLog("database: %s", st.Path())
	return s, nil
}

// Close restores the previous logger and closes the store.
func (s *session) Close() {
	slog.SetDefault(s.prevLog)
	s.store.Close()
}

// withSession runs fn against an open session.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
