package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JeanGrijp/csrfguard/internal/config"
	"github.com/JeanGrijp/csrfguard/internal/logger"
	"github.com/JeanGrijp/csrfguard/internal/server"
	"github.com/JeanGrijp/csrfguard/internal/store"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "csrfguard",
		Short:         "CSRF-protected demo backend for browser automation practice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newMigrateCmd(&cfgFile),
		newKeygenCmd(),
	)
	return root
}

// bootstrap loads config, builds the logger and opens + migrates the store.
func bootstrap(ctx context.Context, cfgFile string) (*config.Config, *zap.Logger, *store.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "csrfguard"})

	st, err := store.Open(ctx, cfg.Database.Path, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	n, err := st.Migrate(ctx)
	if err != nil {
		_ = st.Close()
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready", zap.Int("migrations_applied", n))
	return cfg, log, st, nil
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log, st, err := bootstrap(ctx, *cfgFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer st.Close()

			guard, err := server.NewGuard(cfg.CSRF, log)
			if err != nil {
				return err
			}
			srv := server.New(cfg, st, guard, log)
			return srv.ListenAndServe(ctx, cfg.Server.ShutdownTimeout)
		},
	}
}

func newMigrateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, st, err := bootstrap(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer st.Close()

			recs, err := st.Migrator().Applied(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %-28s %s\n", r.Version, r.Name, r.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newKeygenCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a random hex key for csrf.secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n < 16 {
				return fmt.Errorf("--bytes must be at least 16, got %d", n)
			}
			b := make([]byte, n)
			if _, err := rand.Read(b); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(b))
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "bytes", 32, "key length in bytes")
	return cmd
}
