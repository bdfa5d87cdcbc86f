package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chdqbank/qbank/internal/auth"
	"github.com/chdqbank/qbank/internal/config"
	"github.com/chdqbank/qbank/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "qbank",
	Short: "Cardiology question bank in the terminal",
	Long:  "QBank: practice published cardiology questions, flag them for review and track your progress.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPractice(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QBANK_DB env var)")
	rootCmd.PersistentFlags().String("user", "", "Email to sign in with (overrides QBANK_USER env var)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env and the environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.ConfigFromEnv()
	if err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		cfg.UserEmail = u
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	return cfg, cfg.Validate()
}

// newLogger writes warnings to stderr, or everything with --verbose.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveDBPath returns the database path using --db or QBANK_DB first,
// then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// env is what every command works with.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	auth   *auth.Provider
}

// openEnv loads configuration, opens the store and signs in the configured
// user, if any. Callers must call close.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, os.Stderr)

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("opened store", "path", dbPath)

	provider := auth.NewProvider(st, logger)
	if cfg.UserEmail != "" {
		if _, err := provider.SignIn(cmd.Context(), cfg.UserEmail); err != nil {
			st.Close()
			return nil, err
		}
	}
	return &env{cfg: cfg, logger: logger, store: st, auth: provider}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("close store", "error", err)
	}
}

// requireUser returns the signed-in user id or explains how to sign in.
func (e *env) requireUser() (string, error) {
	id, ok := e.auth.CurrentUser()
	if !ok {
		return "", fmt.Errorf("no user: pass --user or set QBANK_USER")
	}
	return id, nil
}
