// Package cli implements the command-line interface for envstash.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/kilupskalvis/envstash/internal/core"
	"github.com/kilupskalvis/envstash/internal/notify"
	"github.com/kilupskalvis/envstash/internal/prompt"
	"github.com/kilupskalvis/envstash/internal/shell"
	"github.com/kilupskalvis/envstash/internal/store"
	"github.com/spf13/cobra"
)

var logLevel string

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Store   *store.Store
	Manager *core.Manager
	Logger  *slog.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext loads the config, opens the state store, and wires a manager.
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.StatePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	if err := st.Initialize(); err != nil {
		st.Close()
		exitError("failed to initialize store: %v", err)
	}

	logger := newLogger(logLevel)
	redactor := shell.NewRedactor(cfg.Secrets()...)

	m := core.NewManager(core.Deps{
		Config:   cfg,
		Runner:   shell.NewExecutor(redactor, logger, os.Stdout),
		Redactor: redactor,
		Manifest: st,
		History:  st,
		Confirm:  prompt.NewTerminal(os.Stdin, os.Stdout),
		Notifier: notify.New(cfg.Notify.WebhookURLs, logger),
		Logger:   logger,
		Progress: printPhase,
	})

	return &cmdContext{Config: cfg, Store: st, Manager: m, Logger: logger}
}

var rootCmd = &cobra.Command{
	Use:   "envstash",
	Short: "Snapshot and restore an application's database and resources",
	Long: `envstash saves point-in-time snapshots ("stash entries") of an application's
MySQL database and persistent resource tree, and restores them later.

Resources are stored as hard links, so entries cost little disk space
while the live files stay unchanged.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOrDefault("ENVSTASH_LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(historyCmd)
}

// newLogger builds the diagnostic logger. Logs go to stderr so they never mix
// with command output.
func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// signalContext is cancelled on SIGINT/SIGTERM. A pending confirmation
// prompt returns at once; a running phase finishes and the next one is not
// started.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printPhase prints a pipeline head-line.
func printPhase(phase string, skipped bool) {
	if skipped {
		color.New(color.FgYellow).Printf("%s (skipped)\n", phase)
		return
	}
	color.New(color.FgCyan, color.Bold).Printf("%s\n", phase)
}

// exitOnError handles an operation error. An operator decline prints "exit".
func exitOnError(err error) {
	if err == nil {
		return
	}
	if core.IsDeclined(err) {
		fmt.Println("exit")
		os.Exit(1)
	}
	if errors.Is(err, context.Canceled) && core.FailedPhase(err) == "" {
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(1)
	}
	var perr *core.PhaseError
	if errors.As(err, &perr) {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s failed\n", perr.Phase)
	}
	exitError("%v", err)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
