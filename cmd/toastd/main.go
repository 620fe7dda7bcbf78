// Package main is the entry point for the toastd notification daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/daemon"
	"github.com/jmylchreest/toastd/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var opts struct {
	configPath string
	verbose    bool
	noDBus     bool
}

var rootCmd = &cobra.Command{
	Use:   "toastd",
	Short: "Toast notification center daemon",
	Long: `toastd hosts the session's toast notification center.

It owns the io.github.jmylchreest.Toastd bus name, expires toasts on their
timers, records closed toasts to history, plays per-kind sounds and reloads
its configuration when the file changes.

Stop it with SIGINT or SIGTERM; toasts still on screen are recorded with
reason "shutdown".`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&opts.configPath, "config", "",
		"Path to config file (default: ~/.config/toastd/toastd.toml)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.Flags().BoolVar(&opts.noDBus, "no-dbus", false,
		"Run without claiming the bus name")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "toastd:", err)
		if errors.Is(err, dbus.ErrAlreadyRunning) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	d, err := daemon.New(daemon.Options{
		ConfigPath: opts.configPath,
		Version:    version,
		NoDBus:     opts.noDBus,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}
