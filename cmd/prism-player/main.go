package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zsiec/prism-player/internal/playback"
)

var version = "dev"

func init() {
	// SDL's video subsystem must be driven from one fixed OS thread for
	// the life of the process (spec §4.6 main-thread affinity); lock it
	// here, before cobra/cmd dispatch can hop the goroutine onto another
	// thread.
	runtime.LockOSThread()
}

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "prism-player <url-or-path>",
		Short:   "Plays a single audio/video container with speed and pause control.",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), args[0])
		},
	}
	root.SetVersionTemplate("prism-player {{.Version}}\n")
	return root
}

// runPlay drives a single playback session to completion (spec §4.7): it
// owns the controller's lifetime and the process's signal handling, and
// returns once the window closes, ESC is pressed, or a signal arrives.
// Start runs directly on this goroutine — the one main() locked to an OS
// thread — because its video loop drives SDL and Stop tears down the same
// window/renderer/texture Run polls; running both on one thread, with a
// cancelled context as the only cross-goroutine signal, rules out the
// SDL teardown-during-poll race a second goroutine calling Stop would
// otherwise risk.
func runPlay(parent context.Context, target string) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("prism-player starting", "version", version, "target", target)

	c := playback.New(slog.Default(), target)
	if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("playback ended: %w", err)
	}
	return nil
}
