// Package main is the entry point for the karte API server.
// Its sole responsibility is wiring dependencies together and running a
// subcommand. No business logic belongs here.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkordes/travel-karte/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:           "karte-api",
		Short:         "Shared travel karte API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		slog.Error("karte-api failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. The JSON handler writes
// machine-readable output suitable for log aggregators.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
