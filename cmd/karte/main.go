// Package main is a terminal client for the karte API: list records,
// download workbooks and follow a karte live as a registered editor.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkordes/travel-karte/internal/client"
	"github.com/pkordes/travel-karte/internal/session"
)

type options struct {
	server   string
	identity string
	verbose  bool
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           "karte",
		Short:         "Work with shared travel kartes from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("KARTE_SERVER", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&opts.identity, "identity", "", "editor identity file (default: user config dir)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")
	root.AddCommand(listCmd(opts), exportCmd(opts), deleteCmd(opts), watchCmd(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "karte:", err)
		os.Exit(1)
	}
}

func (o *options) logger() *slog.Logger {
	if !o.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (o *options) client() (*client.Client, error) {
	return client.New(o.server, client.WithLogger(o.logger()))
}

func (o *options) loadIdentity() (session.Identity, error) {
	path := o.identity
	if path == "" {
		var err error
		if path, err = session.DefaultIdentityPath(); err != nil {
			return session.Identity{}, err
		}
	}
	return session.LoadIdentity(path)
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid karte id %q: %w", arg, err)
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
