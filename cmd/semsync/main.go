// Package main provides the semsync binary entry point.
// Semsync keeps a local RDF graph of posts and synchronizes it with remote
// SPARQL endpoints.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semsync/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semsync"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	logOut     io.Writer
}

func rootCmd() *cobra.Command {
	g := &globals{logOut: os.Stderr}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Local RDF post graph with SPARQL synchronization",
		Long: `Semsync keeps a local RDF graph of posts (entries, links, wiki pages,
chats and profiles) and synchronizes it with remote SPARQL endpoints.

It provides:
- A cached quad store with Turtle, TriG, N-Triples and N-Quads export
- A registry of query and update endpoints with health checks
- Pull (CONSTRUCT) and push (CLEAR + INSERT DATA) against the active endpoints`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(g),
		postCmd(g),
		endpointCmd(g),
		pullCmd(g),
		pushCmd(g),
		exportCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func (g *globals) logger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(g.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(g.logOut, &slog.HandlerOptions{Level: level}))
}

// load reads the explicit config file, or the layered user and project
// configs when none is given. It returns the path worth watching.
func (g *globals) load(logger *slog.Logger) (*config.Config, string, error) {
	loader := config.NewLoader(logger)
	if g.configPath != "" {
		cfg, err := loader.LoadPath(g.configPath)
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		return cfg, g.configPath, nil
	}
	cfg, path, err := loader.Load()
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// withApp starts an App for one command and shuts it down afterwards.
func (g *globals) withApp(ctx context.Context, fn func(ctx context.Context, app *App, configPath string) error) error {
	logger := g.logger()
	slog.SetDefault(logger)

	cfg, configPath, err := g.load(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(cfg, logger)
	if err := app.Start(ctx); err != nil {
		_ = app.Shutdown(context.Background())
		return err
	}

	runErr := fn(ctx, app, configPath)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the health monitor and write-behind cache until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, configPath string) error {
				return app.Serve(ctx, configPath)
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
