// Command ysocial runs the ysocial API server and doubles as a small client
// for a running instance.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphabot-ai/ysocial/internal/config"
	httpapp "github.com/alphabot-ai/ysocial/internal/http"
	"github.com/alphabot-ai/ysocial/internal/rate"
)

const (
	Version = "0.1.0"
	appName = "ysocial"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Minimal social backend",
		Long: `ysocial serves a small social API: accounts, a filtered post stream,
a feed and follow edges. Run without a subcommand to start the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Server config file (YAML)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServer(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Remove newest posts that fail the content filter",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrune(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)
	cmd.AddCommand(clientCommands()...)
	return cmd
}

func newLogger(cfg config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	server := httpapp.NewServer(app.posts, app.auth, rate.NewMemory(), app.metrics, logger, cfg)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("ysocial listening",
			slog.String("addr", cfg.Addr),
			slog.String("feed_strategy", app.posts.Strategy().Name()),
			slog.String("document_backend", cfg.Document.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runPrune(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	app, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	removed, err := app.posts.PruneInvalidPosts(ctx)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	fmt.Printf("Removed %d post(s)\n", removed)
	return nil
}
