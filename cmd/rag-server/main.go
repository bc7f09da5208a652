// Package main provides the HTTP and MCP server entry point.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bull/grounded-rag/internal/api"
	"github.com/bull/grounded-rag/internal/app"
	"github.com/bull/grounded-rag/internal/config"
	mcpserver "github.com/bull/grounded-rag/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// In stdio mode stdout carries the MCP protocol, so logs go to stderr.
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{Service: a.Service})

	mux := api.NewRouter(a.Service, api.Options{
		Production:     cfg.IsProduction(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Logger:         logger,
	})
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "server_mode", cfg.ServerMode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if !cfg.ServerMode {
		// Stdio mode: MCP over stdin/stdout for local clients, HTTP alongside.
		logger.Info("Starting MCP server (stdio mode)")
		if err := server.Run(ctx); err != nil {
			logger.Error("stdio server error", "error", err)
		}
		return shutdown(httpServer, logger)
	}

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}
	return shutdown(httpServer, logger)
}

func shutdown(srv *http.Server, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("Shutting down HTTP server")
	return srv.Shutdown(ctx)
}
