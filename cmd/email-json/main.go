// Package main is the entry point for the email-json resolver.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shineum/email-json/internal/config"
	"github.com/shineum/email-json/internal/fetch"
	"github.com/shineum/email-json/internal/metrics"
	"github.com/shineum/email-json/internal/resolver"
	"github.com/shineum/email-json/internal/source"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			cancel()
			os.Exit(exit.code)
		}
		slog.Error("command failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "email-json",
		Short:         "Find the JSON payload an email carries or links to",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file (optional)")

	root.AddCommand(newResolveCmd(&configPath), newServeCmd(&configPath))
	return root
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with the specified level and
// format, writing to w.
func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// newResolver wires the file reader, fetcher and metrics into a Resolver.
// reg may be nil to skip metrics.
func newResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*resolver.Resolver, error) {
	fetcher := fetch.New(fetch.Config{
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		MaxBodySize:  cfg.Fetch.MaxBodySize,
		UserAgent:    cfg.Fetch.UserAgent,
	}).WithLogger(logger)

	if cfg.AWSSigningEnabled() {
		signer, err := fetch.NewAWSSigner(ctx, fetch.AWSSignerConfig{
			Region:          cfg.Fetch.AWS.Region,
			AccessKeyID:     cfg.Fetch.AWS.AccessKeyID,
			SecretAccessKey: cfg.Fetch.AWS.SecretAccessKey,
			Service:         cfg.Fetch.AWS.Service,
			Hosts:           cfg.Fetch.AWS.Hosts,
		})
		if err != nil {
			return nil, err
		}
		fetcher = fetcher.WithSigner(signer)
		logger.Info("signing AWS requests", "region", cfg.Fetch.AWS.Region, "hosts", cfg.Fetch.AWS.Hosts)
	}

	rcfg := resolver.Config{
		Reader:      source.NewFileSystem(cfg.HTTP.BaseDir, cfg.HTTP.MaxEmailSize),
		Fetcher:     fetcher,
		LenientJSON: cfg.Resolver.LenientJSON,
		Logger:      logger,
	}

	if reg != nil {
		collector, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		rcfg.Observer = collector
	}

	return resolver.New(rcfg), nil
}
