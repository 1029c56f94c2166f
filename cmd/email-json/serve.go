package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/shineum/email-json/internal/httpapi"
	apitls "github.com/shineum/email-json/internal/tls"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := setupLogger(cmd.OutOrStdout(), cfg.Logging.Level, cfg.Logging.Format)

			if cfg.Logging.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			var reg *prometheus.Registry
			if cfg.Metrics.Enabled {
				reg = prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
			}

			var registerer prometheus.Registerer
			var gatherer prometheus.Gatherer
			if reg != nil {
				registerer, gatherer = reg, reg
			}

			r, err := newResolver(cmd.Context(), cfg, logger, registerer)
			if err != nil {
				return err
			}

			tlsConfig, err := apitls.ServerConfig(apitls.Options{
				CertFile:   cfg.TLS.CertFile,
				KeyFile:    cfg.TLS.KeyFile,
				SelfSigned: cfg.TLS.SelfSigned,
			})
			if err != nil {
				return fmt.Errorf("failed to setup TLS: %w", err)
			}

			tlsMode := "off"
			switch {
			case cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "":
				tlsMode = "file"
			case cfg.TLS.SelfSigned:
				tlsMode = "self-signed"
			}

			router, err := httpapi.NewRouter(httpapi.RouterConfig{
				Resolver:    r,
				Username:    cfg.HTTP.Username,
				Password:    cfg.HTTP.Password,
				Gatherer:    gatherer,
				CORSOrigins: cfg.HTTP.CORSOrigins,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			server := httpapi.NewServer(httpapi.ServerConfig{
				ListenAddr: cfg.HTTP.Listen,
				Handler:    router,
				TLSConfig:  tlsConfig,
				Logger:     logger,
			})

			logger.Info("starting email-json",
				"listen", cfg.HTTP.Listen,
				"strategies", r.Strategies(),
				"auth_enabled", cfg.AuthEnabled(),
				"metrics_enabled", cfg.Metrics.Enabled,
				"tls_mode", tlsMode,
			)

			// Blocks until the context is cancelled
			if err := server.ListenAndServe(cmd.Context()); err != nil {
				return fmt.Errorf("server error: %w", err)
			}

			logger.Info("email-json stopped")
			return nil
		},
	}
}
