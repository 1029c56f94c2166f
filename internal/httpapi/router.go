// Package httpapi exposes the JSON resolver over HTTP.
package httpapi

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the dependencies of the HTTP routes.
type RouterConfig struct {
	Resolver Resolver

	// Username and Password enable basic auth on the parse route when both
	// are set.
	Username string
	Password string

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// CORSOrigins enables CORS for the listed origins; "*" allows any.
	CORSOrigins []string

	Logger *slog.Logger
}

// NewRouter builds the gin engine serving the parse, health and metrics
// routes.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	if len(cfg.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		if slices.Contains(cfg.CORSOrigins, "*") {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = cfg.CORSOrigins
		}
		corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Authorization", "Accept"}
		if err := corsConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid CORS origins: %w", err)
		}
		engine.Use(cors.New(corsConfig))
	}

	h := &handler{resolver: cfg.Resolver, logger: logger}
	auth := NewAuthenticator(cfg.Username, cfg.Password)

	engine.GET("/healthz", healthz)
	engine.GET("/email-parser/parse", auth.Middleware(), h.parse)

	if cfg.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return engine, nil
}

// requestLogger logs one line per request at a level matching its status.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
