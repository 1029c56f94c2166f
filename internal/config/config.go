// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env fallbacks for the email-json service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// defaultMaxEmailSize is 25 MB in bytes.
	defaultMaxEmailSize = 26214400

	// defaultMaxBodySize is 10 MB in bytes.
	defaultMaxBodySize = 10485760

	defaultFetchTimeout = 15 * time.Second
	defaultRedirects    = 10
)

// Config holds the complete application configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Resolver ResolverConfig `yaml:"resolver"`
	TLS      TLSConfig      `yaml:"tls"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds the HTTP service configuration.
type HTTPConfig struct {
	Listen   string `yaml:"listen"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// BaseDir is joined with relative email paths and confines all reads.
	BaseDir      string `yaml:"base_dir"`
	MaxEmailSize int64  `yaml:"max_email_size"`

	// CORSOrigins lists browser origins allowed to call the API. "*" allows
	// any origin. Empty disables CORS handling.
	CORSOrigins []string `yaml:"cors_origins"`
}

// FetchConfig holds outbound HTTP settings for link resolution.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
	MaxBodySize  int64         `yaml:"max_body_size"`
	UserAgent    string        `yaml:"user_agent"`

	// AWS signs links to IAM-protected AWS endpoints when Region is set.
	AWS AWSSigningConfig `yaml:"aws"`
}

// AWSSigningConfig holds SigV4 signing settings for outbound fetches.
type AWSSigningConfig struct {
	Region          string   `yaml:"region"`
	AccessKeyID     string   `yaml:"access_key_id"`
	SecretAccessKey string   `yaml:"secret_access_key"`
	Service         string   `yaml:"service"`
	Hosts           []string `yaml:"hosts"`
}

// ResolverConfig holds strategy chain settings.
type ResolverConfig struct {
	LenientJSON bool `yaml:"lenient_json"`
}

// TLSConfig holds TLS certificate settings for the HTTP service.
type TLSConfig struct {
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	SelfSigned bool   `yaml:"self_signed"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory, if present, seeds the environment.
// Environment variables always take precedence.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// AuthEnabled returns true if both HTTP username and password are set.
func (c *Config) AuthEnabled() bool {
	return c.HTTP.Username != "" && c.HTTP.Password != ""
}

// TLSEnabled returns true if the HTTP service should serve TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLS.SelfSigned || (c.TLS.CertFile != "" && c.TLS.KeyFile != "")
}

// AWSSigningEnabled returns true if outbound requests to AWS hosts should be
// signed.
func (c *Config) AWSSigningEnabled() bool {
	return c.Fetch.AWS.Region != ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must be positive, got %s", c.Fetch.Timeout))
	}
	if c.Fetch.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("fetch max_redirects must not be negative, got %d", c.Fetch.MaxRedirects))
	}
	if c.Fetch.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("fetch max_body_size must be positive, got %d", c.Fetch.MaxBodySize))
	}
	if c.HTTP.MaxEmailSize <= 0 {
		errs = append(errs, fmt.Errorf("http max_email_size must be positive, got %d", c.HTTP.MaxEmailSize))
	}
	if (c.Fetch.AWS.AccessKeyID == "") != (c.Fetch.AWS.SecretAccessKey == "") {
		errs = append(errs, errors.New("fetch aws access_key_id and secret_access_key must be set together"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls cert_file and key_file must be set together"))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.HTTP.Listen = ":3000"
	c.HTTP.MaxEmailSize = defaultMaxEmailSize
	c.Fetch.Timeout = defaultFetchTimeout
	c.Fetch.MaxRedirects = defaultRedirects
	c.Fetch.MaxBodySize = defaultMaxBodySize
	c.Metrics.Enabled = true
	c.Logging.Level = "info"
	c.Logging.Format = "json"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("HTTP_LISTEN"); v != "" {
		c.HTTP.Listen = v
	}
	if v := os.Getenv("HTTP_USERNAME"); v != "" {
		c.HTTP.Username = v
	}
	if v := os.Getenv("HTTP_PASSWORD"); v != "" {
		c.HTTP.Password = v
	}
	if v := os.Getenv("EMAIL_BASE_DIR"); v != "" {
		c.HTTP.BaseDir = v
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("MAX_EMAIL_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.HTTP.MaxEmailSize = size
		}
	}

	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT %q: %w", v, err)
		}
		c.Fetch.Timeout = d
	}
	if v := os.Getenv("FETCH_MAX_REDIRECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetch.MaxRedirects = n
		}
	}
	if v := os.Getenv("FETCH_MAX_BODY_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Fetch.MaxBodySize = size
		}
	}
	if v := os.Getenv("FETCH_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}

	if v := os.Getenv("FETCH_AWS_REGION"); v != "" {
		c.Fetch.AWS.Region = v
	}
	if v := os.Getenv("FETCH_AWS_ACCESS_KEY_ID"); v != "" {
		c.Fetch.AWS.AccessKeyID = v
	}
	if v := os.Getenv("FETCH_AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Fetch.AWS.SecretAccessKey = v
	}
	if v := os.Getenv("FETCH_AWS_SERVICE"); v != "" {
		c.Fetch.AWS.Service = v
	}
	if v := os.Getenv("FETCH_AWS_HOSTS"); v != "" {
		c.Fetch.AWS.Hosts = splitList(v)
	}

	if v := os.Getenv("RESOLVER_LENIENT_JSON"); v != "" {
		c.Resolver.LenientJSON = parseBool(v, c.Resolver.LenientJSON)
	}

	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
	}
	if v := os.Getenv("TLS_SELF_SIGNED"); v != "" {
		c.TLS.SelfSigned = parseBool(v, c.TLS.SelfSigned)
	}

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = parseBool(v, c.Metrics.Enabled)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	return nil
}

// loadDotEnv seeds the environment from .env without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}
