package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/server"
	"github.com/t0mer/wa-llm-exporter/store"
	"github.com/t0mer/wa-llm-exporter/tracing"
	"github.com/t0mer/wa-llm-exporter/whatsapp"
)

// Config is the complete exporter configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Scrape   ScrapeConfig   `json:"scrape"`
	Log      LogConfig      `json:"log"`
	Tracing  TracingConfig  `json:"tracing"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadyTimeout    time.Duration `json:"ready_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig holds the bot database settings
type DatabaseConfig struct {
	URI          string        `json:"uri"`
	QueryTimeout time.Duration `json:"query_timeout"`
	MaxOpenConns int           `json:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
}

// WhatsAppConfig holds the WhatsApp HTTP API settings
type WhatsAppConfig struct {
	Host     string        `json:"host"`
	User     string        `json:"user"`
	Password string        `json:"password"`
	Timeout  time.Duration `json:"timeout"`
}

// ScrapeConfig bounds each scrape
type ScrapeConfig struct {
	CollectorTimeout time.Duration `json:"collector_timeout"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// TracingConfig selects the OTLP exporter. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint string `json:"endpoint"`
	Protocol string `json:"protocol"`
	Insecure bool   `json:"insecure"`
}

var (
	validLogLevels    = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats   = []string{"json", "text"}
	validOTLPProtocol = []string{"grpc", "http"}
)

// Validate checks the configuration and normalizes case-insensitive values.
// It returns the first problem found, classified as invalid configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid(fmt.Errorf("port %d out of range 1-65535", c.Server.Port), "check port")
	}

	if strings.TrimSpace(c.Database.URI) == "" {
		return invalid(fmt.Errorf("%w: DB_URI is empty", errors.ErrMissingConfig), "check database uri")
	}
	if _, _, _, err := store.ParseURI(c.Database.URI); err != nil {
		return invalid(err, "check database uri")
	}

	host, err := url.Parse(c.WhatsApp.Host)
	if err != nil || (host.Scheme != "http" && host.Scheme != "https") || host.Host == "" {
		return invalid(fmt.Errorf("WHATSAPP_HOST %q is not an http(s) URL", c.WhatsApp.Host), "check whatsapp host")
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if !contains(validLogLevels, c.Log.Level) {
		return invalid(fmt.Errorf("unknown log level %q", c.Log.Level), "check log level")
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if !contains(validLogFormats, c.Log.Format) {
		return invalid(fmt.Errorf("unknown log format %q", c.Log.Format), "check log format")
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"HTTP_TIMEOUT", c.WhatsApp.Timeout},
		{"DB_QUERY_TIMEOUT", c.Database.QueryTimeout},
		{"COLLECTOR_TIMEOUT", c.Scrape.CollectorTimeout},
		{"READY_TIMEOUT", c.Server.ReadyTimeout},
		{"SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout},
	}
	for _, timeout := range timeouts {
		if timeout.value <= 0 {
			return invalid(fmt.Errorf("%s must be positive, got %s", timeout.name, timeout.value), "check timeouts")
		}
	}

	if c.Database.MaxOpenConns < 1 {
		return invalid(fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns), "check pool")
	}
	if c.Database.MaxIdleConns < 1 {
		return invalid(fmt.Errorf("DB_MAX_IDLE_CONNS must be positive, got %d", c.Database.MaxIdleConns), "check pool")
	}

	c.Tracing.Protocol = strings.ToLower(strings.TrimSpace(c.Tracing.Protocol))
	if !contains(validOTLPProtocol, c.Tracing.Protocol) {
		return invalid(fmt.Errorf("unknown OTLP protocol %q", c.Tracing.Protocol), "check tracing")
	}

	return nil
}

func invalid(err error, action string) error {
	return errors.WrapInvalid(err, "Config", "Validate", action)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// StoreConfig returns the settings of the database pool
func (c *Config) StoreConfig() store.Config {
	cfg := store.DefaultConfig()
	cfg.URI = c.Database.URI
	cfg.QueryTimeout = c.Database.QueryTimeout
	cfg.MaxOpenConns = c.Database.MaxOpenConns
	cfg.MaxIdleConns = c.Database.MaxIdleConns
	return cfg
}

// WhatsAppClientConfig returns the settings of the API client
func (c *Config) WhatsAppClientConfig() whatsapp.Config {
	return whatsapp.Config{
		BaseURL:  c.WhatsApp.Host,
		User:     c.WhatsApp.User,
		Password: c.WhatsApp.Password,
		Timeout:  c.WhatsApp.Timeout,
	}
}

// ServerConfig returns the settings of the HTTP server
func (c *Config) ServerConfig() server.Config {
	cfg := server.DefaultConfig()
	cfg.Port = c.Server.Port
	cfg.ReadyTimeout = c.Server.ReadyTimeout
	return cfg
}

// TracingProviderConfig returns the settings of the tracer provider
func (c *Config) TracingProviderConfig(serviceName, version string) tracing.Config {
	return tracing.Config{
		Endpoint:       c.Tracing.Endpoint,
		Protocol:       c.Tracing.Protocol,
		Insecure:       c.Tracing.Insecure,
		ServiceName:    serviceName,
		ServiceVersion: version,
	}
}

// Redacted returns a copy safe to log: the API password and the password of
// the database URI are masked
func (c *Config) Redacted() Config {
	redacted := *c
	if redacted.WhatsApp.Password != "" {
		redacted.WhatsApp.Password = "xxxxx"
	}
	if u, err := url.Parse(redacted.Database.URI); err == nil && u.User != nil {
		redacted.Database.URI = u.Redacted()
	} else if err != nil {
		redacted.Database.URI = "[REDACTED]"
	}
	return redacted
}

// String returns a JSON representation of the redacted config
func (c *Config) String() string {
	redacted := c.Redacted()
	data, _ := json.MarshalIndent(&redacted, "", "  ")
	return string(data)
}
