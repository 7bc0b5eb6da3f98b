package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/scrape"
	"github.com/t0mer/wa-llm-exporter/server"
	"github.com/t0mer/wa-llm-exporter/store"
	"github.com/t0mer/wa-llm-exporter/whatsapp"
)

// Setting keys, also the flag names
const (
	KeyPort             = "port"
	KeyDBURI            = "db-uri"
	KeyWhatsAppHost     = "whatsapp-host"
	KeyWhatsAppUser     = "whatsapp-user"
	KeyWhatsAppPassword = "whatsapp-password"
	KeyLogLevel         = "log-level"
	KeyLogFormat        = "log-format"
	KeyHTTPTimeout      = "http-timeout"
	KeyDBQueryTimeout   = "db-query-timeout"
	KeyCollectorTimeout = "collector-timeout"
	KeyReadyTimeout     = "ready-timeout"
	KeyDBMaxOpenConns   = "db-max-open-conns"
	KeyDBMaxIdleConns   = "db-max-idle-conns"
	KeyShutdownTimeout  = "shutdown-timeout"
	KeyOTLPEndpoint     = "otlp-endpoint"
	KeyOTLPProtocol     = "otlp-protocol"
	KeyOTLPInsecure     = "otlp-insecure"
)

// setting binds one key to its environment variable and flag
type setting struct {
	key   string
	env   string
	def   any
	usage string
}

var settings = []setting{
	{KeyPort, "PORT", server.DefaultPort, "HTTP listen port"},
	{KeyDBURI, "DB_URI", store.DefaultURI, "Database URI (postgres://, postgresql+driver://, sqlite://, file:)"},
	{KeyWhatsAppHost, "WHATSAPP_HOST", whatsapp.DefaultBaseURL, "WhatsApp API base URL"},
	{KeyWhatsAppUser, "WHATSAPP_BASIC_AUTH_USER", "", "WhatsApp API basic auth user"},
	{KeyWhatsAppPassword, "WHATSAPP_BASIC_AUTH_PASSWORD", "", "WhatsApp API basic auth password"},
	{KeyLogLevel, "LOG_LEVEL", "info", "Log level: debug, info, warn, error"},
	{KeyLogFormat, "LOG_FORMAT", "json", "Log format: json, text"},
	{KeyHTTPTimeout, "HTTP_TIMEOUT", whatsapp.DefaultTimeout, "Timeout of each WhatsApp API call"},
	{KeyDBQueryTimeout, "DB_QUERY_TIMEOUT", store.DefaultQueryTimeout, "Timeout of each database statement"},
	{KeyCollectorTimeout, "COLLECTOR_TIMEOUT", scrape.DefaultCollectorTimeout, "Timeout of each collector within a scrape"},
	{KeyReadyTimeout, "READY_TIMEOUT", server.DefaultReadyTimeout, "Timeout of the readiness database ping"},
	{KeyDBMaxOpenConns, "DB_MAX_OPEN_CONNS", store.DefaultMaxOpenConns, "Maximum open database connections"},
	{KeyDBMaxIdleConns, "DB_MAX_IDLE_CONNS", store.DefaultMaxIdleConns, "Maximum idle database connections"},
	{KeyShutdownTimeout, "SHUTDOWN_TIMEOUT", 10 * time.Second, "Graceful shutdown timeout"},
	{KeyOTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT", "", "OTLP endpoint, tracing is disabled when empty"},
	{KeyOTLPProtocol, "OTEL_EXPORTER_OTLP_PROTOCOL", "grpc", "OTLP protocol: grpc or http"},
	{KeyOTLPInsecure, "OTEL_EXPORTER_OTLP_INSECURE", false, "Use plaintext OTLP"},
}

// RegisterFlags registers one flag per setting. The usage names the
// environment variable that backs it.
func RegisterFlags(flags *pflag.FlagSet) {
	for _, s := range settings {
		usage := s.usage + " (env: " + s.env + ")"
		switch def := s.def.(type) {
		case int:
			flags.Int(s.key, def, usage)
		case bool:
			flags.Bool(s.key, def, usage)
		case time.Duration:
			flags.Duration(s.key, def, usage)
		case string:
			flags.String(s.key, def, usage)
		}
	}
}

// Load resolves every setting with the precedence flag, environment,
// default, then validates the result. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "bind "+s.env)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "bind flags")
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt(KeyPort),
			ReadyTimeout:    v.GetDuration(KeyReadyTimeout),
			ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		},
		Database: DatabaseConfig{
			URI:          strings.TrimSpace(v.GetString(KeyDBURI)),
			QueryTimeout: v.GetDuration(KeyDBQueryTimeout),
			MaxOpenConns: v.GetInt(KeyDBMaxOpenConns),
			MaxIdleConns: v.GetInt(KeyDBMaxIdleConns),
		},
		WhatsApp: WhatsAppConfig{
			Host:     strings.TrimSpace(v.GetString(KeyWhatsAppHost)),
			User:     v.GetString(KeyWhatsAppUser),
			Password: v.GetString(KeyWhatsAppPassword),
			Timeout:  v.GetDuration(KeyHTTPTimeout),
		},
		Scrape: ScrapeConfig{
			CollectorTimeout: v.GetDuration(KeyCollectorTimeout),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Tracing: TracingConfig{
			Endpoint: strings.TrimSpace(v.GetString(KeyOTLPEndpoint)),
			Protocol: v.GetString(KeyOTLPProtocol),
			Insecure: v.GetBool(KeyOTLPInsecure),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
