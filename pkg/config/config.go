package config

import (
	"time"

	"github.com/Proton-105/onramp/pkg/redis"
)

// Config holds runtime configuration for the on-ramp service.
type Config struct {
	AppEnv     string           `mapstructure:"app_env"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Redis      redis.Config     `mapstructure:"redis"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Store      StoreConfig      `mapstructure:"store"`
	Capability CapabilityConfig `mapstructure:"capability" validate:"required"`
	Poller     PollerConfig     `mapstructure:"poller"`
	Network    NetworkConfig    `mapstructure:"network"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level  string        `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string        `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables rotating file output when Path is set.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string `mapstructure:"environment"`
}

// MetricsConfig configures the Prometheus and health endpoint.
type MetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig configures the session ledger database.
type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

// StoreConfig selects the session ledger backend.
type StoreConfig struct {
	Driver string        `mapstructure:"driver" validate:"oneof=memory redis postgres"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// CapabilityConfig describes the wallet capability and the bridge used to reach it.
type CapabilityConfig struct {
	ID              string        `mapstructure:"id" validate:"required"`
	BridgeURL       string        `mapstructure:"bridge_url" validate:"required,url"`
	InitiateTimeout time.Duration `mapstructure:"initiate_timeout" validate:"gt=0"`
	Breaker         BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig mirrors errors.BreakerConfig for the capability provider.
type BreakerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ErrorThreshold float64       `mapstructure:"error_threshold" validate:"gte=0,lte=1"`
	MinRequests    int           `mapstructure:"min_requests" validate:"gte=0"`
	OpenTimeout    time.Duration `mapstructure:"open_timeout" validate:"gte=0"`
}

// PollerConfig bounds payment status polling.
type PollerConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	MaxFailures int           `mapstructure:"max_failures" validate:"gt=0"`
	MaxPolls    int           `mapstructure:"max_polls" validate:"gt=0"`
}

// NetworkConfig holds per-network asset settings.
type NetworkConfig struct {
	NativeSymbol  string            `mapstructure:"native_symbol" validate:"required"`
	GasReserve    string            `mapstructure:"gas_reserve" validate:"omitempty,numeric"`
	SymbolAliases map[string]string `mapstructure:"symbol_aliases"`
}
