// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ONRAMP"

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// env files are optional
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	return LoadFile(fmt.Sprintf("./configs/%s.yaml", env), env)
}

// LoadFile loads path (skipped when missing) on top of the defaults and ONRAMP_* environment overrides.
func LoadFile(path, env string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, nil, fmt.Errorf("read config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("stat config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	if env != "" {
		cfg.AppEnv = env
	}

	return cfg, v, nil
}

// Watch re-reads the config file on change and hands every valid result to onChange.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil || v.ConfigFileUsed() == "" {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file.max_size_mb", 100)
	v.SetDefault("logger.file.max_backups", 3)
	v.SetDefault("logger.file.max_age_days", 28)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.shutdown_timeout", 5*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.ttl", 72*time.Hour)

	v.SetDefault("capability.id", "local:http://localhost:8080")
	v.SetDefault("capability.bridge_url", "ws://localhost:8545/wallet")
	v.SetDefault("capability.initiate_timeout", 60*time.Second)
	v.SetDefault("capability.breaker.enabled", true)
	v.SetDefault("capability.breaker.error_threshold", 0.5)
	v.SetDefault("capability.breaker.min_requests", 10)
	v.SetDefault("capability.breaker.open_timeout", 30*time.Second)

	v.SetDefault("poller.interval", 5*time.Second)
	v.SetDefault("poller.max_failures", 5)
	v.SetDefault("poller.max_polls", 360)

	v.SetDefault("network.native_symbol", "MATIC")
	v.SetDefault("network.gas_reserve", "0.001")
}
