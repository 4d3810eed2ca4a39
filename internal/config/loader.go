package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tally.yaml"

// EnvConfigFile overrides DefaultConfigFile.
const EnvConfigFile = "TALLY_CONFIG"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv(EnvConfigFile); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TALLY_PORT")
	setString(&cfg.Server.CORSOrigin, "TALLY_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "TALLY_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "TALLY_SHUTDOWN_TIMEOUT")
	setInt64(&cfg.Server.BodyLimit, "TALLY_BODY_LIMIT")

	setString(&cfg.Store.Driver, "TALLY_STORE_DRIVER")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TALLY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TALLY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TALLY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TALLY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TALLY_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.AutoMigrate, "TALLY_PG_AUTO_MIGRATE")

	// Cache
	setDuration(&cfg.Cache.DataTTL, "TALLY_CACHE_DATA_TTL")
	setDuration(&cfg.Cache.ValidationTTL, "TALLY_CACHE_VALIDATION_TTL")
	setDuration(&cfg.Cache.CalculationTTL, "TALLY_CACHE_CALCULATION_TTL")
	setDuration(&cfg.Cache.SweepInterval, "TALLY_CACHE_SWEEP_INTERVAL")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.SubjectPrefix, "TALLY_NATS_SUBJECT_PREFIX")

	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "TALLY_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setDuration(&cfg.OTEL.ExportInterval, "TALLY_OTEL_EXPORT_INTERVAL")

	setString(&cfg.Logging.Level, "TALLY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TALLY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TALLY_LOG_ASYNC")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.BodyLimit < 1 {
		return errors.New("server.body_limit must be >= 1")
	}
	if cfg.Server.RequestTimeout <= 0 || cfg.Server.ShutdownTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	switch cfg.Store.Driver {
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.Store.Driver)
	}
	if cfg.Cache.DataTTL <= 0 || cfg.Cache.ValidationTTL <= 0 || cfg.Cache.CalculationTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	if cfg.Cache.SweepInterval <= 0 {
		return errors.New("cache.sweep_interval must be positive")
	}
	if cfg.NATS.URL != "" && cfg.NATS.SubjectPrefix == "" {
		return errors.New("nats.subject_prefix is required when nats.url is set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
