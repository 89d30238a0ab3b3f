// Package config loads the standalone server configuration.
//
// Values come from, in increasing priority: built-in defaults, a YAML
// file, a .env file, and TOURDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TOURDESK_"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the server configuration.
type Config struct {
	HTTP     HTTP    `json:"http" mapstructure:"http" yaml:"http"`
	Store    Store   `json:"store" mapstructure:"store" yaml:"store"`
	Redis    Redis   `json:"redis" mapstructure:"redis" yaml:"redis"`
	NATS     NATS    `json:"nats" mapstructure:"nats" yaml:"nats"`
	Booking  Booking `json:"booking" mapstructure:"booking" yaml:"booking"`
	LogLevel string  `json:"log_level" mapstructure:"log_level" yaml:"log_level"`
	Metrics  bool    `json:"metrics" mapstructure:"metrics" yaml:"metrics"`
	Audit    bool    `json:"audit" mapstructure:"audit" yaml:"audit"`
}

type HTTP struct {
	Addr            string        `json:"addr" mapstructure:"addr" yaml:"addr"`
	BasePath        string        `json:"base_path" mapstructure:"base_path" yaml:"base_path"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type Store struct {
	// Driver is one of memory, postgres or mongo.
	Driver        string `json:"driver" mapstructure:"driver" yaml:"driver"`
	PostgresDSN   string `json:"postgres_dsn" mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	PostgresTrace bool   `json:"postgres_trace" mapstructure:"postgres_trace" yaml:"postgres_trace"`
	MongoURI      string `json:"mongo_uri" mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `json:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`
}

// Redis enables the shared availability cache when Addr is set.
type Redis struct {
	Addr     string        `json:"addr" mapstructure:"addr" yaml:"addr"`
	Password string        `json:"password" mapstructure:"password" yaml:"password"`
	DB       int           `json:"db" mapstructure:"db" yaml:"db"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl" yaml:"ttl"`
}

// NATS enables event publishing when URL is set.
type NATS struct {
	URL           string `json:"url" mapstructure:"url" yaml:"url"`
	SubjectPrefix string `json:"subject_prefix" mapstructure:"subject_prefix" yaml:"subject_prefix"`
}

type Booking struct {
	DefaultCapacity int    `json:"default_capacity" mapstructure:"default_capacity" yaml:"default_capacity"`
	MaxRangeDays    int    `json:"max_range_days" mapstructure:"max_range_days" yaml:"max_range_days"`
	Timezone        string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: Store{
			Driver:        DriverMemory,
			MongoDatabase: "tourdesk",
		},
		Redis: Redis{TTL: 30 * time.Second},
		NATS:  NATS{SubjectPrefix: "tourdesk"},
		Booking: Booking{
			DefaultCapacity: 8,
			MaxRangeDays:    92,
			Timezone:        "UTC",
		},
		LogLevel: "info",
		Metrics:  true,
	}
}

// Load builds a Config. A missing YAML file or .env file is not an error;
// an empty path skips the YAML step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays TOURDESK_* variables found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("HTTP_ADDR", &c.HTTP.Addr)
	str("HTTP_BASE_PATH", &c.HTTP.BasePath)
	dur("HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)

	str("STORE_DRIVER", &c.Store.Driver)
	str("POSTGRES_DSN", &c.Store.PostgresDSN)
	flag("POSTGRES_TRACE", &c.Store.PostgresTrace)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DATABASE", &c.Store.MongoDatabase)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)
	dur("REDIS_TTL", &c.Redis.TTL)

	str("NATS_URL", &c.NATS.URL)
	str("NATS_SUBJECT_PREFIX", &c.NATS.SubjectPrefix)

	num("DEFAULT_CAPACITY", &c.Booking.DefaultCapacity)
	num("MAX_RANGE_DAYS", &c.Booking.MaxRangeDays)
	str("TIMEZONE", &c.Booking.Timezone)

	str("LOG_LEVEL", &c.LogLevel)
	flag("METRICS", &c.Metrics)
	flag("AUDIT", &c.Audit)

	return errors.Join(errs...)
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("config: store.postgres_dsn is required for the postgres driver"))
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("config: store.mongo_uri is required for the mongo driver"))
		}
		if c.Store.MongoDatabase == "" {
			errs = append(errs, errors.New("config: store.mongo_database is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store driver %q", c.Store.Driver))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("config: http.addr is required"))
	}
	if c.Booking.DefaultCapacity < 1 {
		errs = append(errs, errors.New("config: booking.default_capacity must be at least 1"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves Booking.Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: booking.timezone: %w", err)
	}
	return loc, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return lvl, nil
}
