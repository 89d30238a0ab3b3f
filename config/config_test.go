package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourdesk.yaml")
	yml := `
http:
  addr: ":9090"
store:
  driver: postgres
  postgres_dsn: postgres://localhost/tourdesk
redis:
  addr: localhost:6379
  ttl: 1m
booking:
  default_capacity: 12
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		t.Fatalf("readFile: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.Store.Driver != DriverPostgres || cfg.Booking.DefaultCapacity != 12 {
		t.Errorf("config: %+v", cfg)
	}
	if cfg.Redis.TTL != time.Minute {
		t.Errorf("redis ttl: got %v", cfg.Redis.TTL)
	}
	if cfg.Booking.MaxRangeDays != 92 {
		t.Errorf("unset field lost its default: %d", cfg.Booking.MaxRangeDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	cfg := Default()
	if err := cfg.readFile(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing file: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TOURDESK_STORE_DRIVER":     "mongo",
		"TOURDESK_MONGO_URI":        "mongodb://localhost:27017",
		"TOURDESK_NATS_URL":         "nats://localhost:4222",
		"TOURDESK_DEFAULT_CAPACITY": "5",
		"TOURDESK_METRICS":          "false",
		"TOURDESK_REDIS_TTL":        "45s",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Store.Driver != DriverMongo || cfg.Store.MongoURI == "" || cfg.NATS.URL == "" {
		t.Errorf("strings: %+v", cfg)
	}
	if cfg.Booking.DefaultCapacity != 5 || cfg.Metrics || cfg.Redis.TTL != 45*time.Second {
		t.Errorf("typed values: %+v", cfg)
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "TOURDESK_DEFAULT_CAPACITY" {
			return "eight", true
		}
		return "", false
	}
	cfg := Default()
	if err := cfg.applyEnv(lookup); err == nil {
		t.Error("expected error")
	}
	if cfg.Booking.DefaultCapacity != 8 {
		t.Errorf("bad value applied: %d", cfg.Booking.DefaultCapacity)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }, false},
		{"mongo without uri", func(c *Config) { c.Store.Driver = DriverMongo }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, false},
		{"zero capacity", func(c *Config) { c.Booking.DefaultCapacity = 0 }, false},
		{"bad timezone", func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	lvl, err := cfg.Level()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("got %v, %v", lvl, err)
	}
}
