// Package config loads service settings from an optional YAML file overlaid by
// SHIPCHECKOUT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "SHIPCHECKOUT_"

// Storage backends
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config is the complete service configuration
type Config struct {
	HTTP      HTTPConfig      `yaml:"http" envPrefix:"HTTP_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Pickup    PickupConfig    `yaml:"pickup" envPrefix:"PICKUP_"`
	Receipt   ReceiptConfig   `yaml:"receipt" envPrefix:"RECEIPT_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

// HTTPConfig controls the API listener
type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects where transactions are kept
type StorageConfig struct {
	Backend    string `yaml:"backend" env:"BACKEND"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// CheckoutConfig tunes the wizard
type CheckoutConfig struct {
	AutosaveDelay  time.Duration `yaml:"autosave_delay" env:"AUTOSAVE_DELAY"`
	QuoteTTL       time.Duration `yaml:"quote_ttl" env:"QUOTE_TTL"`
	QuoteCacheSize int           `yaml:"quote_cache_size" env:"QUOTE_CACHE_SIZE"`
	RatesPath      string        `yaml:"rates_path" env:"RATES_PATH"`
	PresetsPath    string        `yaml:"presets_path" env:"PRESETS_PATH"`
	Timezone       string        `yaml:"timezone" env:"TIMEZONE"`
	EventRetention int           `yaml:"event_retention" env:"EVENT_RETENTION"`
}

// PickupConfig tunes the pickup calendar
type PickupConfig struct {
	Cutoff       string `yaml:"cutoff" env:"CUTOFF"`
	HorizonDays  int    `yaml:"horizon_days" env:"HORIZON_DAYS"`
	SlotCapacity int    `yaml:"slot_capacity" env:"SLOT_CAPACITY"`
}

// ReceiptConfig controls signed confirmation receipts
type ReceiptConfig struct {
	Issuer     string        `yaml:"issuer" env:"ISSUER"`
	Audience   string        `yaml:"audience" env:"AUDIENCE"`
	PrivateKey string        `yaml:"private_key" env:"PRIVATE_KEY"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
}

// TelemetryConfig controls OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"INSECURE"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    StorageMemory,
			SQLitePath: "shipcheckout.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Checkout: CheckoutConfig{
			AutosaveDelay:  time.Second,
			QuoteTTL:       15 * time.Minute,
			QuoteCacheSize: 256,
			Timezone:       "America/Chicago",
			EventRetention: 10000,
		},
		Pickup: PickupConfig{
			Cutoff:       "14:00",
			HorizonDays:  14,
			SlotCapacity: 20,
		},
		Receipt: ReceiptConfig{
			Issuer:   "shipcheckout",
			Audience: "shipcheckout-receipts",
			TTL:      90 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "shipcheckout",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if any), then
// the process environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; a nil map reads the process environment.
func LoadWithEnv(path string, environment map[string]string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves the configured timezone
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Checkout.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Checkout.Timezone, err)
	}
	return loc, nil
}

// CutoffMinutes returns the pickup cutoff as minutes after midnight
func (c Config) CutoffMinutes() (int, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(c.Pickup.Cutoff, "%d:%d", &hours, &minutes); err != nil ||
		len(c.Pickup.Cutoff) != 5 || hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid pickup cutoff %q: expected HH:MM", c.Pickup.Cutoff)
	}
	return hours*60 + minutes, nil
}

// Validate checks enums, ranges and durations, reporting every problem at once
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %s or %s, got %q", StorageMemory, StorageSQLite, c.Storage.Backend))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Checkout.AutosaveDelay <= 0 {
		errs = append(errs, errors.New("checkout.autosave_delay must be positive"))
	}
	if c.Checkout.QuoteTTL <= 0 {
		errs = append(errs, errors.New("checkout.quote_ttl must be positive"))
	}
	if c.Checkout.QuoteCacheSize < 0 {
		errs = append(errs, errors.New("checkout.quote_cache_size cannot be negative"))
	}
	if c.Checkout.EventRetention < 1 {
		errs = append(errs, fmt.Errorf("checkout.event_retention must be positive, got %d", c.Checkout.EventRetention))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CutoffMinutes(); err != nil {
		errs = append(errs, err)
	}
	if c.Pickup.HorizonDays < 1 || c.Pickup.HorizonDays > 60 {
		errs = append(errs, fmt.Errorf("pickup.horizon_days must be between 1 and 60, got %d", c.Pickup.HorizonDays))
	}
	if c.Pickup.SlotCapacity < 1 {
		errs = append(errs, fmt.Errorf("pickup.slot_capacity must be positive, got %d", c.Pickup.SlotCapacity))
	}
	if strings.TrimSpace(c.Receipt.Issuer) == "" || strings.TrimSpace(c.Receipt.Audience) == "" {
		errs = append(errs, errors.New("receipt.issuer and receipt.audience are required"))
	}
	if c.Receipt.TTL <= 0 {
		errs = append(errs, errors.New("receipt.ttl must be positive"))
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}

	return errors.Join(errs...)
}
