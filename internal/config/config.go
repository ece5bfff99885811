package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/technosupport/incident-analytics/internal/alerts"
	"github.com/technosupport/incident-analytics/internal/logging"
	"github.com/technosupport/incident-analytics/internal/ratelimit"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type ServerConfig struct {
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	GRPCPort int    `yaml:"grpc_port" validate:"min=0,max=65535"`
	Demo     bool   `yaml:"demo"`
	Version  string `yaml:"version"`
	// StreamInterval is how often the alert websocket pushes a fresh feed.
	StreamInterval time.Duration `yaml:"stream_interval" validate:"min=1s"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpen  int    `yaml:"max_open_conns" validate:"min=1"`
	MaxIdle  int    `yaml:"max_idle_conns" validate:"min=0"`
}

// DSN renders a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL renders the form golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type StoreConfig struct {
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
	// Salt keys the hashed client IPs in rate-limit keys.
	Salt string `yaml:"salt"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type AlertsConfig struct {
	Thresholds   alerts.Thresholds `yaml:"thresholds"`
	DefaultLimit int               `yaml:"default_limit" validate:"min=1,max=500"`
}

type NotifyConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval" validate:"min=1s"`
	Subject     string        `yaml:"subject" validate:"required"`
	DedupTTL    time.Duration `yaml:"dedup_ttl"`
	DedupSize   int           `yaml:"dedup_size" validate:"min=1"`
	RetryMax    int           `yaml:"retry_max" validate:"min=1"`
	MinSeverity string        `yaml:"min_severity" validate:"omitempty,oneof=critical high medium low"`
}

type ExportConfig struct {
	MaxRecords int `yaml:"max_records" validate:"min=1"`
}

type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Database  DatabaseConfig        `yaml:"database"`
	Store     StoreConfig           `yaml:"store"`
	Redis     RedisConfig           `yaml:"redis"`
	NATS      NATSConfig            `yaml:"nats"`
	Logging   logging.Config        `yaml:"logging"`
	Alerts    AlertsConfig          `yaml:"alerts"`
	RateLimit ratelimit.LimitConfig `yaml:"rate_limit"`
	Notify    NotifyConfig          `yaml:"notify"`
	Export    ExportConfig          `yaml:"export"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			GRPCPort:       9090,
			Version:        "dev",
			StreamInterval: 30 * time.Second,
			ShutdownGrace:  10 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "incidents",
			SSLMode: "disable",
			MaxOpen: 20,
			MaxIdle: 5,
		},
		Store: StoreConfig{
			Timeout:             5 * time.Second,
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Logging: logging.Config{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Alerts: AlertsConfig{
			Thresholds:   alerts.DefaultThresholds(),
			DefaultLimit: alerts.DefaultLimit,
		},
		RateLimit: ratelimit.LimitConfig{Rate: 100, Window: 15 * time.Minute},
		Notify: NotifyConfig{
			Interval:  time.Minute,
			Subject:   "incidents.alerts",
			DedupTTL:  30 * time.Minute,
			DedupSize: 10000,
			RetryMax:  3,
		},
		Export: ExportConfig{MaxRecords: 10000},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Load reads path over Default() and applies environment overrides. A missing
// file is not an error; an unreadable or malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	t := c.Alerts.Thresholds
	if t.CameraWindow <= 0 || t.CameraMinIncidents < 1 || t.Backlog < 1 {
		return fmt.Errorf("%w: alert thresholds must be positive", ErrInvalidConfig)
	}
	if c.RateLimit.Rate < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidConfig)
	}
	return nil
}

func applyEnv(c *Config) error {
	str := map[string]*string{
		"DB_HOST":         &c.Database.Host,
		"DB_USER":         &c.Database.User,
		"DB_PASSWORD":     &c.Database.Password,
		"DB_NAME":         &c.Database.Name,
		"DB_SSLMODE":      &c.Database.SSLMode,
		"REDIS_ADDR":      &c.Redis.Addr,
		"REDIS_PASSWORD":  &c.Redis.Password,
		"RATE_LIMIT_SALT": &c.Redis.Salt,
		"NATS_URL":        &c.NATS.URL,
		"LOG_LEVEL":       &c.Logging.Level,
		"LOG_FILE":        &c.Logging.File,
	}
	for k, p := range str {
		if v, ok := os.LookupEnv(k); ok {
			*p = v
		}
	}

	ints := map[string]*int{
		"DB_PORT":   &c.Database.Port,
		"PORT":      &c.Server.Port,
		"GRPC_PORT": &c.Server.GRPCPort,
	}
	for k, p := range ints {
		v, ok := os.LookupEnv(k)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, k, v)
		}
		*p = n
	}

	if v, ok := os.LookupEnv("DEMO_MODE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: DEMO_MODE=%q", ErrInvalidConfig, v)
		}
		c.Server.Demo = b
	}
	return nil
}
