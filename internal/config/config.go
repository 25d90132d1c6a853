package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ServiceName    = "warehouse-ledger"
	ServiceVersion = "0.1.0"
)

type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	DatabaseURL string
	RedisAddr   string
	JWTSecret   string

	AdminUsername string
	AdminPassword string

	DigestTime     string
	DigestTimezone string
	PollInterval   time.Duration
	BatchSize      int

	DefaultLowFloor  int64
	ArchiveAfterDays int

	KafkaBrokers []string
	KafkaTopic   string

	AMQPURL      string
	AMQPExchange string

	OtelEndpoint string
}

// Load reads .env (if present), then config.yaml, then the environment.
// Environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/warehouse-ledger")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env:              v.GetString("app_env"),
		LogLevel:         v.GetString("log_level"),
		HTTPAddr:         v.GetString("http_addr"),
		DatabaseURL:      v.GetString("database_url"),
		RedisAddr:        v.GetString("redis_addr"),
		JWTSecret:        v.GetString("jwt_secret"),
		AdminUsername:    v.GetString("admin_username"),
		AdminPassword:    v.GetString("admin_password"),
		DigestTime:       v.GetString("digest_time"),
		DigestTimezone:   v.GetString("digest_timezone"),
		PollInterval:     v.GetDuration("poll_interval"),
		BatchSize:        v.GetInt("batch_size"),
		DefaultLowFloor:  v.GetInt64("default_low_floor"),
		ArchiveAfterDays: v.GetInt("archive_after_days"),
		KafkaBrokers:     splitList(v.GetString("kafka_brokers")),
		KafkaTopic:       v.GetString("kafka_topic"),
		AMQPURL:          v.GetString("amqp_url"),
		AMQPExchange:     v.GetString("amqp_exchange"),
		OtelEndpoint:     v.GetString("otel_endpoint"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("redis_addr", "")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("admin_username", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("digest_time", "21:10")
	v.SetDefault("digest_timezone", "Local")
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("batch_size", 100)
	v.SetDefault("default_low_floor", 2)
	v.SetDefault("archive_after_days", 30)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "stock-events")
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "warehouse.notifications")
	v.SetDefault("otel_endpoint", "")
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if _, _, err := ParseClock(c.DigestTime); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.DigestTimezone); err != nil {
		return fmt.Errorf("invalid DIGEST_TIMEZONE %q: %w", c.DigestTimezone, err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.DefaultLowFloor < 1 {
		return fmt.Errorf("DEFAULT_LOW_FLOOR must be at least 1, got %d", c.DefaultLowFloor)
	}
	if c.ArchiveAfterDays < 1 {
		return fmt.Errorf("ARCHIVE_AFTER_DAYS must be at least 1, got %d", c.ArchiveAfterDays)
	}
	return nil
}

// ParseClock parses a wall-clock time of day such as "21:10".
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q, want HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Location resolves DigestTimezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DigestTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
