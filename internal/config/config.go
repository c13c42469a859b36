package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Backend BackendConfig
	Redis   RedisConfig
	Session SessionConfig
	Booking BookingConfig
	Logging LoggingConfig

	// DatabaseURL enables submission history when set.
	DatabaseURL string
	// DatabaseMaxConns caps the history pool.
	DatabaseMaxConns int
}

type BackendConfig struct {
	URL     string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CacheTTL        time.Duration
	AvailabilityTTL time.Duration // zero: availability is never cached
	CartTTL         time.Duration
}

type SessionConfig struct {
	File     string
	HashKey  []byte // base64
	BlockKey []byte // base64, optional
}

type BookingConfig struct {
	LeadTime time.Duration
	Horizon  time.Duration
	Location *time.Location
}

type LoggingConfig struct {
	Level    string
	Format   string
	Output   string
	FilePath string
}

// FromEnv reads configuration from the environment, loading .env first when present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Backend: BackendConfig{
			URL: strings.TrimRight(envDefault("BACKEND_URL", ""), "/"),
		},
		Redis: RedisConfig{
			Addr:     envDefault("REDIS_ADDR", ""),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Session: SessionConfig{
			File: envDefault("SESSION_FILE", defaultSessionFile()),
		},
		Logging: LoggingConfig{
			Level:    envDefault("LOG_LEVEL", "info"),
			Format:   envDefault("LOG_FORMAT", "console"),
			Output:   envDefault("LOG_OUTPUT", "stderr"),
			FilePath: envDefault("LOG_FILE", ""),
		},
		DatabaseURL: envDefault("DATABASE_URL", ""),
	}

	var err error
	if cfg.Backend.Timeout, err = envDuration("BACKEND_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	if cfg.Backend.RPS, err = envFloat("BACKEND_RPS", 5); err != nil {
		return cfg, err
	}
	if cfg.Backend.Burst, err = envInt("BACKEND_BURST", 5); err != nil {
		return cfg, err
	}
	if cfg.DatabaseMaxConns, err = envInt("DB_MAX_CONNS", 4); err != nil {
		return cfg, err
	}
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.Redis.CacheTTL, err = envDuration("CACHE_TTL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.Redis.AvailabilityTTL, err = envDuration("AVAILABILITY_CACHE_TTL", 0); err != nil {
		return cfg, err
	}
	if cfg.Redis.CartTTL, err = envDuration("CART_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.Booking.LeadTime, err = envDuration("BOOKING_LEAD", 2*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.Booking.Horizon, err = envDuration("BOOKING_HORIZON", 240*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.Session.HashKey, err = optionalB64("SESSION_HASH_KEY"); err != nil {
		return cfg, err
	}
	if cfg.Session.BlockKey, err = optionalB64("SESSION_BLOCK_KEY"); err != nil {
		return cfg, err
	}

	tz := envDefault("TIMEZONE", "")
	if tz == "" {
		cfg.Booking.Location = time.Local
	} else if cfg.Booking.Location, err = time.LoadLocation(tz); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL (got %q)", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.Backend.RPS <= 0 || c.Backend.Burst < 1 {
		return fmt.Errorf("BACKEND_RPS and BACKEND_BURST must be positive")
	}
	if c.DatabaseMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.Redis.CacheTTL < 0 || c.Redis.AvailabilityTTL < 0 {
		return fmt.Errorf("CACHE_TTL and AVAILABILITY_CACHE_TTL must not be negative")
	}
	if c.Booking.LeadTime < 0 || c.Booking.Horizon <= c.Booking.LeadTime {
		return fmt.Errorf("BOOKING_HORIZON must be greater than BOOKING_LEAD")
	}
	if n := len(c.Session.HashKey); n != 0 && n < 32 {
		return fmt.Errorf("SESSION_HASH_KEY must decode to at least 32 bytes (got %d)", n)
	}
	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("SESSION_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(c.Session.BlockKey))
	}
	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr":
	case "file":
		if c.Logging.FilePath == "" {
			return fmt.Errorf("LOG_OUTPUT=file requires LOG_FILE")
		}
	default:
		return fmt.Errorf("LOG_OUTPUT must be stdout, stderr or file")
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dinectl-session"
	}
	return dir + string(os.PathSeparator) + "dinectl" + string(os.PathSeparator) + "session"
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func envDuration(k string, d time.Duration) (time.Duration, error) {
	v := envDefault(k, "")
	if v == "" {
		return d, nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return dur, nil
}

func envInt(k string, d int) (int, error) {
	v := envDefault(k, "")
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

func envFloat(k string, d float64) (float64, error) {
	v := envDefault(k, "")
	if v == "" {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return f, nil
}

func optionalB64(k string) ([]byte, error) {
	v := envDefault(k, "")
	if v == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
