// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the HS256 signing secret for access and refresh tokens. Required outside tests.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "session-control").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "community-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h" for 7d).
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) used for refresh-token hashes; default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// MaxDevicesPerUser is the device-limit policy cap; default 5.
	MaxDevicesPerUser int `mapstructure:"MAX_DEVICES_PER_USER"`
	// MaxIdleDays is the idle-session reaping threshold in days; default 30.
	MaxIdleDays int `mapstructure:"MAX_IDLE_DAYS"`
	// ExpiredSweepInterval is the cadence of the expired-session sweep (e.g. "1h").
	ExpiredSweepInterval string `mapstructure:"EXPIRED_SWEEP_INTERVAL"`
	// IdleSweepInterval is the cadence of the idle-session sweep (e.g. "24h").
	IdleSweepInterval string `mapstructure:"IDLE_SWEEP_INTERVAL"`
	// DeviceLimitInterval is the cadence of device-limit enforcement (e.g. "24h").
	DeviceLimitInterval string `mapstructure:"DEVICE_LIMIT_INTERVAL"`
	// CORSAllowedOrigins is the allowed browser origin for the HTTP surface.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// InternalSecret guards the gateway-only endpoints. Empty disables them.
	InternalSecret string `mapstructure:"INTERNAL_API_SECRET"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "session-control")
	v.SetDefault("JWT_AUDIENCE", "community-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("MAX_DEVICES_PER_USER", 5)
	v.SetDefault("MAX_IDLE_DAYS", 30)
	v.SetDefault("EXPIRED_SWEEP_INTERVAL", "1h")
	v.SetDefault("IDLE_SWEEP_INTERVAL", "24h")
	v.SetDefault("DEVICE_LIMIT_INTERVAL", "24h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("INTERNAL_API_SECRET", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.MaxDevicesPerUser <= 0 {
		return nil, errors.New("config: MAX_DEVICES_PER_USER must be positive")
	}
	if cfg.MaxIdleDays <= 0 {
		return nil, errors.New("config: MAX_IDLE_DAYS must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// MaxIdleAge returns the idle-session reaping threshold as a duration.
func (c *Config) MaxIdleAge() time.Duration {
	days := c.MaxIdleDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// ExpiredSweepEvery parses ExpiredSweepInterval. Returns 1h if unset or invalid.
func (c *Config) ExpiredSweepEvery() time.Duration {
	d, err := time.ParseDuration(c.ExpiredSweepInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// IdleSweepEvery parses IdleSweepInterval. Returns 24h if unset or invalid.
func (c *Config) IdleSweepEvery() time.Duration {
	d, err := time.ParseDuration(c.IdleSweepInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// DeviceLimitEvery parses DeviceLimitInterval. Returns 24h if unset or invalid.
func (c *Config) DeviceLimitEvery() time.Duration {
	d, err := time.ParseDuration(c.DeviceLimitInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
