// internal/config/config.go
//
// Server configuration.
// Values come from the environment (a .env file is loaded by main first),
// fall back to the defaults below and are validated before use.

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DevJWTSecret is the signing secret used when JWT_SECRET is unset.
// It is refused in production.
const DevJWTSecret = "dev_secret_change_me"

// Config holds every setting the server reads.
type Config struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error fatal"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`

	DBPath         string `mapstructure:"db_path" validate:"required"`
	StorageBackend string `mapstructure:"storage_backend" validate:"required,oneof=sqlite file memory"`
	DataDir        string `mapstructure:"data_dir" validate:"required_if=StorageBackend file"`

	JWTSecret      string `mapstructure:"jwt_secret" validate:"required"`
	JWTExpiresDays int    `mapstructure:"jwt_expires_days" validate:"gt=0"`
	CookieName     string `mapstructure:"cookie_name" validate:"required"`
	ClientOrigin   string `mapstructure:"client_origin" validate:"required,url"`
	Production     bool   `mapstructure:"production"`

	DailySalt     string        `mapstructure:"daily_salt" validate:"required"`
	MismatchDelay time.Duration `mapstructure:"mismatch_delay" validate:"gt=0"`
	TickInterval  time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
}

var defaults = map[string]any{
	"port":             5175,
	"log_level":        "info",
	"log_format":       "json",
	"db_path":          "./data/memory.db",
	"storage_backend":  "sqlite",
	"data_dir":         "./data/scores",
	"jwt_secret":       DevJWTSecret,
	"jwt_expires_days": 14,
	"cookie_name":      "memory_token",
	"client_origin":    "http://localhost:5173",
	"production":       false,
	"daily_salt":       "local_dev_salt",
	"mismatch_delay":   "1s",
	"tick_interval":    "1s",
	"session_ttl":      "30m",
}

// Load reads the environment (PORT, LOG_LEVEL, DB_PATH, ...) over the
// defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field rules plus the production-only constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Production && (c.JWTSecret == DevJWTSecret || len(c.JWTSecret) < 32) {
		return errors.New("invalid config: JWT_SECRET must be set to at least 32 chars in production")
	}
	return nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Port) }
