package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting. The signing secret has no default:
// a process without one must refuse to start.
type Config struct {
	BaseURL  string `mapstructure:"base_url"`
	HTTPAddr string `mapstructure:"http_addr"`

	DatabaseDSN string `mapstructure:"database_dsn"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPFrom     string `mapstructure:"smtp_from"`

	SigningSecret string `mapstructure:"signing_secret"`

	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	ExtendedSessionTTL  time.Duration `mapstructure:"extended_session_ttl"`
	ConfirmTokenMaxAge  time.Duration `mapstructure:"confirm_token_max_age"`
	RecoveryTokenMaxAge time.Duration `mapstructure:"recovery_token_max_age"`

	CookieName   string `mapstructure:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure"`

	// Optional admin bootstrap. Both values empty disables seeding.
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// LoadConfig reads configuration from an optional file plus PICLOUD_*
// environment overrides and validates the result.
func LoadConfig(configPath ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_dsn", "file:picloud.db?cache=shared&mode=rwc")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_password", "")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_from", "")
	// Registered empty so AutomaticEnv can see them during Unmarshal.
	v.SetDefault("signing_secret", "")
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("extended_session_ttl", "720h")
	v.SetDefault("confirm_token_max_age", "2h")
	v.SetDefault("recovery_token_max_age", "30m")
	v.SetDefault("cookie_name", "picloud_session")
	v.SetDefault("cookie_secure", true)

	v.SetEnvPrefix("PICLOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the settings that must fail startup when absent.
func (c *Config) Validate() error {
	if c.SigningSecret == "" {
		return ErrMissingSecret
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.ConfirmTokenMaxAge <= 0 || c.RecoveryTokenMaxAge <= 0 {
		return fmt.Errorf("token max age must be positive")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("admin bootstrap requires both email and password")
	}
	return nil
}
