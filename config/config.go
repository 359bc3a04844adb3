package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Socket   SocketConfig   `mapstructure:"socket"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the SQL backend. Driver is "sqlite3" or "pgx".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	SessionSecret string `mapstructure:"session_secret"`
	SessionName   string `mapstructure:"session_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// StatsConfig drives the weekly leaderboard digest.
// TestMode swaps the weekly boundary for a fixed TestInterval.
type StatsConfig struct {
	TestMode     bool          `mapstructure:"test_mode"`
	TestInterval time.Duration `mapstructure:"test_interval"`
	Weekday      string        `mapstructure:"weekday"`
	Timezone     string        `mapstructure:"timezone"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
	TopN         int           `mapstructure:"top_n"`
}

type SocketConfig struct {
	SendBuffer        int     `mapstructure:"send_buffer"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./xpboard.db")

	v.SetDefault("auth.session_secret", "your-secret-key-change-this-in-production")
	v.SetDefault("auth.session_name", "xpboard-session")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("stats.test_mode", false)
	v.SetDefault("stats.test_interval", time.Minute)
	v.SetDefault("stats.weekday", "sunday")
	v.SetDefault("stats.timezone", "Local")
	v.SetDefault("stats.max_wait", 24*time.Hour)
	v.SetDefault("stats.top_n", 5)

	v.SetDefault("socket.send_buffer", 256)
	v.SetDefault("socket.messages_per_second", 10.0)
	v.SetDefault("socket.burst", 20)
}

// Load reads config.yaml, merges config.local.yaml on top if present and
// applies XPBOARD_* environment overrides.
func Load() (*Config, error) {
	return LoadFrom(".", "./config")
}

func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("XPBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults
	}

	// Local overrides (ignored by git)
	v.SetConfigName("config.local")
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("merge local config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if _, err := c.Stats.ParseWeekday(); err != nil {
		return err
	}
	if c.Stats.TestMode && c.Stats.TestInterval <= 0 {
		return fmt.Errorf("stats.test_interval must be positive in test mode")
	}
	return nil
}

// ParseWeekday resolves the configured weekday name.
func (s StatsConfig) ParseWeekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s.Weekday) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid stats.weekday: %q", s.Weekday)
}

// Location resolves the configured timezone, falling back to time.Local.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}
