// Package config reads the bot's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // guild time zones must resolve on minimal images

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeMySQL    = "mysql"
	StorageTypeSQLite   = "sqlite"
)

// Config is every setting of the bot process
type Config struct {
	DiscordToken        string   `env:"DISCORD_TOKEN"`
	DiscordGuildID      string   `env:"DISCORD_GUILD_ID"`
	DiscordAdminRoleIDs []string `env:"DISCORD_ADMIN_ROLE_IDS" envSeparator:","`

	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	LookupBaseURL  string        `env:"LOOKUP_BASE_URL"  envDefault:"https://raider.io"`
	LookupRegion   string        `env:"LOOKUP_REGION"    envDefault:"kr"`
	LookupTimeout  time.Duration `env:"LOOKUP_TIMEOUT"   envDefault:"10s"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL" envDefault:"6h"`

	HTTPPort       int    `env:"HTTP_PORT"        envDefault:"8080"`
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH"`

	GuildTimezone string `env:"GUILD_TIMEZONE" envDefault:"Asia/Seoul"`

	RefreshInterval   time.Duration `env:"REFRESH_INTERVAL"    envDefault:"6h"`
	RefreshStaleAfter time.Duration `env:"REFRESH_STALE_AFTER" envDefault:"24h"`
	RefreshBatch      int           `env:"REFRESH_BATCH"       envDefault:"50"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the given dotenv files, or .env when none are given, then parses
// the environment. A missing dotenv file is not an error; variables already
// set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageTypeMemory:
	case StorageTypePostgres, StorageTypeMySQL, StorageTypeSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL required when STORAGE_TYPE=%s", c.StorageType)
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, postgres, mysql or sqlite", c.StorageType)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", c.LogFormat)
	}
	if c.RefreshBatch <= 0 {
		return fmt.Errorf("REFRESH_BATCH must be positive, got %d", c.RefreshBatch)
	}
	return nil
}

// Location returns the guild time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.GuildTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid GUILD_TIMEZONE %q: %w", c.GuildTimezone, err)
	}
	return loc, nil
}

// AdminRoles returns the configured officer role ids without blanks
func (c *Config) AdminRoles() []string {
	var roles []string
	for _, id := range c.DiscordAdminRoleIDs {
		if id = strings.TrimSpace(id); id != "" {
			roles = append(roles, id)
		}
	}
	return roles
}

// NewLogger builds the process logger writing to w
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
