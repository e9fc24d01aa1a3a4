package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the CLI flags. Bot settings are read separately by the
// process commands through internal/config.
type Config struct {
	EnvFile   string
	ServerURL string
	Token     string
	TokenFile string
	Output    string
}

// DefaultConfig returns a Config seeded from the GUILDBOT_* variables
func DefaultConfig() *Config {
	return defaultConfig(os.LookupEnv)
}

func defaultConfig(lookup func(string) (string, bool)) *Config {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}
	return &Config{
		ServerURL: get("GUILDBOT_SERVER", "http://localhost:8080"),
		Token:     get("GUILDBOT_TOKEN", ""),
		TokenFile: get("GUILDBOT_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
	}
}

// Validate checks flag values
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid output format %q: must be text or json", c.Output)
	}
}

// LoadToken reads the token file unless a token was given. A missing file
// leaves the token empty.
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}
	data, err := os.ReadFile(c.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken writes the token file, readable only by the user
func (c *Config) SaveToken(token string) error {
	c.Token = token
	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	return os.WriteFile(c.TokenFile, []byte(token), 0o600)
}

// envFiles returns the dotenv files to load, none meaning .env
func (c *Config) envFiles() []string {
	if c.EnvFile == "" {
		return nil
	}
	return []string{c.EnvFile}
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".guildbot", "token")
	}
	return filepath.Join(home, ".guildbot", "token")
}
