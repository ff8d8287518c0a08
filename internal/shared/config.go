package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Token policies applied when the upstream API rejects an access token.
const (
	TokenPolicyRelogin = "relogin"
	TokenPolicyRefresh = "refresh"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Generator   GeneratorConfig   `toml:"generator"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                  string `toml:"host"`
	Port                  int    `toml:"port"`
	BaseURL               string `toml:"base_url"`
	TokenPolicy           string `toml:"token_policy"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// GeneratorConfig tunes the playlist engine.
type GeneratorConfig struct {
	DefaultMarket   string  `toml:"default_market"`
	RollbackPartial bool    `toml:"rollback_partial"`
	RateLimit       float64 `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Addr returns the host:port pair the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RequestTimeout returns the configured per-request timeout, zero meaning unbounded.
func (s ServerConfig) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path when it exists, otherwise the defaults, then applies environment overrides.
//
// A .env file in the working directory is read first when present; variables already set in the
// process environment win over it.
func ResolveConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to read .env: %v", ErrInvalidConfig, err)
	}

	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	config.ApplyEnv(os.Getenv)
	return config, nil
}

// ApplyEnv overrides config values with SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REDIRECT_URI
// and APP_BASE_URL when set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := getenv("APP_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
}

// Validate reports problems that should not block startup, such as missing client credentials.
func (c *Config) Validate() []error {
	var problems []error
	if c.Credentials.Spotify.ClientID == "" {
		problems = append(problems, fmt.Errorf("%w: spotify client_id", ErrMissingCredentials))
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		problems = append(problems, fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials))
	}
	switch c.Server.TokenPolicy {
	case "", TokenPolicyRelogin, TokenPolicyRefresh:
	default:
		problems = append(problems, fmt.Errorf("%w: unknown token_policy %q, using %q", ErrInvalidConfig, c.Server.TokenPolicy, TokenPolicyRelogin))
		c.Server.TokenPolicy = TokenPolicyRelogin
	}
	return problems
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
