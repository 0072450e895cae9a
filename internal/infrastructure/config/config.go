package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for ProfileHub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Media    MediaConfig    `yaml:"media"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains token signing settings.
//
// Access and refresh tokens are signed with independent secrets so that a
// leaked refresh token cannot be replayed as an access token. TTLs are in
// seconds: the access horizon is deliberately short to force refresh-based
// re-validation, the refresh horizon matches the session cookie max-age.
type JWTConfig struct {
	AccessTokenSecret  string `yaml:"access_token_secret"`
	RefreshTokenSecret string `yaml:"refresh_token_secret"`
	AccessTokenTTL     int    `yaml:"access_token_ttl"`
	RefreshTokenTTL    int    `yaml:"refresh_token_ttl"`
}

// MediaConfig contains settings for the external S3-compatible media host
// that stores profile photos.
type MediaConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	// PublicBaseURL is the URL prefix stored on user records for uploaded
	// photos. Defaults to Endpoint when empty.
	PublicBaseURL string `yaml:"public_base_url"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PROFILEHUB_SECTION_KEY
// For example: PROFILEHUB_DATABASE_PATH, PROFILEHUB_ACCESS_TOKEN_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/profilehub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 4000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL:  30,
				RefreshTokenTTL: 86400,
			},
		},
		Media: MediaConfig{
			Region: "us-east-1",
			Bucket: "profiles",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PROFILEHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("PROFILEHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("PROFILEHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Security - token secrets (IMPORTANT: always set in production)
	if v := os.Getenv("PROFILEHUB_ACCESS_TOKEN_SECRET"); v != "" {
		cfg.Security.JWT.AccessTokenSecret = v
	}
	if v := os.Getenv("PROFILEHUB_REFRESH_TOKEN_SECRET"); v != "" {
		cfg.Security.JWT.RefreshTokenSecret = v
	}

	// Media host credentials
	if v := os.Getenv("PROFILEHUB_MEDIA_ENDPOINT"); v != "" {
		cfg.Media.Endpoint = v
	}
	if v := os.Getenv("PROFILEHUB_MEDIA_ACCESS_KEY"); v != "" {
		cfg.Media.AccessKey = v
	}
	if v := os.Getenv("PROFILEHUB_MEDIA_SECRET_KEY"); v != "" {
		cfg.Media.SecretKey = v
	}
}

// minSecretLength is the minimum length for token signing secrets.
const minSecretLength = 32

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security validation - both signing secrets are REQUIRED.
	// A shared secret would collapse the two-tier trust model: a stolen
	// refresh token could then be replayed as an access token.
	if c.Security.JWT.AccessTokenSecret == "" {
		errs = append(errs, "security.jwt.access_token_secret is required (set PROFILEHUB_ACCESS_TOKEN_SECRET)")
	} else if len(c.Security.JWT.AccessTokenSecret) < minSecretLength {
		errs = append(errs, "security.jwt.access_token_secret must be at least 32 characters")
	}
	if c.Security.JWT.RefreshTokenSecret == "" {
		errs = append(errs, "security.jwt.refresh_token_secret is required (set PROFILEHUB_REFRESH_TOKEN_SECRET)")
	} else if len(c.Security.JWT.RefreshTokenSecret) < minSecretLength {
		errs = append(errs, "security.jwt.refresh_token_secret must be at least 32 characters")
	}
	if c.Security.JWT.AccessTokenSecret != "" &&
		c.Security.JWT.AccessTokenSecret == c.Security.JWT.RefreshTokenSecret {
		errs = append(errs, "security.jwt access and refresh secrets must differ")
	}

	if c.Security.JWT.AccessTokenTTL < 1 {
		errs = append(errs, "security.jwt.access_token_ttl must be at least 1 second")
	}
	if c.Security.JWT.RefreshTokenTTL < 1 {
		errs = append(errs, "security.jwt.refresh_token_ttl must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetAccessTokenTTL returns the access token lifetime as a Duration.
func (c *JWTConfig) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

// GetRefreshTokenTTL returns the refresh token lifetime as a Duration.
func (c *JWTConfig) GetRefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * time.Second
}
