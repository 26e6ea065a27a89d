// Package config loads server configuration from file, environment and
// defaults via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	// RedisAddr selects the shared revocation ledger; empty falls back to
	// the in-process ledger (single-instance deployments only).
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	JWTSecretKey        string `mapstructure:"JWT_SECRET_KEY"`
	AccessTokenTTLMin   int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLDays int    `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`

	// AuthPublicPaths is a comma-separated allowlist; a trailing /* covers
	// the subtree.
	AuthPublicPaths string `mapstructure:"AUTH_PUBLIC_PATHS"`

	// AuthnUnavailableMode is "deny" or "error": what the authentication
	// gate does when a dependency store fails (see middleware.Authn).
	AuthnUnavailableMode string `mapstructure:"AUTHN_UNAVAILABLE_MODE"`

	SessionSweepIntervalMin int `mapstructure:"SESSION_SWEEP_INTERVAL_MIN"`
}

// PublicPaths returns the parsed allowlist.
func (c *ServerConfig) PublicPaths() []string {
	var paths []string
	for _, p := range strings.Split(c.AuthPublicPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/pacs-auth/")
	v.AddConfigPath("$HOME/.pacs-auth")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/pacs_auth_dev")
	v.SetDefault("MONGO_DB_NAME", "pacs_auth_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("REFRESH_TOKEN_TTL_DAYS", 14)
	v.SetDefault("AUTH_PUBLIC_PATHS", "/api/auth/*,/api/dicom/instances/*,/api/dicom/studies/*,/api/dicom/query/*")
	v.SetDefault("AUTHN_UNAVAILABLE_MODE", "deny")
	v.SetDefault("SESSION_SWEEP_INTERVAL_MIN", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply.
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
