// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthMode selects how report requests are authorized.
type AuthMode string

const (
	// AuthNone authorizes every request. Local development only.
	AuthNone AuthMode = "none"
	// AuthHeader authorizes requests carrying a non-empty trust header,
	// stamped by an upstream gateway. No verification happens here.
	AuthHeader AuthMode = "header"
	// AuthOIDC verifies JWT bearer tokens against an OIDC issuer.
	AuthOIDC AuthMode = "oidc"
)

func (m AuthMode) Valid() bool {
	switch m {
	case AuthNone, AuthHeader, AuthOIDC:
		return true
	}
	return false
}

// Config holds all application configuration.
type Config struct {
	AWSRegion       string
	Profiles        []string
	AccountsFile    string
	AssumeRolesFile string
	BaseProfile     string

	AuthMode     AuthMode
	TrustHeader  string
	OIDCIssuer   string
	OIDCAudience string

	// API server settings.
	APIPort        string
	CORSOrigins    []string
	Concurrency    int
	TopN           int
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	LogLevel       string
	OTelEnabled    bool
}

// LoadFromEnv reads configuration from environment variables with sensible defaults.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		AWSRegion:       envOr("AWS_REGION", "us-east-1"),
		Profiles:        splitList(os.Getenv("CLOUDCOST_PROFILES")),
		AccountsFile:    os.Getenv("CLOUDCOST_ACCOUNTS_FILE"),
		AssumeRolesFile: os.Getenv("CLOUDCOST_ASSUME_ROLES_FILE"),
		BaseProfile:     os.Getenv("CLOUDCOST_BASE_PROFILE"),
		AuthMode:        AuthMode(envOr("CLOUDCOST_AUTH_MODE", "none")),
		TrustHeader:     envOr("CLOUDCOST_TRUST_HEADER", "x-amzn-iam-arn"),
		OIDCIssuer:      os.Getenv("CLOUDCOST_OIDC_ISSUER"),
		OIDCAudience:    os.Getenv("CLOUDCOST_OIDC_AUDIENCE"),
		APIPort:         envOr("CLOUDCOST_API_PORT", "8080"),
		CORSOrigins:     parseCORSOrigins(os.Getenv("CLOUDCOST_CORS_ORIGINS")),
		LogLevel:        envOr("CLOUDCOST_LOG_LEVEL", "info"),
		OTelEnabled:     os.Getenv("CLOUDCOST_OTEL_ENABLED") == "true",
	}

	var err error
	if cfg.Concurrency, err = envInt("CLOUDCOST_CONCURRENCY", 4); err != nil {
		return Config{}, err
	}
	if cfg.TopN, err = envInt("CLOUDCOST_TOP_N", 10); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = envDuration("CLOUDCOST_REQUEST_TIMEOUT", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = envDuration("CLOUDCOST_CACHE_TTL", 0); err != nil {
		return Config{}, err
	}

	if !cfg.AuthMode.Valid() {
		return Config{}, fmt.Errorf("config: invalid CLOUDCOST_AUTH_MODE %q (must be none, header, or oidc)", cfg.AuthMode)
	}
	if cfg.AuthMode == AuthHeader && cfg.TrustHeader == "" {
		return Config{}, fmt.Errorf("config: CLOUDCOST_TRUST_HEADER required in header auth mode")
	}
	if cfg.AuthMode == AuthOIDC {
		if cfg.OIDCIssuer == "" {
			return Config{}, fmt.Errorf("config: CLOUDCOST_OIDC_ISSUER required in oidc auth mode")
		}
		if cfg.OIDCAudience == "" {
			return Config{}, fmt.Errorf("config: CLOUDCOST_OIDC_AUDIENCE required in oidc auth mode")
		}
	}
	if cfg.Concurrency < 1 {
		return Config{}, fmt.Errorf("config: CLOUDCOST_CONCURRENCY must be at least 1")
	}
	if cfg.TopN < 1 {
		return Config{}, fmt.Errorf("config: CLOUDCOST_TOP_N must be at least 1")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseCORSOrigins(raw string) []string {
	origins := splitList(raw)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
