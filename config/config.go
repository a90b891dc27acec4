package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration, parsed from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":9000"`

	// Domain is used as domain, audience and issuer of challenge messages
	// and as the default email synthesis domain.
	Domain      string `env:"AUTH_DOMAIN,required"`
	EmailDomain string `env:"EMAIL_DOMAIN"`

	// Anonymous controls whether sign-in without a caller-supplied email is
	// allowed. When false, email becomes mandatory and is never synthesized.
	Anonymous bool `env:"ANONYMOUS_SIGNIN" envDefault:"true"`

	NonceTTL   time.Duration `env:"NONCE_TTL" envDefault:"15m"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"120h"`

	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	PersonhoodOracleURL string `env:"PERSONHOOD_ORACLE_URL"`
	ENSResolverURL      string `env:"ENS_RESOLVER_URL"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = cfg.Domain
	}
	return cfg, nil
}
