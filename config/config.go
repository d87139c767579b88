// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is the configuration shared by the server and the CLI
type Config struct {
	HTTPAddr string `env:"CYBERAUDIT_HTTP_ADDR" envDefault:":9000"`
	LogDebug bool   `env:"CYBERAUDIT_LOG_DEBUG"`

	RedisURL   string `env:"REDIS_URL"              envDefault:"redis://localhost:6379/0"`
	LeadStore  string `env:"CYBERAUDIT_LEAD_STORE"  envDefault:"sqlite" validate:"oneof=sqlite redis memory"`
	SQLitePath string `env:"CYBERAUDIT_SQLITE_PATH" envDefault:"cyberaudit.db"`
	Events     string `env:"CYBERAUDIT_EVENTS"      envDefault:"memory" validate:"oneof=redis memory"`

	Identity        string `env:"CYBERAUDIT_IDENTITY" envDefault:"gotrue" validate:"oneof=gotrue memory"`
	SupabaseURL     string `env:"SUPABASE_URL"        validate:"required_if=Identity gotrue"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"   validate:"required_if=Identity gotrue"`
	JWTSecret       string `env:"SUPABASE_JWT_SECRET"`

	WalletDomain string `env:"CYBERAUDIT_WALLET_DOMAIN" envDefault:"local" validate:"required,hostname_rfc1123"`
	SiteName     string `env:"CYBERAUDIT_SITE_NAME"     envDefault:"CyberAuditPro"`
	SiteURL      string `env:"CYBERAUDIT_SITE_URL"      envDefault:"http://localhost:8080" validate:"omitempty,url"`
	RedirectURL  string `env:"CYBERAUDIT_REDIRECT_URL"  validate:"omitempty,url"`

	RelayConfigName     string   `env:"CYBERAUDIT_RELAY_CONFIG_NAME"     envDefault:"get-walletconnect-config"`
	RelayConfigFile     string   `env:"CYBERAUDIT_RELAY_CONFIG_FILE"`
	RelayURL            string   `env:"CYBERAUDIT_RELAY_URL"`
	RelayChain          uint64   `env:"CYBERAUDIT_RELAY_CHAIN"           envDefault:"1" validate:"gt=0"`
	RelayOptionalChains []uint64 `env:"CYBERAUDIT_RELAY_OPTIONAL_CHAINS" envDefault:"137,56,42161" envSeparator:","`

	KeystoreDir string `env:"CYBERAUDIT_KEYSTORE_DIR,expand" envDefault:"${HOME}/.ethereum/keystore"`
	SessionFile string `env:"CYBERAUDIT_SESSION_FILE,expand" envDefault:"${HOME}/.cyberaudit/session.json"`

	ContactRPS   float64 `env:"CYBERAUDIT_CONTACT_RPS"   envDefault:"0.2" validate:"gte=0"`
	ContactBurst int     `env:"CYBERAUDIT_CONTACT_BURST" envDefault:"5"   validate:"gte=0"`
}

// ErrMissingJWTSecret is returned when the server cannot verify access tokens
var ErrMissingJWTSecret = errors.New("SUPABASE_JWT_SECRET is required to verify access tokens")

// Load parses and validates the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the cross-field rules
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateServe adds the rules that only apply to the HTTP server
func (c Config) ValidateServe() error {
	if c.Identity == "gotrue" && c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}
