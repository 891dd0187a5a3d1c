// Package config loads service configuration from an optional YAML file
// with environment variable overrides, so the same binary runs unchanged
// in docker-compose and in local dev.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the checkout service needs at startup.
type Config struct {
	ListenAddr      string
	RedisAddr       string
	OrderServiceURL string
	AttemptsDBPath  string
	CartURL         string
	LoginURL        string
	DraftTTL        time.Duration
}

// fileConfig is the YAML shape. Durations are strings ("48h") so the
// file reads naturally.
type fileConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	RedisAddr       string `yaml:"redis_addr"`
	OrderServiceURL string `yaml:"order_service_url"`
	AttemptsDBPath  string `yaml:"attempts_db_path"`
	CartURL         string `yaml:"cart_url"`
	LoginURL        string `yaml:"login_url"`
	DraftTTL        string `yaml:"draft_ttl"`
}

// Defaults returns the local-dev configuration.
func Defaults() Config {
	return Config{
		ListenAddr:     ":8080",
		AttemptsDBPath: "checkout-attempts.db",
		CartURL:        "/cart",
		LoginURL:       "/login",
		DraftTTL:       7 * 24 * time.Hour,
	}
}

// Load reads the YAML file at path (skipped when path is empty or the
// file is absent), then applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			if err := mergeFile(&cfg, fc); err != nil {
				return Config{}, fmt.Errorf("config: %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func mergeFile(cfg *Config, fc fileConfig) error {
	merge := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	merge(&cfg.ListenAddr, fc.ListenAddr)
	merge(&cfg.RedisAddr, fc.RedisAddr)
	merge(&cfg.OrderServiceURL, fc.OrderServiceURL)
	merge(&cfg.AttemptsDBPath, fc.AttemptsDBPath)
	merge(&cfg.CartURL, fc.CartURL)
	merge(&cfg.LoginURL, fc.LoginURL)
	if fc.DraftTTL != "" {
		d, err := time.ParseDuration(fc.DraftTTL)
		if err != nil {
			return fmt.Errorf("invalid draft_ttl %q: %w", fc.DraftTTL, err)
		}
		cfg.DraftTTL = d
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.OrderServiceURL, "ORDER_SERVICE_URL")
	setString(&cfg.AttemptsDBPath, "ATTEMPTS_DB_PATH")
	setString(&cfg.CartURL, "CART_URL")
	setString(&cfg.LoginURL, "LOGIN_URL")
	if v := os.Getenv("DRAFT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DraftTTL = d
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
