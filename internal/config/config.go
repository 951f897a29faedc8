// Package config loads process configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	RedisAddr   string
	RedisDB     int
	// MasterKey derives the AES key protecting stored provider
	// credentials. Changing it makes existing ciphertexts unreadable.
	MasterKey string
	LogLevel  string
}

// Load reads configuration, failing fast on anything required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr: envOr("ANVIL_HTTP_ADDR", ":8080"),
		RedisDB:  envIntOr("ANVIL_REDIS_DB", 0),
		LogLevel: envOr("ANVIL_LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PostgresDSN, err = mustEnv("ANVIL_POSTGRES_DSN"); err != nil {
		return nil, err
	}
	if cfg.RedisAddr, err = mustEnv("ANVIL_REDIS_ADDR"); err != nil {
		return nil, err
	}
	if cfg.MasterKey, err = mustEnv("ANVIL_MASTER_KEY"); err != nil {
		return nil, err
	}
	return cfg, nil
}

var dsnPasswordPattern = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// RedactedDSN is the DSN safe for logs: the password is masked.
func (c *Config) RedactedDSN() string {
	return dsnPasswordPattern.ReplaceAllString(c.PostgresDSN, `://$1:****@`)
}

func mustEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("missing env: %s", key)
	}
	return v, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
