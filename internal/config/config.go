// Package config loads process configuration once at startup: an optional
// YAML file with environment overrides on top. The resulting Config is
// immutable and passed by reference into constructors; nothing reads the
// environment after load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Addr is the server listen address, e.g. ":5000".
	Addr string `yaml:"addr"`

	// DBPath is the SQLite turn store location.
	DBPath string `yaml:"db_path"`

	// Model is the Gemini model used for every exchange.
	Model string `yaml:"model"`

	// GenTimeoutMS bounds a single provider call; 0 disables the deadline.
	GenTimeoutMS int `yaml:"gen_timeout_ms"`

	// GeminiBaseURL overrides the provider endpoint (tests, proxies).
	GeminiBaseURL string `yaml:"gemini_base_url"`

	// GeminiAPIKey comes from the environment only, never the file.
	GeminiAPIKey string `yaml:"-"`
}

func Default() Config {
	return Config{
		Addr:         ":5000",
		DBPath:       "gemchat.db",
		Model:        "gemini-1.5-flash",
		GenTimeoutMS: 120_000,
	}
}

// Load builds the config: defaults, then the YAML file at path (if non-empty),
// then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Addr = envOrDefault("GEMCHAT_ADDR", cfg.Addr)
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("GEMCHAT_ADDR") == "" {
		cfg.Addr = ":" + port
	}
	cfg.DBPath = envOrDefault("GEMCHAT_DB_PATH", cfg.DBPath)
	cfg.Model = envOrDefault("GEMCHAT_MODEL", cfg.Model)
	cfg.GeminiBaseURL = envOrDefault("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	}

	var err error
	cfg.GenTimeoutMS, err = envIntOrDefault("GEMCHAT_GEN_TIMEOUT_MS", cfg.GenTimeoutMS)
	if err != nil {
		return Config{}, err
	}
	if cfg.GenTimeoutMS < 0 {
		return Config{}, fmt.Errorf("gen_timeout_ms must be >= 0, got %d", cfg.GenTimeoutMS)
	}
	return cfg, nil
}

// ValidateForServe checks the fields only the server needs.
func (c Config) ValidateForServe() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is required in environment")
	}
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("listen address is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db path is required")
	}
	return nil
}

func (c Config) GenTimeout() time.Duration {
	return time.Duration(c.GenTimeoutMS) * time.Millisecond
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
