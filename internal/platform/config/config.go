// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, LLM) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Both binaries (cmd/api and cmd/worker) load the same struct; each reads only
the groups it needs.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the refgen API server and worker.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath overrides the embedded SQL migrations with a directory on disk.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Key-Value store and task queue (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Cryptographic keys for identity signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// Language model provider
	LLM LLMConfig `envPrefix:"LLM_"`

	// OpenAI credentials, only read when LLM_PROVIDER=openai
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`

	// Gemini credentials, only read when LLM_PROVIDER=gemini
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// Per-page text volume used to size every section
	Budget BudgetConfig

	// Background generation worker
	Worker WorkerConfig `envPrefix:"WORKER_"`
}

// LLMConfig selects and tunes the text-generation backend.
type LLMConfig struct {
	Provider    string  `env:"PROVIDER"    envDefault:"openai"`
	Model       string  `env:"MODEL"       envDefault:"gpt-4o-mini"`
	Temperature float32 `env:"TEMPERATURE" envDefault:"0.7"`
}

// BudgetConfig holds the per-page character and word constants.
type BudgetConfig struct {
	CharsPerPage     int `env:"CHARS"      envDefault:"1500"`
	FullCharsPerPage int `env:"FULL_CHARS" envDefault:"2000"`
	WordsPerPage     int `env:"WORDS"      envDefault:"300"`
}

// WorkerConfig controls the queue consumer.
type WorkerConfig struct {
	// ConsumerName identifies this worker inside the Redis consumer group.
	ConsumerName string `env:"CONSUMER_NAME" envDefault:"worker-1"`
	MetricsPort  string `env:"METRICS_PORT"  envDefault:"9091"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks cross-field rules that struct tags cannot express.
func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("config: unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.Budget.CharsPerPage <= 0 || c.Budget.FullCharsPerPage <= 0 || c.Budget.WordsPerPage <= 0 {
		return fmt.Errorf("config: CHARS, FULL_CHARS and WORDS must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
