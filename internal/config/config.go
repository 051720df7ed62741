// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Addr       string
	DBPath     string
	APIKey     string
	Passphrase string

	// Model overrides. Empty selects each client's default.
	AnalysisModel string
	MentorModel   string
	LiveModel     string
	LiveVoice     string
}

// Load reads configuration from a .env file (if present) and the
// environment. Environment variables win over .env values.
func Load() (*Config, error) {
	// Missing .env is fine; godotenv never overrides existing env vars.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          getEnv("ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "./data/salesbrain.db"),
		APIKey:        apiKey(),
		Passphrase:    getEnv("APP_PASSPHRASE", "xiuxiu"),
		AnalysisModel: getEnv("ANALYSIS_MODEL", ""),
		MentorModel:   getEnv("MENTOR_MODEL", ""),
		LiveModel:     getEnv("LIVE_MODEL", ""),
		LiveVoice:     getEnv("LIVE_VOICE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set. A missing
// API key is allowed here; it surfaces as missing_credential when a model
// call is attempted.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Passphrase == "" {
		return fmt.Errorf("APP_PASSPHRASE cannot be empty")
	}
	return nil
}

// apiKey resolves the model credential. GEMINI_API_KEY wins, then the two
// legacy names.
func apiKey() string {
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
