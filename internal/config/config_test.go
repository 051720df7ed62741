package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{"ADDR", "DB_PATH", "APP_PASSPHRASE", "GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		// t.Setenv registers the restore; the variable itself must be
		// absent for the default to apply.
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.Passphrase != "xiuxiu" {
		t.Fatalf("Passphrase = %q", cfg.Passphrase)
	}
	if cfg.APIKey != "" {
		t.Fatalf("APIKey = %q, want empty", cfg.APIKey)
	}
}

func TestAPIKeyPriority(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini")
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("API_KEY", "legacy")
	if got := apiKey(); got != "gemini" {
		t.Fatalf("apiKey = %q, want gemini", got)
	}

	t.Setenv("GEMINI_API_KEY", "")
	if got := apiKey(); got != "google" {
		t.Fatalf("apiKey = %q, want google", got)
	}

	t.Setenv("GOOGLE_API_KEY", " ")
	if got := apiKey(); got != "legacy" {
		t.Fatalf("apiKey = %q, want legacy", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Addr: ":8080", DBPath: "x.db", Passphrase: "p"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := *cfg
	bad.Passphrase = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("empty passphrase accepted")
	}
}
