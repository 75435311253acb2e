package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("ADMIN_KEY", "sesame")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}

		if cfg.Port != "8080" {
			t.Errorf("expected port 8080, got %s", cfg.Port)
		}
		if cfg.MaxUploadSize != 15<<20 {
			t.Errorf("expected 15MB upload limit, got %d", cfg.MaxUploadSize)
		}
		if cfg.AdminSessionTTL != 12*time.Hour {
			t.Errorf("expected 12h session, got %s", cfg.AdminSessionTTL)
		}
		if cfg.JWTSecret != "sesame" {
			t.Errorf("expected JWT secret to fall back to admin key, got %q", cfg.JWTSecret)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("Environment", func(t *testing.T) {
		t.Setenv("ADMIN_KEY", "sesame")
		t.Setenv("JWT_SECRET", "other")
		t.Setenv("PORT", "9000")
		t.Setenv("ENABLE_CORS", "true")
		t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
		t.Setenv("ADMIN_SESSION_TTL", "30m")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}

		if cfg.Port != "9000" {
			t.Errorf("expected port 9000, got %s", cfg.Port)
		}
		if !cfg.EnableCORS {
			t.Error("expected CORS to be enabled")
		}
		if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
			t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
		}
		if cfg.JWTSecret != "other" {
			t.Errorf("expected JWT secret 'other', got %q", cfg.JWTSecret)
		}
		if cfg.AdminSessionTTL != 30*time.Minute {
			t.Errorf("expected 30m session, got %s", cfg.AdminSessionTTL)
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := &Config{MaxUploadSize: 1, AdminSessionTTL: time.Hour, DiscordBotToken: "token", ResendAPIKey: "re_key"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	for _, want := range []string{"ADMIN_KEY", "DISCORD_NOTIFICATIONS_CHANNEL_ID", "EMAIL_FROM"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}
