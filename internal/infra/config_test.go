package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VIDEO_POLL_INTERVAL_SECONDS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.VideoPollInterval != 5*time.Second {
		t.Fatalf("VideoPollInterval = %s, want 5s", cfg.VideoPollInterval)
	}
	if cfg.GeminiImageModel != "gemini-2.5-flash-image" {
		t.Fatalf("GeminiImageModel = %q", cfg.GeminiImageModel)
	}
	if !cfg.Offline() {
		t.Fatalf("Offline() = false without GEMINI_API_KEY")
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigParsesOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("GEMINI_API_KEY", "k")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
	if cfg.Offline() {
		t.Fatalf("Offline() = true with GEMINI_API_KEY set")
	}
}

func TestLoadConfigRejectsInvalidBounds(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"VIDEO_POLL_INTERVAL_SECONDS", "0"},
		{"VIDEO_MAX_POLLS", "-1"},
		{"GATEWAY_CONCURRENCY", "0"},
		{"SESSION_TTL_MINUTES", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig accepted %s=%s", tc.key, tc.value)
			}
		})
	}
}
