package config

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestLoadRequiresMasterKey(t *testing.T) {
	t.Setenv("ACCOUNT_AES_KEY", "")
	if _, err := Load(context.Background()); err == nil {
		t.Fatal("expected error when the master key is missing")
	}
}

func TestLoadRejectsShortMasterKey(t *testing.T) {
	t.Setenv("ACCOUNT_AES_KEY", "aabbcc")
	_, err := Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("expected key length error, got %v", err)
	}
}

func TestLoadRejectsMalformedMasterKey(t *testing.T) {
	t.Setenv("ACCOUNT_AES_KEY", strings.Repeat("zz", 32))
	if _, err := Load(context.Background()); err == nil {
		t.Fatal("expected error for non-hex key")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACCOUNT_AES_KEY", testKeyHex)
	t.Setenv("ACCOUNT_DB_DRIVER", "sqlite")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default addr %q", cfg.HTTPAddr)
	}
	if len(cfg.MasterKey) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(cfg.MasterKey))
	}
	if len(cfg.ClientCredentials) == 0 {
		t.Fatal("expected built-in client credentials")
	}
	if cfg.NASCRateLimitRPM <= 0 || cfg.APIRateLimitRPM <= 0 {
		t.Fatal("expected positive default rate limits")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("ACCOUNT_AES_KEY", testKeyHex)
	t.Setenv("ACCOUNT_DB_DRIVER", "oracle")
	t.Setenv("ACCOUNT_DB_DSN", "whatever")
	if _, err := Load(context.Background()); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLogLevelMapping(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for name, want := range cases {
		cfg := &Config{LogLevelName: name}
		if got := cfg.LogLevel(); got != want {
			t.Fatalf("LogLevel(%q)=%v want %v", name, got, want)
		}
	}
}
