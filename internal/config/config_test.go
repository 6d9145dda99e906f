package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envAPIBind, envListen, envDBPath, envLogLevel, envLogFile, envTheme, envStaticURL} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != defaultAPIBind {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, defaultAPIBind)
	}
	if cfg.LogLevel != "info" || cfg.Theme != defaultTheme {
		t.Fatalf("LogLevel/Theme = %q/%q, want info/%s", cfg.LogLevel, cfg.Theme, defaultTheme)
	}
	if cfg.StaticURL != "" {
		t.Fatalf("StaticURL = %q, want empty by default", cfg.StaticURL)
	}
	wantDB := filepath.Join(home, ".local/share/snapwatch/snapshots.db")
	if cfg.DBPath != wantDB {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, wantDB)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_bind = "  10.0.0.5:9999  "
db_path = "  ~/data/snap.db  "
log_level = "DEBUG"
theme = "Slate"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != "10.0.0.5:9999" {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, "10.0.0.5:9999")
	}
	if cfg.DBPath != filepath.Join(home, "data/snap.db") {
		t.Fatalf("DBPath = %q, want it under HOME %q", cfg.DBPath, home)
	}
	if cfg.LogLevel != "debug" || cfg.Theme != "Slate" {
		t.Fatalf("LogLevel/Theme = %q/%q, want debug/Slate", cfg.LogLevel, cfg.Theme)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envAPIBind, "192.168.1.2:80")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_bind = "10.0.0.5:9999"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != "192.168.1.2:80" {
		t.Fatalf("APIBind = %q, want env override", cfg.APIBind)
	}
}

func TestLoad_StaticURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`static_url = " https://static.example.com "`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StaticURL != "https://static.example.com" {
		t.Fatalf("StaticURL = %q, want file value", cfg.StaticURL)
	}

	t.Setenv(envStaticURL, "https://cdn.example.com")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StaticURL != "https://cdn.example.com" {
		t.Fatalf("StaticURL = %q, want env override", cfg.StaticURL)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_bind = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidLogLevelFails(t *testing.T) {
	clearEnv(t)
	t.Setenv(envLogLevel, "verbose")
	if _, err := Load(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Fatalf("Load returned nil error for log_level verbose")
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestSlogLevel(t *testing.T) {
	for level, want := range map[string]string{
		"debug": "DEBUG",
		"info":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
		"":      "INFO",
	} {
		if got := (Config{LogLevel: level}).SlogLevel().String(); got != want {
			t.Fatalf("SlogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}
