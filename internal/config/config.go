package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is shared by the snapwatch client and the snapwatchd service.
type Config struct {
	APIBind  string // where the client reaches the API
	Listen   string // where snapwatchd listens
	DBPath   string
	LogLevel string
	LogFile  string // client log file; the TUI owns the terminal
	Theme    string
	// StaticURL is the host serving archived pages and screenshots. Empty
	// hides the links in the detail view.
	StaticURL string
}

const (
	defaultConfigPath = "~/.config/snapwatch/config.toml"
	defaultDataDir    = "~/.local/share/snapwatch"
	defaultAPIBind    = "127.0.0.1:7488"
	defaultListen     = "127.0.0.1:7488"
	defaultLogLevel   = "info"
	defaultTheme      = "Nightfox"
)

// Environment overrides, applied after the file. A .env file in the working
// directory is read first and never overrides variables already set.
const (
	envAPIBind   = "SNAPWATCH_API_BIND"
	envListen    = "SNAPWATCH_LISTEN"
	envDBPath    = "SNAPWATCH_DB_PATH"
	envLogLevel  = "SNAPWATCH_LOG_LEVEL"
	envLogFile   = "SNAPWATCH_LOG_FILE"
	envTheme     = "SNAPWATCH_THEME"
	envStaticURL = "SNAPWATCH_STATIC_URL"
)

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw struct {
		APIBind   string `toml:"api_bind"`
		Listen    string `toml:"listen"`
		DBPath    string `toml:"db_path"`
		LogLevel  string `toml:"log_level"`
		LogFile   string `toml:"log_file"`
		Theme     string `toml:"theme"`
		StaticURL string `toml:"static_url"`
	}

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := Config{
		APIBind:   pick(envAPIBind, raw.APIBind, defaultAPIBind),
		Listen:    pick(envListen, raw.Listen, defaultListen),
		DBPath:    pick(envDBPath, raw.DBPath, defaultDataDir+"/snapshots.db"),
		LogLevel:  strings.ToLower(pick(envLogLevel, raw.LogLevel, defaultLogLevel)),
		LogFile:   pick(envLogFile, raw.LogFile, defaultDataDir+"/snapwatch.log"),
		Theme:     pick(envTheme, raw.Theme, defaultTheme),
		StaticURL: pick(envStaticURL, raw.StaticURL, ""),
	}
	cfg.DBPath = mustExpand(cfg.DBPath)
	cfg.LogFile = mustExpand(cfg.LogFile)

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return cfg, nil
}

// pick returns the first non-blank of the environment variable, the file
// value and the default.
func pick(env, fileValue, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		return v
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
