// Package prefs persists choices made inside the snapwatch UI, kept apart
// from the hand-edited config file.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultPrefsPath = "~/.config/snapwatch/prefs.toml"

// Prefs holds user preferences. Empty fields are unset.
type Prefs struct {
	Theme string `toml:"theme,omitempty"`
}

// File is a preferences file on disk.
type File struct {
	path string
}

// Open resolves path, or the default location when path is blank. The file
// need not exist yet.
func Open(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve prefs path: %w", err)
	}
	return &File{path: resolved}, nil
}

// Path returns the resolved file path.
func (f *File) Path() string { return f.path }

// Load reads the file. A missing or unreadable file yields empty Prefs; a
// broken prefs file never stops the UI from starting.
func (f *File) Load() Prefs {
	var p Prefs
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Prefs{}
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Prefs{}
	}
	p.Theme = strings.TrimSpace(p.Theme)
	return p
}

// SaveTheme records the chosen theme, keeping any other stored values.
func (f *File) SaveTheme(name string) error {
	p := f.Load()
	p.Theme = name
	return f.save(p)
}

func (f *File) save(p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
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
