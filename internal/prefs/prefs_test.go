package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_DefaultPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	f, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := filepath.Join(home, ".config", "snapwatch", "prefs.toml")
	if f.Path() != want {
		t.Fatalf("Path() = %q, want %q", f.Path(), want)
	}
	if got := f.Load(); got.Theme != "" {
		t.Fatalf("Theme = %q, want empty for missing file", got.Theme)
	}
}

func TestSaveThemeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := f.SaveTheme("Slate"); err != nil {
		t.Fatalf("SaveTheme: %v", err)
	}
	if got := f.Load().Theme; got != "Slate" {
		t.Fatalf("Theme = %q, want %q", got, "Slate")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestLoad_BrokenFileIsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid toml", "not valid toml {{{\n"},
		{"blank theme", "theme = \"  \"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			f, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if got := f.Load().Theme; got != "" {
				t.Fatalf("Theme = %q, want empty", got)
			}
		})
	}
}
