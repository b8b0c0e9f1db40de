package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, `
[checker]
backend = "hunspell"
language = "en_GB"
args = ["--mode=none"]
timeout = "2s"

[dictionary]
path = "words.txt"
watch = false

[lsp]
debounce = "150ms"
min_word_length = 3

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Checker.Backend != "hunspell" || cfg.Checker.Language != "en_GB" {
		t.Fatalf("unexpected checker config %+v", cfg.Checker)
	}
	if len(cfg.Checker.Args) != 1 || cfg.Checker.Timeout != 2*time.Second {
		t.Fatalf("unexpected checker config %+v", cfg.Checker)
	}
	if cfg.Dictionary.Path != filepath.Join(dir, "words.txt") || cfg.Dictionary.Watch {
		t.Fatalf("unexpected dictionary config %+v", cfg.Dictionary)
	}
	if cfg.LSP.Debounce != 150*time.Millisecond || cfg.LSP.MinWordLength != 3 {
		t.Fatalf("unexpected lsp config %+v", cfg.LSP)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "[checker]\nlanguage = \"fr\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Checker.Backend != "aspell" || !cfg.Dictionary.Watch || cfg.LSP.MinWordLength != 1 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "[checker]\nbackend = \"ispell\"\n[lsp]\nmin_word_length = 0\n")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "checker.backend") || !strings.Contains(msg, "lsp.min_word_length") {
		t.Fatalf("error does not name the fields: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "[checker]\nbackend = \"aspell\"\nspeed = 3\n")
	_, err := Load(path)
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "[checker\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("Find: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	cfg, path, err := Resolve("", dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// a config above the temp dir would be picked up; only check consistency
	if path == "" && cfg.Checker.Backend != "aspell" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	explicit := writeFile(t, dir, "[log]\nlevel = \"warn\"\n")
	cfg, path, err = Resolve(explicit, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != explicit || cfg.Log.Level != "warn" {
		t.Fatalf("unexpected result %s %+v", path, cfg)
	}
}
