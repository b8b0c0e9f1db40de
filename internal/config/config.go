// Package config loads .spelgud.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// FileName is the name searched for by Find.
const FileName = ".spelgud.toml"

// ErrUnknownKey is returned when the file contains keys Config does not know.
var ErrUnknownKey = errors.New("unknown configuration key")

// Config is the full server configuration.
type Config struct {
	Checker    CheckerConfig    `toml:"checker"`
	Dictionary DictionaryConfig `toml:"dictionary"`
	LSP        LSPConfig        `toml:"lsp"`
	Log        LogConfig        `toml:"log"`
}

// CheckerConfig selects the spell-checking engine.
type CheckerConfig struct {
	Backend  string        `toml:"backend" validate:"oneof=aspell hunspell static"`
	Command  string        `toml:"command"`
	Language string        `toml:"language" validate:"max=64"`
	Args     []string      `toml:"args"`
	Timeout  time.Duration `toml:"timeout" validate:"gte=0"`
}

// DictionaryConfig locates the user word list.
type DictionaryConfig struct {
	// Path defaults to the per-user config directory when empty.
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// LSPConfig tunes the language server.
type LSPConfig struct {
	Debounce      time.Duration `toml:"debounce" validate:"gte=0,lte=10s"`
	MinWordLength int           `toml:"min_word_length" validate:"gte=1,lte=64"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Checker: CheckerConfig{
			Backend:  "aspell",
			Language: "en_US",
		},
		Dictionary: DictionaryConfig{Watch: true},
		LSP:        LSPConfig{MinWordLength: 1},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: %w: %s", path, ErrUnknownKey, strings.Join(keys, ", "))
	}
	if cfg.Dictionary.Path != "" {
		cfg.Dictionary.Path = expandPath(cfg.Dictionary.Path, filepath.Dir(path))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find walks up from startDir to locate .spelgud.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve loads the explicit path if given, otherwise the nearest
// .spelgud.toml above startDir, otherwise the defaults.
func Resolve(explicit, startDir string) (Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their TOML names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// expandPath resolves "~/" and paths relative to the config file.
func expandPath(p, base string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if !filepath.IsAbs(p) {
		return filepath.Join(base, p)
	}
	return p
}
