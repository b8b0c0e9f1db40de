// Package checker talks to an external spell-checking engine.
//
// The engines supported here (aspell and hunspell) are driven in ispell pipe
// mode: one long-lived child process receives a word per line and answers with
// a verdict line followed by a blank line.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrBackendUnavailable means the engine could not be started, died, or
	// stopped answering. The next Check starts a fresh process.
	ErrBackendUnavailable = errors.New("spell checker unavailable")
	// ErrMalformedReply means the engine answered with a line that could not
	// be parsed.
	ErrMalformedReply = errors.New("malformed spell checker reply")
)

// Verdict is the engine's answer for one word.
type Verdict struct {
	Correct     bool
	Suggestions []string
}

// Checker checks single words.
type Checker interface {
	// Check returns the verdict for word. Calls are serialised internally.
	Check(ctx context.Context, word string) (Verdict, error)
	// Name identifies the backend, e.g. "aspell".
	Name() string
	// Close stops the backend. Check fails after Close.
	Close() error
}

// Backend names accepted by New.
const (
	BackendAspell   = "aspell"
	BackendHunspell = "hunspell"
	BackendStatic   = "static"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Command  string   // executable override; defaults to the backend name
	Language string   // dictionary language, e.g. "en_US"
	Args     []string // extra arguments appended after the pipe-mode flags
	Env      []string // extra environment entries
	// Timeout bounds a single request. Zero means no limit.
	Timeout time.Duration
	Logger  *slog.Logger
	// MeterProvider receives the checker metrics. Nil uses the global
	// provider.
	MeterProvider metric.MeterProvider
}

// New builds the checker named by cfg.Backend. An empty backend selects
// aspell. No process is started until the first Check.
func New(cfg Config) (Checker, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendAspell
	}
	if cfg.Backend == BackendStatic {
		return NewStatic(nil), nil
	}
	dialect, err := DialectFor(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return NewPipe(dialect, cfg), nil
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBackendUnavailable, fmt.Sprintf(format, args...))
}
