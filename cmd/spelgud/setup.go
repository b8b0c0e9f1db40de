package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"spelgud/internal/checker"
	"spelgud/internal/config"
	"spelgud/internal/diagnose"
	"spelgud/internal/dictionary"
	"spelgud/internal/logging"
	"spelgud/internal/prof"
	"spelgud/internal/trace"
)

// session bundles the collaborators every command builds from flags and
// configuration.
type session struct {
	cfg     config.Config
	cfgPath string
	logger  *slog.Logger
	dict    *dictionary.Store
	checker checker.Checker
	metrics *sdkmetric.ManualReader
	cleanup []func()
}

func (s *session) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func (s *session) engineOptions() diagnose.Options {
	return diagnose.Options{MinWordLength: s.cfg.LSP.MinWordLength}
}

// loadConfig resolves the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	flags := cmd.Root().PersistentFlags()
	explicit, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get config flag: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, path, err := config.Resolve(explicit, wd)
	if err != nil {
		return config.Config{}, "", err
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"checker", &cfg.Checker.Backend},
		{"checker-cmd", &cfg.Checker.Command},
		{"lang", &cfg.Checker.Language},
		{"dict", &cfg.Dictionary.Path},
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
	}
	for _, o := range overrides {
		v, err := flags.GetString(o.flag)
		if err != nil {
			return config.Config{}, "", fmt.Errorf("failed to get %s flag: %w", o.flag, err)
		}
		if v != "" {
			*o.dst = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, path, nil
}

// newSession builds logging, tracing, the dictionary and the checker. The
// caller must Close the session.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, cfgPath: path, logger: logger}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return nil, err
	}
	s.cleanup = append(s.cleanup, func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("profiling failed", "error", err)
		}
	})

	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cleanup = append(s.cleanup, cleanupTrace)

	dictPath := cfg.Dictionary.Path
	if dictPath == "" {
		if dictPath, err = dictionary.DefaultPath(); err != nil {
			logger.Warn("personal dictionary disabled", "error", err)
		}
	}
	s.dict = dictionary.New(dictPath)
	if err := s.dict.Load(); err != nil {
		logger.Warn("failed to load personal dictionary", "path", dictPath, "error", err)
	}

	s.metrics = sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(s.metrics))
	s.cleanup = append(s.cleanup, func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Debug("meter provider shutdown failed", "error", err)
		}
	})

	c, err := checker.New(checker.Config{
		Backend:       cfg.Checker.Backend,
		Command:       cfg.Checker.Command,
		Language:      cfg.Checker.Language,
		Args:          cfg.Checker.Args,
		Timeout:       cfg.Checker.Timeout,
		Logger:        logger,
		MeterProvider: provider,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.checker = c
	s.cleanup = append(s.cleanup, func() {
		if err := c.Close(); err != nil {
			logger.Debug("checker close failed", "error", err)
		}
	})

	logger.Debug("session ready",
		"config", valueOrNone(path),
		"checker", c.Name(),
		"language", cfg.Checker.Language,
		"dictionary", valueOrNone(dictPath),
	)
	return s, nil
}

// setupTracing inspects trace-related flags and attaches a tracer to the
// command context. It returns a cleanup function.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// an output without an explicit level traces documents
	if level == trace.LevelOff && traceOutput != "" && !root.PersistentFlags().Changed("trace-level") {
		level = trace.LevelDocument
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	tracer, err := trace.New(trace.Config{Level: level, OutputPath: traceOutput})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	return func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// setupProfiling starts the profilers named by the persistent flags.
func setupProfiling(cmd *cobra.Command) (func() error, error) {
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"cpu-profile", &opts.CPUPath},
		{"mem-profile", &opts.MemPath},
		{"runtime-trace", &opts.TracePath},
	} {
		v, err := flags.GetString(f.name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", f.name, err)
		}
		*f.dst = v
	}
	stop, err := prof.Start(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start profiling: %w", err)
	}
	return stop, nil
}

func valueOrNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
