package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spelgud/internal/checker"
	"spelgud/internal/diagnose"
	"spelgud/internal/observ"
	"spelgud/internal/report"
	"spelgud/internal/trace"
	"spelgud/internal/ui"
)

var (
	// errMisspellings signals exit status 1 after a clean report.
	errMisspellings = errors.New("misspellings found")
	// errIncomplete signals that some files could not be fully checked.
	errIncomplete = errors.New("check incomplete")
)

var checkCmd = &cobra.Command{
	Use:          "check [flags] <file|->...",
	Short:        "Check the spelling of files",
	Long:         `Check the spelling of files and report every unknown word. Use - to read standard input.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|msgpack)")
	checkCmd.Flags().Int("jobs", 0, "max files checked in parallel (0=auto)")
	checkCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	checkCmd.Flags().String("color", "auto", "colorize output (auto|on|off)")
	checkCmd.Flags().Int("max-suggestions", 5, "suggestions shown per word in pretty output (0=all)")
	checkCmd.Flags().Bool("timings", false, "print phase timings to stderr")
}

type checkOptions struct {
	format         report.Format
	jobs           int
	ui             uiMode
	color          uiMode
	maxSuggestions int
	timings        bool
}

func readCheckOptions(cmd *cobra.Command) (checkOptions, error) {
	var opts checkOptions
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.format, err = report.ParseFormat(formatStr); err != nil {
		return opts, err
	}
	if opts.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return opts, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if opts.jobs < 0 {
		return opts, fmt.Errorf("--jobs must not be negative")
	}
	if opts.jobs == 0 {
		opts.jobs = runtime.GOMAXPROCS(0)
	}
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return opts, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if opts.ui, err = readUIMode("ui", uiStr); err != nil {
		return opts, err
	}
	colorStr, err := cmd.Flags().GetString("color")
	if err != nil {
		return opts, fmt.Errorf("failed to get color flag: %w", err)
	}
	if opts.color, err = readUIMode("color", colorStr); err != nil {
		return opts, err
	}
	if opts.maxSuggestions, err = cmd.Flags().GetInt("max-suggestions"); err != nil {
		return opts, fmt.Errorf("failed to get max-suggestions flag: %w", err)
	}
	if opts.timings, err = cmd.Flags().GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	return opts, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, err := readCheckOptions(cmd)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	phase := timer.Begin("setup")
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	timer.End(phase, sess.checker.Name())

	engine := diagnose.NewEngine(nil, sess.dict, sess.checker, sess.logger)
	engine.SetOptions(sess.engineOptions())

	// the progress view only makes sense for pretty output on a terminal
	useUI := opts.format == report.FormatPretty && opts.ui.enabledFor(os.Stdout) && !hasStdin(args)

	var files []report.File
	phase = timer.Begin("check")
	if useUI {
		files, err = runCheckWithUI(cmd.Context(), "checking spelling", args, func(ctx context.Context, sink progressSink) ([]report.File, error) {
			return checkFiles(ctx, engine, cmd.InOrStdin(), args, opts.jobs, sink)
		})
	} else {
		files, err = checkFiles(cmd.Context(), engine, cmd.InOrStdin(), args, opts.jobs, nil)
	}
	if err != nil {
		return err
	}
	timer.End(phase, fmt.Sprintf("%d files", len(files)))

	phase = timer.Begin("report")
	out := cmd.OutOrStdout()
	colorOn := opts.color.enabledFor(os.Stdout)
	if err := report.Write(out, files, opts.format, report.Options{Color: colorOn, MaxSuggestions: opts.maxSuggestions}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	timer.End(phase, string(opts.format))
	if opts.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
		if st, err := checker.ReadStats(cmd.Context(), sess.metrics); err == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), st)
		}
	}
	return checkOutcome(files)
}

// progressSink receives per-file progress; nil discards it.
type progressSink func(ui.Event)

// checkFiles checks paths with at most jobs files in flight. Results keep the
// order of paths. A file that cannot be read is reported, not fatal.
func checkFiles(ctx context.Context, engine *diagnose.Engine, stdin io.Reader, paths []string, jobs int, sink progressSink) ([]report.File, error) {
	emit := func(ev ui.Event) {
		if sink != nil {
			sink(ev)
		}
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeSession, "check", trace.CurrentSpan(ctx)).
		WithExtra("files", strconv.Itoa(len(paths)))
	ctx = trace.WithSpan(ctx, span)
	defer span.End("")

	files := make([]report.File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emit(ui.Event{File: path, Status: ui.StatusChecking})
			text, err := readInput(stdin, path)
			if err != nil {
				files[i] = report.File{Path: path, Err: err}
				emit(ui.Event{File: path, Status: ui.StatusError})
				return nil
			}
			res := engine.Analyze(gctx, text)
			res.ID = path
			files[i] = report.File{Path: path, Text: text, Result: res}
			emit(ui.Event{File: path, Status: ui.StatusDone, Misspellings: len(res.Diagnostics)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func hasStdin(paths []string) bool {
	for _, p := range paths {
		if p == "-" {
			return true
		}
	}
	return false
}

// checkOutcome maps results to the command error: unreadable files and
// backend failures win over misspellings.
func checkOutcome(files []report.File) error {
	for _, f := range files {
		if f.Err != nil {
			return fmt.Errorf("%w: %s: %w", errIncomplete, f.Path, f.Err)
		}
		if f.Result.Warning != nil {
			return fmt.Errorf("%w: %s: %w", errIncomplete, f.Path, f.Result.Warning)
		}
	}
	if report.Misspellings(files) > 0 {
		return errMisspellings
	}
	return nil
}
