// Package diagnose turns document text into spelling diagnostics.
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"unicode/utf8"

	"spelgud/internal/checker"
	"spelgud/internal/dictionary"
	"spelgud/internal/docstore"
	"spelgud/internal/tokenize"
	"spelgud/internal/trace"
)

// Diagnostic marks one misspelled word occurrence.
type Diagnostic struct {
	Span        tokenize.WordSpan
	Suggestions []string
}

// Word returns the misspelled text.
func (d Diagnostic) Word() string {
	return d.Span.Text
}

// Result is the outcome of one run over a document.
type Result struct {
	ID            string
	Version       int
	ClientVersion int
	Diagnostics   []Diagnostic
	// Warning is set when the run could not consult the checker for every
	// word. The diagnostics are still valid but may be incomplete.
	Warning error
	// Words is the number of word occurrences in the document.
	Words int
	// Checked counts distinct words sent to the checker.
	Checked int
	// Skipped counts distinct words accepted by the dictionary or left
	// unchecked after a backend failure.
	Skipped int
}

// Engine runs the tokenizer, dictionary and checker over documents.
type Engine struct {
	docs    *docstore.Store
	dict    *dictionary.Store
	checker checker.Checker
	logger  *slog.Logger

	mu   sync.RWMutex
	opts Options
}

// Options tunes which words are sent to the checker.
type Options struct {
	// MinWordLength is the shortest word, in runes, that is checked. Shorter
	// words are tokenized and counted but never flagged. Values below 1 are
	// treated as 1.
	MinWordLength int
}

// DefaultOptions checks every word.
func DefaultOptions() Options {
	return Options{MinWordLength: 1}
}

// NewEngine wires an engine. docs may be nil when only Analyze is used.
func NewEngine(docs *docstore.Store, dict *dictionary.Store, c checker.Checker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if dict == nil {
		dict = dictionary.New("")
	}
	return &Engine{
		docs:    docs,
		dict:    dict,
		checker: c,
		logger:  logger,
		opts:    DefaultOptions(),
	}
}

// SetOptions replaces the options for later runs.
func (e *Engine) SetOptions(opts Options) {
	opts.MinWordLength = max(opts.MinWordLength, 1)
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
}

// Options returns the options in effect.
func (e *Engine) Options() Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts
}

// Run checks the current text of document id. The only error it returns is
// docstore.ErrUnknownDocument; checker trouble is reported through
// Result.Warning.
func (e *Engine) Run(ctx context.Context, id string) (Result, error) {
	if e.docs == nil {
		return Result{}, fmt.Errorf("run %s: %w", id, docstore.ErrUnknownDocument)
	}
	snap, err := e.docs.Get(id)
	if err != nil {
		return Result{}, err
	}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDocument, "run", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	res := e.Analyze(ctx, snap.Text)
	res.ID = snap.ID
	res.Version = snap.Version
	res.ClientVersion = snap.ClientVersion

	detail := "ok"
	if res.Warning != nil {
		detail = res.Warning.Error()
	}
	span.WithExtra("version", strconv.Itoa(res.Version)).
		WithExtra("words", strconv.Itoa(res.Words)).
		WithExtra("diagnostics", strconv.Itoa(len(res.Diagnostics))).
		End(detail)
	return res, nil
}

// Analyze checks text without touching the document store.
func (e *Engine) Analyze(ctx context.Context, text string) Result {
	var res Result
	verdicts := make(map[string]checker.Verdict)
	var failed error

	minLen := e.Options().MinWordLength
	for word := range tokenize.Words(text) {
		res.Words++
		if utf8.RuneCountInString(word.Text) < minLen {
			continue
		}
		key := dictionary.Key(word.Text)
		v, seen := verdicts[key]
		if !seen {
			v, failed = e.verdict(ctx, key, failed, &res)
			verdicts[key] = v
		}
		if v.Correct {
			continue
		}
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Span:        word,
			Suggestions: v.Suggestions,
		})
	}
	res.Warning = failed
	return res
}

// verdict resolves one distinct word. Once the checker has failed for a run,
// remaining words are treated as correct without asking it again.
func (e *Engine) verdict(ctx context.Context, key string, failed error, res *Result) (checker.Verdict, error) {
	if e.dict.Contains(key) || failed != nil || e.checker == nil {
		res.Skipped++
		return checker.Verdict{Correct: true}, failed
	}
	res.Checked++
	v, err := e.checker.Check(ctx, key)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, checker.ErrMalformedReply):
		e.logger.Debug("ignoring malformed checker reply", "word", key, "error", err)
		return checker.Verdict{Correct: true}, nil
	default:
		e.logger.Warn("spell check interrupted", "error", err)
		return checker.Verdict{Correct: true}, err
	}
}
