package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"spelgud/internal/diagnose"
)

type palette struct {
	path    *color.Color
	word    *color.Color
	caret   *color.Color
	hint    *color.Color
	warning *color.Color
	errc    *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		path:    mk(color.Bold),
		word:    mk(color.FgRed, color.Bold),
		caret:   mk(color.FgRed),
		hint:    mk(color.FgGreen),
		warning: mk(color.FgYellow, color.Bold),
		errc:    mk(color.FgRed, color.Bold),
	}
}

// Pretty prints each misspelling as
//
//	path:line:col: unknown word "Helo" (did you mean: Hello, Help)
//	  Helo world
//	  ^~~~
//
// followed by a summary line.
func Pretty(w io.Writer, files []File, opts Options) error {
	p := newPalette(opts.Color)
	total := 0
	for _, f := range files {
		if f.Err != nil {
			if _, err := fmt.Fprintf(w, "%s: %s %v\n", p.path.Sprint(f.Path), p.errc.Sprint("error:"), f.Err); err != nil {
				return err
			}
			continue
		}
		for _, d := range f.Result.Diagnostics {
			if err := prettyDiagnostic(w, p, f, d, opts.MaxSuggestions); err != nil {
				return err
			}
			total++
		}
		if f.Result.Warning != nil {
			if _, err := fmt.Fprintf(w, "%s: %s %v\n", p.path.Sprint(f.Path), p.warning.Sprint("warning:"), f.Result.Warning); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d misspelling%s in %d file%s\n", total, plural(total), len(files), plural(len(files)))
	return err
}

func prettyDiagnostic(w io.Writer, p palette, f File, d diagnose.Diagnostic, maxSuggestions int) error {
	line, lineStart := lineAt(f.Text, d.Span.StartOffset)
	col := utf8.RuneCountInString(f.Text[lineStart:d.Span.StartOffset]) + 1

	var b strings.Builder
	fmt.Fprintf(&b, "%s: unknown word %s", p.path.Sprintf("%s:%d:%d", f.Path, d.Span.Start.Line+1, col), p.word.Sprintf("%q", d.Word()))
	if sugg := limit(d.Suggestions, maxSuggestions); len(sugg) > 0 {
		fmt.Fprintf(&b, " (did you mean: %s)", p.hint.Sprint(strings.Join(sugg, ", ")))
	}
	b.WriteByte('\n')

	if line != "" {
		pad := runewidth.StringWidth(expandTabs(f.Text[lineStart:d.Span.StartOffset]))
		width := max(runewidth.StringWidth(d.Word()), 1)
		b.WriteString("  ")
		b.WriteString(expandTabs(line))
		b.WriteString("\n  ")
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(p.caret.Sprint("^" + strings.Repeat("~", width-1)))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// lineAt returns the line containing offset, without its terminator, and the
// byte offset where it starts.
func lineAt(text string, offset int) (string, int) {
	start := strings.LastIndexAny(text[:offset], "\r\n") + 1
	end := strings.IndexAny(text[offset:], "\r\n")
	if end < 0 {
		end = len(text)
	} else {
		end += offset
	}
	return text[start:end], start
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

func limit(items []string, n int) []string {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
