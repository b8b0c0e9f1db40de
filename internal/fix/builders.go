// Package fix builds quick-fix actions for spelling diagnostics.
package fix

import (
	"fmt"

	"spelgud/internal/diagnose"
	"spelgud/internal/tokenize"
)

// Kind tells the client how to carry out an action.
type Kind uint8

const (
	// KindReplace rewrites the word's span.
	KindReplace Kind = iota + 1
	// KindAddToDictionary runs the addToDictionary command.
	KindAddToDictionary
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindReplace:
		return "replace"
	case KindAddToDictionary:
		return "addToDictionary"
	default:
		return "unknown"
	}
}

// Action is a client-independent quick fix.
type Action struct {
	Kind  Kind
	Title string
	// Span and NewText are set for KindReplace.
	Span    tokenize.WordSpan
	NewText string
	// Word is the word the action is about.
	Word        string
	IsPreferred bool
}

// Option mutates an action during construction.
type Option func(*Action)

// Preferred marks the action as the preferred suggestion.
func Preferred() Option {
	return func(a *Action) {
		a.IsPreferred = true
	}
}

// WithTitle overrides the generated title.
func WithTitle(title string) Option {
	return func(a *Action) {
		a.Title = title
	}
}

func applyOptions(a Action, opts []Option) Action {
	for _, opt := range opts {
		if opt != nil {
			opt(&a)
		}
	}
	return a
}

// Replace creates an action that replaces span with text.
func Replace(span tokenize.WordSpan, text string, opts ...Option) Action {
	a := Action{
		Kind:    KindReplace,
		Title:   fmt.Sprintf("Change %s to %s", span.Text, text),
		Span:    span,
		NewText: text,
		Word:    span.Text,
	}
	return applyOptions(a, opts)
}

// AddToDictionary creates an action that accepts word for the rest of the
// session and beyond.
func AddToDictionary(word string, opts ...Option) Action {
	a := Action{
		Kind:  KindAddToDictionary,
		Title: fmt.Sprintf("Add %s to dictionary", word),
		Word:  word,
	}
	return applyOptions(a, opts)
}

// ActionsFor returns one replacement per suggestion, in the checker's
// order, followed by a single dictionary action.
func ActionsFor(d diagnose.Diagnostic) []Action {
	actions := make([]Action, 0, len(d.Suggestions)+1)
	for i, s := range d.Suggestions {
		var opts []Option
		if i == 0 {
			opts = append(opts, Preferred())
		}
		actions = append(actions, Replace(d.Span, s, opts...))
	}
	return append(actions, AddToDictionary(d.Word()))
}
