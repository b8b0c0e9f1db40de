package checker

import (
	"fmt"
	"strings"
)

// Dialect describes how to start a backend and read its replies.
type Dialect interface {
	Name() string
	// Command is the default executable name.
	Command() string
	// Args returns the arguments that put the backend into pipe mode.
	Args(language string) []string
	// ParseReply interprets one reply line.
	ParseReply(line string) (Verdict, error)
}

// DialectFor returns the dialect for a backend name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case BackendAspell:
		return aspell{}, nil
	case BackendHunspell:
		return hunspell{}, nil
	default:
		return nil, fmt.Errorf("unknown checker backend %q (expected: aspell|hunspell|static)", name)
	}
}

type aspell struct{}

func (aspell) Name() string    { return BackendAspell }
func (aspell) Command() string { return "aspell" }

func (aspell) Args(language string) []string {
	args := []string{"-a", "--encoding=utf-8"}
	if language != "" {
		args = append(args, "--lang="+language)
	}
	return args
}

func (aspell) ParseReply(line string) (Verdict, error) {
	return parseReply(line, false)
}

type hunspell struct{}

func (hunspell) Name() string    { return BackendHunspell }
func (hunspell) Command() string { return "hunspell" }

func (hunspell) Args(language string) []string {
	args := []string{"-a", "-i", "utf-8"}
	if language != "" {
		args = append(args, "-d", language)
	}
	return args
}

// hunspell also answers "?" for guesses, which carry suggestions like "&".
func (hunspell) ParseReply(line string) (Verdict, error) {
	return parseReply(line, true)
}

// parseReply understands the ispell pipe protocol:
//
//	*                      correct
//	+ ROOT                 correct via affix rules
//	-                      correct as a compound
//	& orig N off: a, b     unknown with suggestions
//	# orig off             unknown without suggestions
func parseReply(line string, guesses bool) (Verdict, error) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return Verdict{}, fmt.Errorf("%w: empty line", ErrMalformedReply)
	}
	switch line[0] {
	case '*', '+', '-':
		return Verdict{Correct: true}, nil
	case '#':
		if len(strings.Fields(line)) < 2 {
			break
		}
		return Verdict{}, nil
	case '&':
		return parseSuggestions(line)
	case '?':
		if guesses {
			return parseSuggestions(line)
		}
	}
	return Verdict{}, fmt.Errorf("%w: %q", ErrMalformedReply, line)
}

func parseSuggestions(line string) (Verdict, error) {
	head, list, ok := strings.Cut(line, ": ")
	if !ok || len(strings.Fields(head)) < 4 {
		return Verdict{}, fmt.Errorf("%w: %q", ErrMalformedReply, line)
	}
	var suggestions []string
	for s := range strings.SplitSeq(list, ", ") {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	return Verdict{Suggestions: suggestions}, nil
}
