// Package report renders batch check results for the command line.
package report

import (
	"fmt"
	"io"
	"strings"

	"spelgud/internal/diagnose"
)

// Format selects an output encoding.
type Format string

const (
	FormatPretty  Format = "pretty"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPretty:
		return FormatPretty, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected pretty|json|msgpack)", s)
	}
}

// File is the outcome of checking one file.
type File struct {
	Path   string
	Text   string
	Result diagnose.Result
	// Err is set when the file could not be read.
	Err error
}

// Options tunes pretty output.
type Options struct {
	Color bool
	// MaxSuggestions caps the suggestions listed per word; 0 lists all.
	MaxSuggestions int
}

// Misspellings counts diagnostics across files.
func Misspellings(files []File) int {
	n := 0
	for _, f := range files {
		n += len(f.Result.Diagnostics)
	}
	return n
}

// Write renders files to w in the requested format.
func Write(w io.Writer, files []File, format Format, opts Options) error {
	switch format {
	case FormatPretty:
		return Pretty(w, files, opts)
	case FormatJSON:
		return JSON(w, files)
	case FormatMsgpack:
		return Msgpack(w, files)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
