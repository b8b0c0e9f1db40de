package report

import (
	"encoding/json"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"spelgud/internal/diagnose"
	"spelgud/internal/tokenize"
)

// LocationJSON locates a word inside a file. Lines and characters are
// zero-based, characters count UTF-16 code units.
type LocationJSON struct {
	StartByte    uint32 `json:"start_byte" msgpack:"start_byte"`
	EndByte      uint32 `json:"end_byte" msgpack:"end_byte"`
	Line         uint32 `json:"line" msgpack:"line"`
	Character    uint32 `json:"character" msgpack:"character"`
	EndLine      uint32 `json:"end_line" msgpack:"end_line"`
	EndCharacter uint32 `json:"end_character" msgpack:"end_character"`
}

// DiagnosticJSON is one misspelling.
type DiagnosticJSON struct {
	Word        string       `json:"word" msgpack:"word"`
	Suggestions []string     `json:"suggestions" msgpack:"suggestions"`
	Location    LocationJSON `json:"location" msgpack:"location"`
}

// FileJSON is the result for a single file.
type FileJSON struct {
	Path        string           `json:"path" msgpack:"path"`
	Words       int              `json:"words" msgpack:"words"`
	Diagnostics []DiagnosticJSON `json:"diagnostics" msgpack:"diagnostics"`
	Warning     string           `json:"warning,omitempty" msgpack:"warning,omitempty"`
	Error       string           `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Output is the root of machine-readable output.
type Output struct {
	Files []FileJSON `json:"files" msgpack:"files"`
	Count int        `json:"count" msgpack:"count"`
}

// Build converts check results into the machine-readable shape.
func Build(files []File) Output {
	out := Output{Files: make([]FileJSON, 0, len(files))}
	for _, f := range files {
		fj := FileJSON{
			Path:        f.Path,
			Words:       f.Result.Words,
			Diagnostics: make([]DiagnosticJSON, 0, len(f.Result.Diagnostics)),
		}
		if f.Err != nil {
			fj.Error = f.Err.Error()
		}
		if f.Result.Warning != nil {
			fj.Warning = f.Result.Warning.Error()
		}
		for _, d := range f.Result.Diagnostics {
			fj.Diagnostics = append(fj.Diagnostics, makeDiagnostic(d))
		}
		out.Count += len(fj.Diagnostics)
		out.Files = append(out.Files, fj)
	}
	return out
}

func makeDiagnostic(d diagnose.Diagnostic) DiagnosticJSON {
	sugg := d.Suggestions
	if sugg == nil {
		sugg = []string{}
	}
	return DiagnosticJSON{
		Word:        d.Word(),
		Suggestions: sugg,
		Location:    makeLocation(d.Span),
	}
}

func makeLocation(span tokenize.WordSpan) LocationJSON {
	return LocationJSON{
		StartByte:    toUint32(span.StartOffset),
		EndByte:      toUint32(span.EndOffset),
		Line:         toUint32(span.Start.Line),
		Character:    toUint32(span.Start.Character),
		EndLine:      toUint32(span.End.Line),
		EndCharacter: toUint32(span.End.Character),
	}
}

func toUint32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		if n < 0 {
			return 0
		}
		return ^uint32(0)
	}
	return v
}

// JSON writes indented JSON.
func JSON(w io.Writer, files []File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(files))
}

// Msgpack writes a single msgpack-encoded Output.
func Msgpack(w io.Writer, files []File) error {
	return msgpack.NewEncoder(w).Encode(Build(files))
}
