package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"spelgud/internal/diagnose"
	"spelgud/internal/tokenize"
)

func sampleFiles() []File {
	text := "intro\n\tHelo wrld\n"
	spans := tokenize.Collect(text)
	return []File{
		{
			Path: "notes.txt",
			Text: text,
			Result: diagnose.Result{
				Words: len(spans),
				Diagnostics: []diagnose.Diagnostic{
					{Span: spans[1], Suggestions: []string{"Hello", "Help", "Hell"}},
					{Span: spans[2]},
				},
			},
		},
		{Path: "missing.txt", Err: errors.New("open missing.txt: no such file or directory")},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPretty, "JSON": FormatJSON, " msgpack ": FormatMsgpack} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("sarif")
	assert.Error(t, err)
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleFiles(), Options{MaxSuggestions: 2}))
	out := buf.String()

	assert.Contains(t, out, `notes.txt:2:2: unknown word "Helo" (did you mean: Hello, Help)`)
	assert.NotContains(t, out, "Hell)")
	assert.Contains(t, out, `notes.txt:2:7: unknown word "wrld"`+"\n")
	// tab expands to four columns before the caret
	assert.Contains(t, out, "      Helo wrld\n      ^~~~\n")
	assert.Contains(t, out, "           ^~~~\n")
	assert.Contains(t, out, "missing.txt: error: open missing.txt")
	assert.True(t, strings.HasSuffix(out, "2 misspellings in 2 files\n"))
	assert.NotContains(t, out, "\x1b[")
}

func TestPrettyColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleFiles()[:1], Options{Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestPrettyWarning(t *testing.T) {
	files := []File{{Path: "a.txt", Text: "", Result: diagnose.Result{Warning: errors.New("checker unavailable")}}}
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, files, Options{}))
	assert.Equal(t, "a.txt: warning: checker unavailable\n0 misspellings in 1 file\n", buf.String())
}

func TestPrettyWideCharacters(t *testing.T) {
	text := "字字 teh"
	spans := tokenize.Collect(text)
	files := []File{{Path: "w.txt", Text: text, Result: diagnose.Result{
		Diagnostics: []diagnose.Diagnostic{{Span: spans[1]}},
	}}}
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, files, Options{}))
	// two wide runes take four columns, plus the space
	assert.Contains(t, buf.String(), "  字字 teh\n       ^~~\n")
	assert.Contains(t, buf.String(), "w.txt:1:4:")
}

func TestPrettyCarriageReturnLines(t *testing.T) {
	text := "first\rteh here\r\nlast"
	spans := tokenize.Collect(text)
	files := []File{{Path: "c.txt", Text: text, Result: diagnose.Result{
		Diagnostics: []diagnose.Diagnostic{{Span: spans[1]}},
	}}}
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, files, Options{}))
	out := buf.String()
	assert.Contains(t, out, "c.txt:2:1:")
	assert.Contains(t, out, "  teh here\n  ^~~\n")
	assert.NotContains(t, out, "first")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleFiles()))

	var out Output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Files, 2)
	assert.Equal(t, 2, out.Count)

	first := out.Files[0].Diagnostics[0]
	assert.Equal(t, "Helo", first.Word)
	assert.Equal(t, LocationJSON{StartByte: 7, EndByte: 11, Line: 1, Character: 1, EndLine: 1, EndCharacter: 5}, first.Location)
	assert.Equal(t, []string{}, out.Files[0].Diagnostics[1].Suggestions)
	assert.Contains(t, out.Files[1].Error, "no such file")
	assert.Empty(t, out.Files[1].Diagnostics)
}

func TestMsgpack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleFiles(), FormatMsgpack, Options{}))

	var out Output
	require.NoError(t, msgpack.NewDecoder(&buf).Decode(&out))
	require.Len(t, out.Files, 2)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "notes.txt", out.Files[0].Path)
	assert.Equal(t, []string{"Hello", "Help", "Hell"}, out.Files[0].Diagnostics[0].Suggestions)
	assert.Equal(t, uint32(12), out.Files[0].Diagnostics[1].Location.StartByte)
	assert.Contains(t, out.Files[1].Error, "no such file")
}

func TestMisspellings(t *testing.T) {
	assert.Equal(t, 2, Misspellings(sampleFiles()))
	assert.Equal(t, 0, Misspellings(nil))
}
