package tokenize

import (
	"testing"
	"unicode/utf16"
	"unicode/utf8"
)

const maxFuzzInput = 1 << 16 // 64 KiB

func FuzzWords(f *testing.F) {
	for _, seed := range []string{
		"",
		"Helo world",
		"don't 'quoted' dogs' rock''n",
		"first line\r\n  second\nthird",
		"🙂 hi é 字字",
		"ab\xffcd\xc3",
		"o’clock ’tis",
		"nai\u0308ve हिन्दी",
		"one\rtwo\r\n\rthree",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		prevEnd := 0
		for span := range Words(input) {
			if span.StartOffset < prevEnd || span.EndOffset <= span.StartOffset {
				t.Fatalf("bad offsets %d..%d after %d", span.StartOffset, span.EndOffset, prevEnd)
			}
			if input[span.StartOffset:span.EndOffset] != span.Text {
				t.Fatalf("text %q does not match offsets", span.Text)
			}
			if !utf8.ValidString(span.Text) {
				t.Fatalf("invalid UTF-8 in %q", span.Text)
			}
			if span.Start.Line == span.End.Line {
				width := len(utf16.Encode([]rune(span.Text)))
				if span.End.Character-span.Start.Character != width {
					t.Fatalf("span %q covers %d units, want %d", span.Text, span.End.Character-span.Start.Character, width)
				}
			}
			prevEnd = span.EndOffset
		}
	})
}
