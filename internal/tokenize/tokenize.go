// Package tokenize splits prose into checkable word spans.
//
// A word is a maximal run of letters that may contain internal apostrophes
// used as contractions ("don't", "o’clock"). Apostrophes are part of a word
// only when a letter precedes and follows them, so quotes and possessive
// trailing apostrophes are left out of the span. Combining marks (Mn, Mc)
// continue the word they follow, so decomposed accents and the vowel signs
// of Indic scripts stay inside the span. Bytes that are not valid UTF-8 are
// treated as separators. Every run is emitted regardless of its length.
//
// Positions are zero-based. Lines end at "\n", "\r\n" or a lone "\r".
// Character offsets are counted in UTF-16 code units, which is the default
// position encoding of the language server protocol; byte offsets into the
// original text are reported alongside.
package tokenize

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      int
	Character int
}

// Less reports whether p comes strictly before other.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// WordSpan is a single word occurrence inside a document.
type WordSpan struct {
	Text        string
	Start       Position
	End         Position
	StartOffset int
	EndOffset   int
}

// Words returns a lazy sequence of the words in text, in document order.
// The sequence holds no state between iterations and may be ranged over any
// number of times.
func Words(text string) iter.Seq[WordSpan] {
	return func(yield func(WordSpan) bool) {
		sc := scanner{text: text}
		for {
			span, ok := sc.next()
			if !ok || !yield(span) {
				return
			}
		}
	}
}

// Collect returns every word of text as a slice.
func Collect(text string) []WordSpan {
	return slices.Collect(Words(text))
}

type scanner struct {
	text string
	off  int
	pos  Position
}

func (s *scanner) next() (WordSpan, bool) {
	for s.off < len(s.text) {
		r, size := utf8.DecodeRuneInString(s.text[s.off:])
		if isLetter(r, size) {
			return s.word(), true
		}
		s.advance(r, size)
	}
	return WordSpan{}, false
}

// word consumes a word starting at the current offset, which must be a letter.
func (s *scanner) word() WordSpan {
	startOff := s.off
	startPos := s.pos
	for s.off < len(s.text) {
		r, size := utf8.DecodeRuneInString(s.text[s.off:])
		if isLetter(r, size) || isMark(r) {
			s.advance(r, size)
			continue
		}
		if isApostrophe(r) && s.letterAt(s.off+size) {
			s.advance(r, size)
			continue
		}
		break
	}
	return WordSpan{
		Text:        s.text[startOff:s.off],
		Start:       startPos,
		End:         s.pos,
		StartOffset: startOff,
		EndOffset:   s.off,
	}
}

func (s *scanner) letterAt(off int) bool {
	if off >= len(s.text) {
		return false
	}
	r, size := utf8.DecodeRuneInString(s.text[off:])
	return isLetter(r, size)
}

func (s *scanner) advance(r rune, size int) {
	s.off += size
	switch {
	case r == '\n', r == '\r' && !strings.HasPrefix(s.text[s.off:], "\n"):
		s.pos.Line++
		s.pos.Character = 0
	default:
		s.pos.Character += utf16Len(r, size)
	}
}

func isLetter(r rune, size int) bool {
	if r == utf8.RuneError && size <= 1 {
		return false
	}
	return unicode.IsLetter(r)
}

// isMark reports whether r is a combining mark that extends a word.
func isMark(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Mc)
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

func utf16Len(r rune, size int) int {
	if r == utf8.RuneError && size <= 1 {
		return 1
	}
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
