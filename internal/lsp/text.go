package lsp

import "unicode/utf8"

// applyChanges replays content changes in order. A change without a range
// replaces the whole text.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := offsetForPosition(text, change.Range.End)
		if end < start {
			start, end = end, start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition converts a line and UTF-16 character into a byte offset.
// Lines end at "\n", "\r\n" or a lone "\r". Positions past the end of a line
// clamp to the line end, positions past the last line clamp to the end of the
// text.
func offsetForPosition(text string, pos position) int {
	i := 0
	for line := uint32(0); line < pos.Line; line++ {
		next := nextLine(text, i)
		if next < 0 {
			return len(text)
		}
		i = next
	}
	units := uint32(0)
	for i < len(text) && text[i] != '\n' && text[i] != '\r' && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := uint32(1)
		if r > 0xFFFF {
			need = 2
		}
		// never split a surrogate pair
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}

// nextLine returns the offset just past the line terminator that follows
// from, or -1 when the text has no further line break.
func nextLine(text string, from int) int {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return i + 1
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return i + 2
			}
			return i + 1
		}
	}
	return -1
}
