package lsp

import (
	"fortio.org/safecast"

	"spelgud/internal/tokenize"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

func toPosition(p tokenize.Position) position {
	return position{Line: safeUint32(p.Line), Character: safeUint32(p.Character)}
}

func rangeForSpan(span tokenize.WordSpan) lspRange {
	return lspRange{Start: toPosition(span.Start), End: toPosition(span.End)}
}

func positionLess(a, b position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

// rangesTouch reports whether a and b overlap or share an endpoint, so a
// cursor placed right after a word still selects it.
func rangesTouch(a, b lspRange) bool {
	return !positionLess(a.End, b.Start) && !positionLess(b.End, a.Start)
}
