package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff      Level = iota // no tracing
	LevelSession               // session lifecycle only
	LevelDocument              // per-document runs
	LevelDebug                 // everything including checker requests
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelSession:
		return "session"
	case LevelDocument:
		return "document"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff, nil
	case "session":
		return LevelSession, nil
	case "document":
		return LevelDocument, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|session|document|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelSession:
		return scope <= ScopeSession
	case LevelDocument:
		return scope <= ScopeDocument
	case LevelDebug:
		return true
	}
	return false
}
