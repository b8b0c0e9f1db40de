package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is an auto|on|off terminal switch. check reads two of them: --ui
// picks the interactive progress view and --color picks coloured pretty
// output. auto follows whether the output is a terminal.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

// readUIMode parses an auto|on|off flag value; flag names the flag in errors.
func readUIMode(flag, value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// enabledFor resolves the switch against out.
func (m uiMode) enabledFor(out *os.File) bool {
	switch m {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(out)
	}
}
