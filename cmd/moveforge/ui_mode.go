package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the value of the auto|on|off flags (--ui, --color).
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func parseMode(flag, value string) (uiMode, error) {
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

func readUIMode(value string) (uiMode, error) {
	return parseMode("ui", value)
}

// enabledFor resolves auto against whether f is a terminal.
func (m uiMode) enabledFor(f *os.File) bool {
	switch m {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(f)
	}
}

func shouldUseTUI(mode uiMode) bool {
	return mode.enabledFor(os.Stdout)
}
