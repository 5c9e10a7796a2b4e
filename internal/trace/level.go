package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff     Level = iota // no tracing
	LevelError                // error points only
	LevelRequest              // server lifecycle + requests
	LevelDetail               // toolchain runs
	LevelDebug                // everything
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelRequest:
		return "request"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "request":
		return LevelRequest, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|request|detail|debug)", s)
	}
}

// ShouldEmit reports whether an event of the given kind and scope passes
// this level. Error points pass every level except LevelOff; heartbeats
// pass whenever tracing is on.
func (l Level) ShouldEmit(kind Kind, scope Scope) bool {
	if l == LevelOff {
		return false
	}
	if kind == KindError || kind == KindHeartbeat {
		return true
	}
	switch l {
	case LevelRequest:
		return scope <= ScopeRequest
	case LevelDetail:
		return scope <= ScopeToolchain
	case LevelDebug:
		return true
	}
	return false
}
