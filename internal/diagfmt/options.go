// Package diagfmt renders compile results for terminals and scripts.
package diagfmt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto shows paths relative to BaseDir when they are below it.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses the path as reported.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// ParsePathMode converts a flag value to a PathMode.
func ParsePathMode(s string) (PathMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PathModeAuto, nil
	case "absolute", "abs":
		return PathModeAbsolute, nil
	case "relative", "rel":
		return PathModeRelative, nil
	case "basename", "base":
		return PathModeBasename, nil
	default:
		return PathModeAuto, fmt.Errorf("invalid path mode %q (expected auto|absolute|relative|basename)", s)
	}
}

// Source is the content behind a reported file.
type Source struct {
	// Display replaces the reported path, typically the user's file
	// instead of the temporary workspace copy.
	Display string
	Content string
}

// SourceResolver maps a reported file to its source, ok=false when unknown.
type SourceResolver func(file string) (Source, bool)

// PrettyOpts configures pretty-printing of results.
type PrettyOpts struct {
	Color    bool
	PathMode PathMode
	BaseDir  string
	// Width truncates long source lines, 0 - не ограничено
	Width     int
	ShowCodes bool
	Sources   SourceResolver
}

func (o PrettyOpts) displayPath(file string) string {
	path := file
	if o.Sources != nil {
		if src, ok := o.Sources(file); ok && src.Display != "" {
			path = src.Display
		}
	}
	switch o.PathMode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil && !strings.Contains(path, "://") {
			return abs
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if o.BaseDir == "" || !filepath.IsAbs(path) {
			return path
		}
		rel, err := filepath.Rel(o.BaseDir, path)
		if err != nil {
			return path
		}
		if o.PathMode == PathModeAuto && strings.HasPrefix(rel, "..") {
			return path
		}
		return rel
	}
	return path
}
