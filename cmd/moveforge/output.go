package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"moveforge/internal/buildpipeline"
	"moveforge/internal/diagfmt"
	"moveforge/internal/toolchain"
)

type outputFormat string

const (
	formatPretty outputFormat = "pretty"
	formatShort  outputFormat = "short"
	formatJSON   outputFormat = "json"
)

func readOutputFormat(value string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", formatPretty:
		return formatPretty, nil
	case formatShort:
		return formatShort, nil
	case formatJSON:
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (must be pretty, short or json)", value)
	}
}

type renderOptions struct {
	format  outputFormat
	pretty  diagfmt.PrettyOpts
	timings bool
	// sourceFile is the workspace source name diagnostics point at; when set,
	// matching paths are shown as the local input file.
	sourceFile string
}

// readRenderOptions collects the output flags shared by compile and diag.
func readRenderOptions(cmd *cobra.Command) (renderOptions, error) {
	var opts renderOptions
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.format, err = readOutputFormat(formatStr); err != nil {
		return opts, err
	}
	pathModeStr, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return opts, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	if opts.pretty.PathMode, err = diagfmt.ParsePathMode(pathModeStr); err != nil {
		return opts, err
	}
	if opts.pretty.ShowCodes, err = cmd.Flags().GetBool("codes"); err != nil {
		return opts, fmt.Errorf("failed to get codes flag: %w", err)
	}
	if opts.pretty.Color, err = readColorMode(cmd); err != nil {
		return opts, err
	}
	if opts.pretty.BaseDir, err = os.Getwd(); err != nil {
		return opts, fmt.Errorf("failed to get working directory: %w", err)
	}
	if isTerminal(os.Stdout) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 8 {
			opts.pretty.Width = w - 8
		}
	}
	return opts, nil
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	cmd.Flags().String("path-mode", "auto", "path display mode (auto|absolute|relative|basename)")
	cmd.Flags().Bool("codes", false, "show diagnostic codes")
}

// renderResults writes every file result in request order. json emits one
// NDJSON entry per file.
func renderResults(w io.Writer, files []buildpipeline.FileResult, opts renderOptions) error {
	for i, fr := range files {
		if opts.format == formatJSON {
			if err := diagfmt.JSONLine(w, fr.File, fr.Result, fr.Err); err != nil {
				return err
			}
			continue
		}
		if len(files) > 1 {
			if i > 0 && opts.format == formatPretty {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "==> %s\n", fr.File)
		}
		if fr.Err != nil {
			fmt.Fprintf(w, "error: %v\n", fr.Err)
			continue
		}
		popts := opts.pretty
		popts.Sources = localSource(fr.File, opts.sourceFile)
		var err error
		if opts.format == formatShort {
			err = diagfmt.Short(w, fr.Result, popts)
		} else {
			err = diagfmt.Pretty(w, fr.Result, popts)
		}
		if err != nil {
			return err
		}
		if opts.timings {
			writeTimings(w, fr)
		}
	}
	return nil
}

// localSource maps the workspace copy of the source back to the input file
// so diagnostics show the user's path and get an exact caret line.
func localSource(input, sourceFile string) diagfmt.SourceResolver {
	if input == buildpipeline.StdinName || sourceFile == "" {
		return nil
	}
	var (
		loaded  bool
		content string
	)
	return func(file string) (diagfmt.Source, bool) {
		if filepath.Base(file) != sourceFile || filepath.Base(filepath.Dir(file)) != "sources" {
			return diagfmt.Source{}, false
		}
		if !loaded {
			loaded = true
			if data, err := os.ReadFile(input); err == nil {
				content = string(data)
			}
		}
		return diagfmt.Source{Display: input, Content: content}, true
	}
}

func writeTimings(w io.Writer, fr buildpipeline.FileResult) {
	parts := make([]string, 0, 3)
	for _, stage := range []buildpipeline.Stage{buildpipeline.StageSetup, buildpipeline.StageBuild, buildpipeline.StageNormalize} {
		if fr.Timings.Has(stage) {
			parts = append(parts, fmt.Sprintf("%s %s", stage, fr.Timings.Duration(stage).Round(time.Millisecond)))
		}
	}
	if len(parts) == 0 && !fr.CacheHit {
		return
	}
	cached := ""
	if fr.CacheHit {
		cached = " (cached)"
	}
	fmt.Fprintf(w, "timings: %s%s\n", strings.Join(parts, ", "), cached)
}

// sourceFileName is the workspace source name the toolchain writes.
func sourceFileName(configured string) string {
	if configured != "" {
		return configured
	}
	return toolchain.DefaultSourceFile
}

// failedCount counts files without a successful result.
func failedCount(files []buildpipeline.FileResult) int {
	n := 0
	for _, fr := range files {
		if fr.Err != nil || fr.Result == nil || !fr.Result.Succeeded() {
			n++
		}
	}
	return n
}
