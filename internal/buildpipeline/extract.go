package buildpipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"moveforge/internal/result"
)

// StdinName selects standard input in ExtractRequest.Files.
const StdinName = "-"

// Input selects how Extract reads its files.
type Input string

const (
	// InputText treats every file as raw compiler error output.
	InputText Input = "text"
	// InputJSON treats every file as a saved compile_success or
	// compile_failed document.
	InputJSON Input = "json"
)

// ParseInput converts a flag value to an Input. Empty means text.
func ParseInput(s string) (Input, error) {
	switch Input(strings.ToLower(strings.TrimSpace(s))) {
	case "", InputText:
		return InputText, nil
	case InputJSON:
		return InputJSON, nil
	default:
		return "", fmt.Errorf("invalid input %q (expected text|json)", s)
	}
}

// ExtractRequest normalises saved compiler output without running the
// toolchain.
type ExtractRequest struct {
	Files []string
	Jobs  int
	Stdin io.Reader
	Input Input
}

// Extract reads every file concurrently. Text input is normalised as the
// error text of a failed build; JSON input is decoded as a result. Results
// keep request order.
func Extract(ctx context.Context, req *ExtractRequest) ([]FileResult, error) {
	if req == nil {
		return nil, fmt.Errorf("missing extract request")
	}
	files := req.Files
	if len(files) == 0 {
		files = []string{StdinName}
	}
	input, err := ParseInput(string(req.Input))
	if err != nil {
		return nil, err
	}
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	stdinUsed := false
	for _, file := range files {
		if file != StdinName {
			continue
		}
		if stdinUsed {
			return nil, fmt.Errorf("standard input given more than once")
		}
		stdinUsed = true
	}

	out := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := readLog(file, req.Stdin)
			if err != nil {
				out[i] = FileResult{File: file, Err: err}
				return nil
			}
			if input == InputJSON {
				res, err := result.Decode([]byte(text))
				if err != nil {
					out[i] = FileResult{File: file, Err: fmt.Errorf("failed to decode %s: %w", file, err)}
					return nil
				}
				out[i] = FileResult{File: file, Result: res}
				return nil
			}
			out[i] = FileResult{File: file, Result: result.Normalize(false, nil, text)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func readLog(file string, stdin io.Reader) (string, error) {
	if file == StdinName {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}
