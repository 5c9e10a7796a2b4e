package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds one toolchain invocation.
const DefaultTimeout = 120 * time.Second

// Runner invokes the compiler CLI.
type Runner struct {
	Binary  string
	Args    []string
	Timeout time.Duration
	// Env is appended to the current process environment.
	Env []string
}

// DefaultRunner returns the runner for `movement move build`.
func DefaultRunner() Runner {
	return Runner{Binary: "movement", Args: []string{"move", "build"}, Timeout: DefaultTimeout}
}

// RunResult is what one invocation produced.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	// LaunchErr is set when the process could not be started or waited on.
	LaunchErr error
	TimedOut  bool
	Canceled  bool
}

// OK reports whether the toolchain exited with status 0.
func (r RunResult) OK() bool {
	return r.LaunchErr == nil && !r.TimedOut && !r.Canceled && r.ExitCode == 0
}

// ErrorText returns the text to run diagnostic extraction on.
func (r RunResult) ErrorText(timeout time.Duration) string {
	switch {
	case r.TimedOut:
		msg := fmt.Sprintf("compilation timed out after %s", timeout)
		if s := strings.TrimSpace(r.Stderr); s != "" {
			msg += "\n" + s
		}
		return msg
	case r.Canceled:
		return "compilation canceled"
	case r.LaunchErr != nil:
		return r.LaunchErr.Error()
	case strings.TrimSpace(r.Stderr) != "":
		return r.Stderr
	default:
		return r.Stdout
	}
}

// CommandLine returns the invocation as a single string.
func (r Runner) CommandLine() string {
	return strings.Join(append([]string{r.Binary}, r.Args...), " ")
}

// Validate checks the runner settings.
func (r Runner) Validate() error {
	if strings.TrimSpace(r.Binary) == "" {
		return errors.New("toolchain binary is not set")
	}
	if r.Timeout < 0 {
		return fmt.Errorf("negative toolchain timeout %s", r.Timeout)
	}
	return nil
}

// Run executes the toolchain in dir. It never returns an error: every
// failure mode is reported through RunResult.
func (r Runner) Run(ctx context.Context, dir string) RunResult {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.Binary, r.Args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), r.Env...)
	// children that inherited the pipes must not block Wait forever
	cmd.WaitDelay = 2 * time.Second

	started := time.Now()
	err := cmd.Run()
	res := RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}
	if err == nil {
		return res
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.TimedOut = true
		res.ExitCode = -1
	case ctx.Err() != nil:
		res.Canceled = true
		res.ExitCode = -1
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if res.ExitCode == 0 {
				// killed by a signal or WaitDelay expired after a clean exit
				res.ExitCode = -1
			}
		} else {
			res.LaunchErr = err
			res.ExitCode = -1
		}
	}
	return res
}
