package toolchain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moveforge/internal/observ"
	"moveforge/internal/result"
	"moveforge/internal/trace"
)

// Options configures a Toolchain.
type Options struct {
	Runner        Runner
	Manifest      Manifest
	WorkspaceRoot string
	SourceFile    string
	KeepWorkspace bool
}

// DefaultOptions mirrors the stock Movement setup.
func DefaultOptions() Options {
	return Options{
		Runner:     DefaultRunner(),
		Manifest:   DefaultManifest(),
		SourceFile: DefaultSourceFile,
	}
}

// Outcome is the raw result of one compile, before normalisation.
type Outcome struct {
	Success   bool                   `msgpack:"success"`
	Payload   *result.SuccessPayload `msgpack:"payload,omitempty"`
	ErrorText string                 `msgpack:"error_text,omitempty"`
	// Transient marks failures that depend on the environment rather than
	// on the code: timeouts, cancellation, launch errors.
	Transient bool `msgpack:"-"`
}

// Result normalises the outcome for frontends.
func (o Outcome) Result() result.Result {
	return result.Normalize(o.Success, o.Payload, o.ErrorText)
}

// Toolchain compiles single-module Move packages.
type Toolchain struct {
	opts Options
}

// New validates opts and returns a Toolchain.
func New(opts Options) (*Toolchain, error) {
	if opts.SourceFile == "" {
		opts.SourceFile = DefaultSourceFile
	}
	if err := opts.Runner.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Manifest.Validate(); err != nil {
		return nil, err
	}
	if err := checkSourceFile(opts.SourceFile); err != nil {
		return nil, err
	}
	return &Toolchain{opts: opts}, nil
}

// Fingerprint identifies everything besides the code that affects output.
func (t *Toolchain) Fingerprint() string {
	return strings.Join([]string{
		t.opts.Runner.CommandLine(),
		strings.Join(t.opts.Runner.Env, " "),
		t.opts.Manifest.Fingerprint(),
		t.opts.SourceFile,
	}, "\x00")
}

// PackageName returns the package name written to Move.toml.
func (t *Toolchain) PackageName() string { return t.opts.Manifest.Package.Name }

// Compile builds code. The error is reserved for failures that happen
// before the toolchain can run; compiler failures are a non-successful
// Outcome.
func (t *Toolchain) Compile(ctx context.Context, code string) (Outcome, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeToolchain, "compile", trace.CurrentSpan(ctx))
	parent := span.ID()
	timer := observ.NewTimer()
	started := time.Now()

	var ws *Workspace
	err := step(tracer, parent, timer, observ.PhaseWorkspace, func() error {
		var err error
		ws, err = NewWorkspace(t.opts.WorkspaceRoot, t.opts.Manifest, t.opts.SourceFile, code, t.opts.KeepWorkspace)
		return err
	})
	if err != nil {
		trace.Error(tracer, trace.ScopeToolchain, "workspace", err)
		span.End("workspace failed")
		return Outcome{}, err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			trace.Error(tracer, trace.ScopeToolchain, "cleanup", cerr, "dir", ws.Dir)
		}
	}()
	if t.opts.KeepWorkspace {
		span.WithExtra("workspace", ws.Dir)
	}

	var run RunResult
	_ = step(tracer, parent, timer, observ.PhaseBuild, func() error {
		run = t.opts.Runner.Run(ctx, ws.Dir)
		if !run.OK() {
			return fmt.Errorf("exit code %d", run.ExitCode)
		}
		return nil
	})
	if !run.OK() {
		span.WithExtra("exit_code", fmt.Sprint(run.ExitCode))
		span.End("failed")
		return Outcome{
			ErrorText: run.ErrorText(t.timeout()),
			Transient: run.TimedOut || run.Canceled || run.LaunchErr != nil,
		}, nil
	}

	var art Artifacts
	err = step(tracer, parent, timer, observ.PhaseCollect, func() error {
		var err error
		art, err = Collect(ws.Dir, t.opts.Manifest.Package.Name)
		return err
	})
	if err != nil {
		// build passed but outputs are unreadable
		span.End("collect failed")
		return Outcome{ErrorText: err.Error(), Transient: true}, nil
	}

	span.WithExtra("modules", fmt.Sprint(len(art.Modules)))
	span.End("ok")
	return Outcome{
		Success: true,
		Payload: &result.SuccessPayload{
			Modules:         art.Modules,
			PackageMetadata: art.PackageMetadata,
			CompilerLogs:    run.Stdout,
			Metadata: map[string]any{
				"package_name": t.opts.Manifest.Package.Name,
				"toolchain":    t.opts.Runner.CommandLine(),
				"duration_ms":  time.Since(started).Milliseconds(),
				"timings":      timer.Metadata(),
			},
		},
	}, nil
}

func (t *Toolchain) timeout() time.Duration {
	if t.opts.Runner.Timeout <= 0 {
		return DefaultTimeout
	}
	return t.opts.Runner.Timeout
}

func step(tracer trace.Tracer, parent uint64, timer *observ.Timer, name string, fn func() error) error {
	span := trace.Begin(tracer, trace.ScopeStep, name, parent)
	err := timer.Measure(name, fn)
	if err != nil {
		span.End(err.Error())
		return err
	}
	span.End("")
	return nil
}
