package buildpipeline

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"moveforge/internal/cache"
	"moveforge/internal/result"
	"moveforge/internal/trace"
)

// CompileRequest configures a batch compile of local .move files.
type CompileRequest struct {
	Files    []string
	Jobs     int
	Compiler cache.Compiler
	// Cache may be nil.
	Cache    *cache.Cache
	Progress ProgressSink
}

// FileResult is the outcome for one input file.
type FileResult struct {
	File   string
	Result result.Result
	// Err is set when no result could be produced (unreadable file,
	// workspace failure); Result is nil then.
	Err      error
	CacheHit bool
	Timings  Timings
}

// CompileResult holds one FileResult per requested file, in request order.
type CompileResult struct {
	Files   []FileResult
	Timings Timings
}

// Failed reports whether any file has an error or a failed result.
func (r CompileResult) Failed() bool {
	for _, f := range r.Files {
		if f.Err != nil || f.Result == nil || !f.Result.Succeeded() {
			return true
		}
	}
	return false
}

// Compile compiles every file concurrently, at most Jobs at a time.
// Per-file problems are reported in the results; the returned error is for
// a bad request or cancellation.
func Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var res CompileResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return res, fmt.Errorf("missing compile request")
	}
	if req.Compiler == nil {
		return res, fmt.Errorf("missing compiler")
	}
	if len(req.Files) == 0 {
		return res, fmt.Errorf("no input files")
	}

	for _, file := range req.Files {
		emit(req.Progress, Event{File: file, Status: StatusQueued})
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	res.Files = make([]FileResult, len(req.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Files)))
	for i, file := range req.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				res.Files[i] = FileResult{File: file, Err: err}
				return err
			}
			res.Files[i] = compileFile(gctx, req, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	for _, f := range res.Files {
		for _, stage := range []Stage{StageSetup, StageBuild, StageNormalize} {
			res.Timings.Add(stage, f.Timings.Duration(stage))
		}
	}
	return res, nil
}

func compileFile(ctx context.Context, req *CompileRequest, file string) FileResult {
	fr := FileResult{File: file}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeRequest, file, trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)
	started := time.Now()

	fail := func(stage Stage, err error) FileResult {
		fr.Err = err
		emit(req.Progress, Event{File: file, Stage: stage, Status: StatusError, Err: err, Elapsed: time.Since(started)})
		trace.Error(tracer, trace.ScopeRequest, string(stage), err, "file", file)
		span.End("error")
		return fr
	}

	emit(req.Progress, Event{File: file, Stage: StageSetup, Status: StatusWorking})
	t0 := time.Now()
	code, err := os.ReadFile(file)
	fr.Timings.Set(StageSetup, time.Since(t0))
	if err != nil {
		return fail(StageSetup, fmt.Errorf("failed to read %s: %w", file, err))
	}

	emit(req.Progress, Event{File: file, Stage: StageBuild, Status: StatusWorking})
	t0 = time.Now()
	lookup, err := req.Cache.Through(ctx, req.Compiler, string(code))
	fr.Timings.Set(StageBuild, time.Since(t0))
	if lookup.CacheErr != nil {
		trace.Error(tracer, trace.ScopeRequest, "cache", lookup.CacheErr, "file", file)
	}
	if err != nil {
		return fail(StageBuild, err)
	}
	fr.CacheHit = lookup.Hit

	emit(req.Progress, Event{File: file, Stage: StageNormalize, Status: StatusWorking})
	t0 = time.Now()
	fr.Result = lookup.Outcome.Result()
	fr.Timings.Set(StageNormalize, time.Since(t0))

	emit(req.Progress, Event{
		File:    file,
		Stage:   StageNormalize,
		Status:  StatusDone,
		Elapsed: time.Since(started),
		Failed:  !fr.Result.Succeeded(),
	})
	span.WithExtra("result", fr.Result.Type())
	span.End("")
	return fr
}
