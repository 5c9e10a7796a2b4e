// Package trace is the event log of the moveforge service and CLI.
//
// Requests, toolchain runs and their steps are recorded as spans; notable
// moments (cache hits, startup, failures) as points. Events are written as
// text or NDJSON, immediately (stream), into a ring buffer kept for dumps,
// or both.
//
// # Usage
//
//	moveforge serve --trace=- --trace-level=request
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: error points only
//   - LevelRequest: server lifecycle and one span per HTTP request
//   - LevelDetail: toolchain runs
//   - LevelDebug: every step (workspace, build, collect, normalise)
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeRequest, "POST /compile", 0)
//	defer span.End("")
//
// Writes are best effort: a failing trace output never fails a request.
package trace
