package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"moveforge/internal/result"
	"moveforge/internal/toolchain"
	"moveforge/internal/trace"
)

type compileRequest struct {
	Code *string `json:"code"`
}

type errorBody struct {
	Error string `json:"error"`
}

// statusRecorder captures what the handler wrote for the request span.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// traced wraps next in a request span.
func (s *Server) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := trace.WithTracer(r.Context(), s.tracer)
		span := trace.Begin(s.tracer, trace.ScopeRequest, r.Method+" "+r.URL.Path, trace.CurrentSpan(ctx))
		span.WithExtra("method", r.Method).WithExtra("path", r.URL.Path)
		ctx = trace.WithSpan(ctx, span)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		span.WithExtra("status", strconv.Itoa(rec.status))
		span.End(http.StatusText(rec.status))
	})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req compileRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "invalid JSON body: trailing data")
		return
	}
	if req.Code == nil {
		writeError(w, http.StatusBadRequest, `missing "code" field`)
		return
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for a compile slot")
		return
	}
	lookup, err := s.opts.Cache.Through(ctx, s.opts.Compiler, *req.Code)
	s.sem.Release(1)

	if lookup.CacheErr != nil {
		trace.Error(s.tracer, trace.ScopeRequest, "cache", lookup.CacheErr)
	}
	switch {
	case errors.Is(err, toolchain.ErrEmptySource):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		trace.Error(s.tracer, trace.ScopeRequest, "compile", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := lookup.Outcome.Result()
	span.WithExtra("result", res.Type()).WithExtra("cache_hit", strconv.FormatBool(lookup.Hit))
	if f, ok := res.(*result.Failure); ok {
		span.WithExtra("errors", strconv.Itoa(f.ErrorCount)).
			WithExtra("located", strconv.Itoa(len(f.Diagnostics())))
	}
	data, err := result.Marshal(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSONBytes(w, http.StatusOK, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

// handleTraceDump returns the in-memory trace buffer as NDJSON. It is only
// available with --trace-mode ring or both.
func (s *Server) handleTraceDump(w http.ResponseWriter, _ *http.Request) {
	ring, ok := trace.FindRing(s.tracer)
	if !ok {
		writeError(w, http.StatusNotFound, "trace ring buffer is not enabled")
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	_ = ring.Dump(w, trace.FormatNDJSON)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, status, data)
}

func writeJSONBytes(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
