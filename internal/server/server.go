// Package server exposes the compile service over HTTP.
//
//	POST /compile  {"code": "..."} -> compile_success | compile_failed
//	GET  /healthz  {"status": "ok"}
//	GET  /version  build metadata
//	GET  /debug/trace  ring buffer dump (NDJSON), when tracing keeps one
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"moveforge/internal/cache"
	"moveforge/internal/trace"
	"moveforge/internal/version"
)

// Defaults applied when the corresponding option is zero.
const (
	DefaultMaxBodyBytes    int64 = 1 << 20
	DefaultMaxConcurrent         = 4
	DefaultShutdownTimeout       = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	Addr            string
	MaxBodyBytes    int64
	MaxConcurrent   int
	ShutdownTimeout time.Duration

	Compiler cache.Compiler
	// Cache may be nil.
	Cache  *cache.Cache
	Tracer trace.Tracer
}

// Server is the compile service.
type Server struct {
	opts    Options
	sem     *semaphore.Weighted
	tracer  trace.Tracer
	handler http.Handler
	info    version.Info
}

// New validates opts and builds the routes.
func New(opts Options) (*Server, error) {
	if opts.Compiler == nil {
		return nil, errors.New("server: compiler is required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	s := &Server{
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		tracer: opts.Tracer,
		info:   version.Get(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /compile", s.handleCompile)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /debug/trace", s.handleTraceDump)
	s.handler = s.traced(mux)
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on opts.Addr until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return trace.WithTracer(context.Background(), s.tracer) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trace.Point(s.tracer, trace.ScopeServer, "listening", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		trace.Point(s.tracer, trace.ScopeServer, "shutdown", "")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
