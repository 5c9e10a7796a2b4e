package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moveforge/internal/config"
	"moveforge/internal/trace"
)

// setupTracing builds the tracer from the [trace] section, overridden by
// any trace flag the user set. It returns a cleanup function that flushes
// and closes the tracer.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, func(), error) {
	tcfg, err := cfg.TracerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid [trace] config: %w", err)
	}
	flags := cmd.Root().PersistentFlags()

	if flags.Changed("trace") {
		if tcfg.OutputPath, err = flags.GetString("trace"); err != nil {
			return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
		}
		// --trace без уровня включает request
		if !flags.Changed("trace-level") && tcfg.Level == trace.LevelOff {
			tcfg.Level = trace.LevelRequest
		}
	}
	if flags.Changed("trace-level") {
		levelStr, err := flags.GetString("trace-level")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
		}
		if tcfg.Level, err = trace.ParseLevel(levelStr); err != nil {
			return nil, nil, fmt.Errorf("invalid trace level: %w", err)
		}
	}
	if flags.Changed("trace-mode") {
		modeStr, err := flags.GetString("trace-mode")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
		}
		if tcfg.Mode, err = trace.ParseMode(modeStr); err != nil {
			return nil, nil, fmt.Errorf("invalid trace mode: %w", err)
		}
	}
	if flags.Changed("trace-format") {
		formatStr, err := flags.GetString("trace-format")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get trace-format flag: %w", err)
		}
		if tcfg.Format, err = trace.ParseFormat(formatStr); err != nil {
			return nil, nil, fmt.Errorf("invalid trace format: %w", err)
		}
	}
	if flags.Changed("trace-ring-size") {
		if tcfg.RingSize, err = flags.GetInt("trace-ring-size"); err != nil {
			return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
		}
	}
	if flags.Changed("trace-heartbeat") {
		if tcfg.Heartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
			return nil, nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
		}
	}

	if tcfg.Level == trace.LevelOff {
		ctx := trace.WithTracer(cmd.Context(), trace.Nop)
		cmd.SetContext(ctx)
		return trace.Nop, func() {}, nil
	}

	tracer, err := trace.New(tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if tcfg.Heartbeat > 0 {
		heartbeat = trace.StartHeartbeat(tracer, tcfg.Heartbeat)
	}

	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
