package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moveforge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP compile service",
	Long:  `serve accepts POST /compile {"code": "..."} and answers with compile_success or compile_failed`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			if cfg.Server.Addr, err = cmd.Flags().GetString("addr"); err != nil {
				return fmt.Errorf("failed to get addr flag: %w", err)
			}
		}
		if cmd.Flags().Changed("max-concurrent") {
			if cfg.Server.MaxConcurrent, err = cmd.Flags().GetInt("max-concurrent"); err != nil {
				return fmt.Errorf("failed to get max-concurrent flag: %w", err)
			}
		}
		if err := applyToolchainFlags(cmd, &cfg); err != nil {
			return err
		}

		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		defer stopProfiling()

		tracer, cleanup, err := setupTracing(cmd, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		tc, err := buildToolchain(cfg)
		if err != nil {
			return err
		}
		c, err := openCache(cfg)
		if err != nil {
			return err
		}

		srv, err := server.New(server.Options{
			Addr:            cfg.Server.Addr,
			MaxBodyBytes:    cfg.Server.MaxBodyBytes,
			MaxConcurrent:   cfg.Server.MaxConcurrent,
			ShutdownTimeout: cfg.ShutdownTimeout(),
			Compiler:        tc,
			Cache:           c,
			Tracer:          tracer,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.ErrOrStderr(), "moveforge: listening on %s (toolchain %s)\n", cfg.Server.Addr, cfg.Toolchain.Binary)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides [server].addr)")
	serveCmd.Flags().Int("max-concurrent", 0, "maximum simultaneous compiles (overrides [server].max_concurrent)")
	addToolchainFlags(serveCmd)
}
