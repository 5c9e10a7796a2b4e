package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"moveforge/internal/buildpipeline"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file.move|dir>...",
	Short: "Compile local Move sources through the toolchain",
	Long: `compile wraps every .move file in its own temporary package and builds it,
exactly as POST /compile does. Directories are searched recursively.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyToolchainFlags(cmd, &cfg); err != nil {
			return err
		}
		render, err := readRenderOptions(cmd)
		if err != nil {
			return err
		}
		if render.timings, err = cmd.Flags().GetBool("timings"); err != nil {
			return fmt.Errorf("failed to get timings flag: %w", err)
		}
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
		uiFlag, err := cmd.Flags().GetString("ui")
		if err != nil {
			return fmt.Errorf("failed to get ui flag: %w", err)
		}
		mode, err := readUIMode(uiFlag)
		if err != nil {
			return err
		}

		files, err := buildpipeline.ExpandMoveFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no .move files found")
		}

		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		defer stopProfiling()

		_, cleanup, err := setupTracing(cmd, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		render.sourceFile = sourceFileName(cfg.Toolchain.SourceFile)
		tc, err := buildToolchain(cfg)
		if err != nil {
			return err
		}
		c, err := openCache(cfg)
		if err != nil {
			return err
		}

		req := &buildpipeline.CompileRequest{
			Files:    files,
			Jobs:     jobs,
			Compiler: tc,
			Cache:    c,
		}
		started := time.Now()
		var res buildpipeline.CompileResult
		// TUI только для человекочитаемого вывода
		if render.format != formatJSON && shouldUseTUI(mode) {
			res, err = runCompileWithUI(cmd.Context(), "compiling", files, req)
		} else {
			res, err = buildpipeline.Compile(cmd.Context(), req)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := renderResults(out, res.Files, render); err != nil {
			return err
		}
		failed := failedCount(res.Files)
		if render.format != formatJSON && len(res.Files) > 1 {
			fmt.Fprintf(out, "\n%d files, %d failed in %s\n", len(res.Files), failed, time.Since(started).Round(time.Millisecond))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to compile", failed, len(res.Files))
		}
		return nil
	},
}

func init() {
	addRenderFlags(compileCmd)
	addToolchainFlags(compileCmd)
	compileCmd.Flags().Int("jobs", 0, "max parallel compiles (0=auto)")
	compileCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	compileCmd.Flags().Bool("timings", false, "print per-stage timings")
}
