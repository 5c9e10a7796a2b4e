package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moveforge/internal/buildpipeline"
)

var diagCmd = &cobra.Command{
	Use:   "diag [flags] [log...]",
	Short: "Parse saved compiler output into structured diagnostics",
	Long: `diag normalises compiler error text without running the toolchain.
With --input json the files hold saved compile results (POST /compile
answers or compile --format json results) and are re-rendered.
With no arguments, or with "-", the input is read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		render, err := readRenderOptions(cmd)
		if err != nil {
			return err
		}
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
		inputStr, err := cmd.Flags().GetString("input")
		if err != nil {
			return fmt.Errorf("failed to get input flag: %w", err)
		}
		input, err := buildpipeline.ParseInput(inputStr)
		if err != nil {
			return err
		}

		_, cleanup, err := setupTracing(cmd, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		files, err := buildpipeline.Extract(cmd.Context(), &buildpipeline.ExtractRequest{
			Files: args,
			Jobs:  jobs,
			Stdin: cmd.InOrStdin(),
			Input: input,
		})
		if err != nil {
			return err
		}
		return renderResults(cmd.OutOrStdout(), files, render)
	},
}

func init() {
	addRenderFlags(diagCmd)
	diagCmd.Flags().Int("jobs", 0, "max parallel parses (0=auto)")
	diagCmd.Flags().String("input", "text", "input kind (text: raw compiler output, json: saved result)")
}
