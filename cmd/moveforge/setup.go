package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"moveforge/internal/cache"
	"moveforge/internal/config"
	"moveforge/internal/toolchain"
)

// loadConfig resolves --config or the discovered moveforge.toml.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.Resolve(path, wd)
}

// applyToolchainFlags overrides config values with the toolchain flags the
// command defines and the user set.
func applyToolchainFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("toolchain") {
		v, err := flags.GetString("toolchain")
		if err != nil {
			return fmt.Errorf("failed to get toolchain flag: %w", err)
		}
		cfg.Toolchain.Binary = v
	}
	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return fmt.Errorf("failed to get timeout flag: %w", err)
		}
		cfg.Toolchain.Timeout = v.String()
	}
	if flags.Changed("keep-workspace") {
		v, err := flags.GetBool("keep-workspace")
		if err != nil {
			return fmt.Errorf("failed to get keep-workspace flag: %w", err)
		}
		cfg.Toolchain.KeepWorkspace = v
	}
	if flags.Changed("cache") {
		v, err := flags.GetBool("cache")
		if err != nil {
			return fmt.Errorf("failed to get cache flag: %w", err)
		}
		cfg.Cache.Enabled = v
	}
	return cfg.Validate()
}

func addToolchainFlags(cmd *cobra.Command) {
	cmd.Flags().String("toolchain", "", "compiler binary (overrides [toolchain].binary)")
	cmd.Flags().Duration("timeout", 0, "per-compile timeout (overrides [toolchain].timeout)")
	cmd.Flags().Bool("keep-workspace", false, "keep temporary workspaces for inspection")
	cmd.Flags().Bool("cache", false, "serve repeated compiles from the disk cache")
}

func buildToolchain(cfg config.Config) (*toolchain.Toolchain, error) {
	opts, err := cfg.ToolchainOptions()
	if err != nil {
		return nil, err
	}
	return toolchain.New(opts)
}

// openCache returns nil when the cache is disabled.
func openCache(cfg config.Config) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.Open(cfg.Cache.Dir)
}

func readColorMode(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	mode, err := parseMode("color", colorFlag)
	if err != nil {
		return false, err
	}
	return mode.enabledFor(os.Stdout), nil
}
