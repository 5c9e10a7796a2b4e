// Package config loads moveforge.toml and maps it onto the settings of the
// server, the toolchain, the cache and the tracer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"moveforge/internal/toolchain"
	"moveforge/internal/trace"
)

// FileName is the config file looked up by Discover.
const FileName = "moveforge.toml"

// Config is the whole configuration. Durations are Go duration strings
// ("120s", "5m").
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Toolchain ToolchainConfig `toml:"toolchain"`
	Package   PackageConfig   `toml:"package"`
	Cache     CacheConfig     `toml:"cache"`
	Trace     TraceConfig     `toml:"trace"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `toml:"-"`
}

type ServerConfig struct {
	Addr            string `toml:"addr"`
	MaxBodyBytes    int64  `toml:"max_body_bytes"`
	MaxConcurrent   int    `toml:"max_concurrent"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type ToolchainConfig struct {
	Binary        string   `toml:"binary"`
	Args          []string `toml:"args"`
	Env           []string `toml:"env"`
	Timeout       string   `toml:"timeout"`
	WorkspaceRoot string   `toml:"workspace_root"`
	KeepWorkspace bool     `toml:"keep_workspace"`
	SourceFile    string   `toml:"source_file"`
}

// PackageConfig is written into the generated Move.toml.
type PackageConfig struct {
	Name         string                          `toml:"name"`
	Version      string                          `toml:"version"`
	Addresses    map[string]string               `toml:"addresses"`
	Dependencies map[string]toolchain.Dependency `toml:"dependencies"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type TraceConfig struct {
	Level     string `toml:"level"`
	Mode      string `toml:"mode"`
	Format    string `toml:"format"`
	Output    string `toml:"output"`
	RingSize  int    `toml:"ring_size"`
	Heartbeat string `toml:"heartbeat"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxBodyBytes:    1 << 20,
			MaxConcurrent:   4,
			ShutdownTimeout: "10s",
		},
		Toolchain: ToolchainConfig{
			Binary:     "movement",
			Args:       []string{"move", "build"},
			Timeout:    "120s",
			SourceFile: toolchain.DefaultSourceFile,
		},
		Package: PackageConfig{Name: "my_module", Version: "0.1.0"},
		Trace: TraceConfig{
			Level:    "off",
			Mode:     "stream",
			Format:   "auto",
			Output:   "-",
			RingSize: 4096,
		},
	}
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("toolchain", "binary") && strings.TrimSpace(cfg.Toolchain.Binary) == "" {
		return Config{}, fmt.Errorf("%s: invalid [toolchain].binary", path)
	}
	if meta.IsDefined("package", "name") && strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: invalid [package].name", path)
	}
	cfg.Path = path
	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Discover walks up from startDir looking for moveforge.toml.
func Discover(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve loads explicit when set, otherwise the discovered file, otherwise
// the defaults.
func Resolve(explicit, startDir string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Discover(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Defaults(), nil
	}
	return Load(path)
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || p == "-" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Toolchain.WorkspaceRoot = abs(c.Toolchain.WorkspaceRoot)
	c.Cache.Dir = abs(c.Cache.Dir)
	c.Trace.Output = abs(c.Trace.Output)
	for name, dep := range c.Package.Dependencies {
		dep.Local = abs(dep.Local)
		c.Package.Dependencies[name] = dep
	}
}

// Validate checks every section. Errors name the file and key.
func (c Config) Validate() error {
	src := c.Path
	if src == "" {
		src = "defaults"
	}
	bad := func(key string, err error) error {
		if err != nil {
			return fmt.Errorf("%s: invalid %s: %w", src, key, err)
		}
		return fmt.Errorf("%s: invalid %s", src, key)
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return bad("[server].addr", nil)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return bad("[server].max_body_bytes", nil)
	}
	if c.Server.MaxConcurrent <= 0 {
		return bad("[server].max_concurrent", nil)
	}
	if _, err := parseDuration(c.Server.ShutdownTimeout); err != nil {
		return bad("[server].shutdown_timeout", err)
	}
	if d, err := parseDuration(c.Toolchain.Timeout); err != nil || d < 0 {
		return bad("[toolchain].timeout", err)
	}
	if _, err := parseDuration(c.Trace.Heartbeat); err != nil {
		return bad("[trace].heartbeat", err)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return bad("[trace].level", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return bad("[trace].mode", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return bad("[trace].format", err)
	}
	if c.Trace.RingSize < 0 {
		return bad("[trace].ring_size", nil)
	}
	if _, err := c.ToolchainOptions(); err != nil {
		return bad("[toolchain]/[package]", err)
	}
	return nil
}

// ToolchainOptions maps the toolchain and package sections.
func (c Config) ToolchainOptions() (toolchain.Options, error) {
	timeout, err := parseDuration(c.Toolchain.Timeout)
	if err != nil {
		return toolchain.Options{}, err
	}
	opts := toolchain.Options{
		Runner: toolchain.Runner{
			Binary:  c.Toolchain.Binary,
			Args:    append([]string(nil), c.Toolchain.Args...),
			Env:     append([]string(nil), c.Toolchain.Env...),
			Timeout: timeout,
		},
		Manifest: toolchain.Manifest{
			Package:      toolchain.PackageSection{Name: c.Package.Name, Version: c.Package.Version},
			Addresses:    c.Package.Addresses,
			Dependencies: c.Package.Dependencies,
		},
		WorkspaceRoot: c.Toolchain.WorkspaceRoot,
		SourceFile:    c.Toolchain.SourceFile,
		KeepWorkspace: c.Toolchain.KeepWorkspace,
	}
	if _, err := toolchain.New(opts); err != nil {
		return toolchain.Options{}, err
	}
	return opts, nil
}

// TracerConfig maps the trace section.
func (c Config) TracerConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	heartbeat, err := parseDuration(c.Trace.Heartbeat)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
		Heartbeat:  heartbeat,
	}, nil
}

// ShutdownTimeout returns the graceful shutdown bound of the server.
func (c Config) ShutdownTimeout() time.Duration {
	d, err := parseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 0
	}
	return d
}

// parseDuration accepts an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
