// Package toolchain materialises a Move package workspace and runs the
// external compiler CLI in it.
package toolchain

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestFile is the package manifest file name expected by the toolchain.
const ManifestFile = "Move.toml"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Manifest is the content of Move.toml.
type Manifest struct {
	Package      PackageSection        `toml:"package"`
	Addresses    map[string]string     `toml:"addresses,omitempty"`
	Dependencies map[string]Dependency `toml:"dependencies,omitempty"`
}

// PackageSection is the [package] table.
type PackageSection struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Dependency is one entry of the [dependencies] table.
type Dependency struct {
	Git    string `toml:"git,omitempty"`
	Rev    string `toml:"rev,omitempty"`
	Subdir string `toml:"subdir,omitempty"`
	Local  string `toml:"local,omitempty"`
}

// DefaultManifest returns the manifest used when nothing is configured.
func DefaultManifest() Manifest {
	return Manifest{Package: PackageSection{Name: "my_module", Version: "0.1.0"}}
}

// Validate checks the fields the toolchain refuses to work without.
func (m Manifest) Validate() error {
	if !identRe.MatchString(m.Package.Name) {
		return fmt.Errorf("invalid package name %q", m.Package.Name)
	}
	if strings.TrimSpace(m.Package.Version) == "" {
		return fmt.Errorf("package %s: missing version", m.Package.Name)
	}
	for name := range m.Addresses {
		if !identRe.MatchString(name) {
			return fmt.Errorf("invalid named address %q", name)
		}
	}
	for name, dep := range m.Dependencies {
		if dep.Git == "" && dep.Local == "" {
			return fmt.Errorf("dependency %s: one of git or local is required", name)
		}
		if dep.Git != "" && dep.Local != "" {
			return fmt.Errorf("dependency %s: git and local are mutually exclusive", name)
		}
	}
	return nil
}

// Encode writes the manifest as TOML.
func (m Manifest) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode %s: %w", ManifestFile, err)
	}
	return nil
}

// Fingerprint returns a stable textual identity of the manifest.
func (m Manifest) Fingerprint() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s@%s", m.Package.Name, m.Package.Version)
	for _, k := range sortedKeys(m.Addresses) {
		fmt.Fprintf(&buf, ";addr:%s=%s", k, m.Addresses[k])
	}
	for _, k := range sortedKeys(m.Dependencies) {
		d := m.Dependencies[k]
		fmt.Fprintf(&buf, ";dep:%s=%s|%s|%s|%s", k, d.Git, d.Rev, d.Subdir, d.Local)
	}
	return buf.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
