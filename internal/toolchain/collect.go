package toolchain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	bytecodeDir  = "bytecode_modules"
	metadataFile = "package-metadata.bcs"
)

// Artifacts are the build outputs of one package.
type Artifacts struct {
	// Modules holds one {"name", "bytecode"} map per compiled module,
	// bytecode base64-encoded, sorted by name.
	Modules []any
	// PackageMetadata is the base64 metadata blob, or nil when the
	// toolchain did not write one.
	PackageMetadata any
}

// Collect reads build/<pkg>/ under dir. A missing build directory yields
// empty artifacts.
func Collect(dir, pkg string) (Artifacts, error) {
	root := filepath.Join(dir, "build", pkg)
	art := Artifacts{Modules: []any{}}

	entries, err := os.ReadDir(filepath.Join(root, bytecodeDir))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return art, fmt.Errorf("failed to list bytecode modules: %w", err)
	default:
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".mv") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(root, bytecodeDir, name))
			if err != nil {
				return art, fmt.Errorf("failed to read module %s: %w", name, err)
			}
			art.Modules = append(art.Modules, map[string]any{
				"name":     strings.TrimSuffix(name, ".mv"),
				"bytecode": base64.StdEncoding.EncodeToString(data),
			})
		}
	}

	data, err := os.ReadFile(filepath.Join(root, metadataFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return art, fmt.Errorf("failed to read %s: %w", metadataFile, err)
	default:
		art.PackageMetadata = base64.StdEncoding.EncodeToString(data)
	}
	return art, nil
}
