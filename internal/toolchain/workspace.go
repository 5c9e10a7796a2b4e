package toolchain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptySource is returned when the submitted code is blank.
var ErrEmptySource = errors.New("source code is empty")

// DefaultSourceFile is the file name the submitted code is written to.
const DefaultSourceFile = "module.move"

// Workspace is a temporary Move package directory:
//
//	<dir>/Move.toml
//	<dir>/sources/<file>.move
type Workspace struct {
	Dir        string
	SourcePath string
	keep       bool
}

// NewWorkspace creates a workspace under root (the system temp dir when
// root is empty) holding manifest and code.
func NewWorkspace(root string, manifest Manifest, sourceFile, code string, keep bool) (*Workspace, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptySource
	}
	if err := checkSourceFile(sourceFile); err != nil {
		return nil, err
	}
	if root != "" {
		if err := os.MkdirAll(root, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create workspace root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "moveforge-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	ws := &Workspace{Dir: dir, keep: keep}
	if err := ws.populate(manifest, sourceFile, code); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return ws, nil
}

func (ws *Workspace) populate(manifest Manifest, sourceFile, code string) error {
	f, err := os.Create(filepath.Join(ws.Dir, ManifestFile))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", ManifestFile, err)
	}
	if err := manifest.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", ManifestFile, err)
	}

	srcDir := filepath.Join(ws.Dir, "sources")
	if err := os.Mkdir(srcDir, 0o750); err != nil {
		return fmt.Errorf("failed to create sources dir: %w", err)
	}
	ws.SourcePath = filepath.Join(srcDir, sourceFile)
	if err := os.WriteFile(ws.SourcePath, []byte(code), 0o600); err != nil {
		return fmt.Errorf("failed to write source: %w", err)
	}
	return nil
}

// Close removes the workspace unless it was created with keep.
func (ws *Workspace) Close() error {
	if ws == nil || ws.keep {
		return nil
	}
	return os.RemoveAll(ws.Dir)
}

func checkSourceFile(name string) error {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("invalid source file name %q", name)
	}
	if filepath.Ext(name) != ".move" {
		return fmt.Errorf("source file %q must have the .move extension", name)
	}
	return nil
}
