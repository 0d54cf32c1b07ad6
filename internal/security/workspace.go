package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrPathOutsideWorkspace = errors.New("path outside working directory")

// Workspace confines tool file access to a single directory tree. Every tool
// path goes through Resolve or ResolveForWrite before any I/O happens.
type Workspace struct {
	root string
}

func NewWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Workspace{root: resolved}, nil
}

func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps path into the workspace and requires the target to exist.
// Symlinks are followed before the containment check, so a link pointing
// outside the root is rejected.
func (w *Workspace) Resolve(path string) (string, error) {
	target, err := w.join(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !w.contains(resolved) {
		return "", ErrPathOutsideWorkspace
	}
	return resolved, nil
}

// ResolveForWrite maps path into the workspace for targets that may not
// exist yet. The parent directory must already exist and resolve inside the
// root; the leaf itself is only cleaned.
func (w *Workspace) ResolveForWrite(path string) (string, error) {
	target, err := w.join(path)
	if err != nil {
		return "", err
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(target))
	if err != nil {
		return "", fmt.Errorf("resolve parent: %w", err)
	}
	if !w.contains(parent) {
		return "", ErrPathOutsideWorkspace
	}
	return filepath.Join(parent, filepath.Base(target)), nil
}

func (w *Workspace) join(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path is empty")
	}
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(w.root, target)
	}
	return filepath.Clean(target), nil
}

func (w *Workspace) contains(resolved string) bool {
	rel, err := filepath.Rel(w.root, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
