// Package security keeps tool-supplied paths inside a configured directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator resolves paths against a root directory and rejects any
// that escape it, following symlinks.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir. The directory does
// not have to exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path. Relative paths are taken from
// the root. Null bytes are stripped.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs := filepath.Clean(path)
	ok, err := v.within(abs)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return abs, nil
}

func (v *PathValidator) within(abs string) (bool, error) {
	root := v.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	} else if !os.IsNotExist(err) {
		return false, err
	}

	target := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		target = resolved
	}
	pathOk := under(abs, v.root) || under(abs, root)
	targetOk := under(target, v.root) || under(target, root)
	return pathOk && targetOk, nil
}

func under(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}
