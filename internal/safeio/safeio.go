// Package safeio reads files from a directory tree without letting relative
// paths or symlinks escape it. Cloned repositories are untrusted input.
package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var ErrOutsideRoot = errors.New("safeio: path resolves outside root")

// Root is a read-only view locked to one directory.
type Root struct {
	abs string // absolute, symlink-free
}

// Open locks a view to dir. dir must exist and be a directory.
func Open(dir string) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("safeio: %s is not a directory", abs)
	}
	return &Root{abs: abs}, nil
}

// ReadFile reads a regular file relative to the root.
func (r *Root) ReadFile(name string) ([]byte, error) {
	p, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("safeio: %s is a directory", name)
	}
	return os.ReadFile(p)
}

// Exists reports whether name resolves to a regular file under the root.
// Paths that escape the root are reported as errors, not as absent.
func (r *Root) Exists(name string) (bool, error) {
	p, err := r.resolve(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (r *Root) resolve(name string) (string, error) {
	if r == nil {
		return "", errors.New("safeio: root not configured")
	}
	if name == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(name)
	if clean == "." {
		return r.abs, nil
	}

	isAbs := filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "")
	if !isAbs && (clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))) {
		return "", ErrOutsideRoot
	}

	joined := clean
	if !isAbs {
		joined = filepath.Join(r.abs, clean)
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !within(resolved, r.abs) {
		return "", fmt.Errorf("%w (root=%s, path=%s)", ErrOutsideRoot, r.abs, resolved)
	}
	return resolved, nil
}

func within(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
