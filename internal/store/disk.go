package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes files under root/runID/path. The CLI uses it with the
// repository name as run id to lay out a ready-to-deploy directory.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: strings.TrimSpace(root)}
}

func (s *DiskStore) Put(_ context.Context, runID, p string, content []byte) error {
	full, err := s.pathFor(runID, p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, content, 0o644)
}

func (s *DiskStore) Get(_ context.Context, runID, p string) ([]byte, error) {
	full, err := s.pathFor(runID, p)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return raw, err
}

func (s *DiskStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *DiskStore) pathFor(runID, p string) (string, error) {
	if s == nil || s.root == "" {
		return "", errors.New("disk store root is required")
	}
	runID, p, err := normalize(runID, p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, runID, filepath.FromSlash(p)), nil
}
