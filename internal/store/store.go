// Package store persists finished bundles so their files can be downloaded.
// Keys are runID/path.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"legacylift/internal/artifact"
)

// Store defines operations for persisting run files.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	// GetURL returns a direct download URL, or "" when the backend cannot
	// serve files itself.
	GetURL(ctx context.Context, runID, path string) (string, error)
}

var (
	ErrNotFound   = errors.New("file not found")
	ErrInvalidKey = errors.New("invalid key")
)

// MetricsReporter is implemented by stores that count their own traffic.
type MetricsReporter interface {
	Metrics() MetricsSnapshot
}

func normalize(runID, p string) (string, string, error) {
	runID = strings.TrimSpace(runID)
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if runID == "" {
		return "", "", fmt.Errorf("%w: run_id is required", ErrInvalidKey)
	}
	if strings.Contains(runID, "/") || strings.Contains(runID, "..") {
		return "", "", fmt.Errorf("%w: run_id %s", ErrInvalidKey, runID)
	}
	if p == "" {
		return "", "", fmt.Errorf("%w: path is required", ErrInvalidKey)
	}
	if path.Clean(p) != p || strings.HasPrefix(p, "..") {
		return "", "", fmt.Errorf("%w: path %s", ErrInvalidKey, p)
	}
	return runID, p, nil
}

func objectKey(runID, p string) string {
	return runID + "/" + p
}

// contentType maps known file names to their MIME type.
func contentType(p string) string {
	base := path.Base(p)
	for _, k := range artifact.Kinds() {
		if base == k.FileName() {
			return k.MIMEType()
		}
	}
	if base == ManifestFile {
		return "text/yaml"
	}
	return "application/octet-stream"
}
