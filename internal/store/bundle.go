package store

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"legacylift/internal/artifact"
)

// ManifestFile is written next to the artifacts of every saved bundle.
const ManifestFile = "bundle.yaml"

type Manifest struct {
	RunID     string         `yaml:"run_id" json:"runId"`
	RepoURL   string         `yaml:"repo_url" json:"repoUrl"`
	RepoName  string         `yaml:"repo_name" json:"repoName"`
	CreatedAt time.Time      `yaml:"created_at" json:"createdAt"`
	Files     []ManifestItem `yaml:"files" json:"files"`
}

type ManifestItem struct {
	Kind     artifact.Kind `yaml:"kind" json:"kind"`
	Path     string        `yaml:"path" json:"path"`
	MIMEType string        `yaml:"mime_type" json:"mimeType"`
	Bytes    int           `yaml:"bytes" json:"bytes"`
	Failed   bool          `yaml:"failed,omitempty" json:"failed,omitempty"`
}

// Item returns the manifest entry for kind.
func (m *Manifest) Item(kind artifact.Kind) (ManifestItem, bool) {
	for _, f := range m.Files {
		if f.Kind == kind {
			return f, true
		}
	}
	return ManifestItem{}, false
}

// SaveBundle writes the three artifact files and the manifest under key.
// key is usually the bundle's run id.
func SaveBundle(ctx context.Context, s Store, key string, b *artifact.Bundle) (*Manifest, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle is nil")
	}
	m := &Manifest{
		RunID:     b.RunID,
		RepoURL:   b.RepoURL,
		RepoName:  b.RepoName,
		CreatedAt: b.CreatedAt,
	}
	for _, a := range b.Artifacts() {
		name := a.Kind.FileName()
		if err := s.Put(ctx, key, name, []byte(a.Content)); err != nil {
			return nil, fmt.Errorf("save %s: %w", name, err)
		}
		m.Files = append(m.Files, ManifestItem{
			Kind:     a.Kind,
			Path:     name,
			MIMEType: a.Kind.MIMEType(),
			Bytes:    len(a.Content),
			Failed:   a.Failed(),
		})
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := s.Put(ctx, key, ManifestFile, raw); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}
	return m, nil
}

// LoadManifest reads the manifest saved under key.
func LoadManifest(ctx context.Context, s Store, key string) (*Manifest, error) {
	raw, err := s.Get(ctx, key, ManifestFile)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
