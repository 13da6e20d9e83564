package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultModelMarker is the substring that marks the preferred model.
	DefaultModelMarker = "1.5-flash"

	ActionGenerateContent = "generateContent"
)

var ErrNoModels = errors.New("llm: no model supports content generation")

// ModelInfo is one catalog entry.
type ModelInfo struct {
	Name             string
	SupportedActions []string
}

func (m ModelInfo) Supports(action string) bool {
	for _, a := range m.SupportedActions {
		if a == action {
			return true
		}
	}
	return false
}

// Catalog lists the models a provider offers.
type Catalog interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Selector picks the model used for a generation call.
type Selector interface {
	SelectModel(ctx context.Context) (string, error)
}

// StaticSelector always returns the same model.
type StaticSelector string

func (s StaticSelector) SelectModel(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoModels
	}
	return string(s), nil
}

// CatalogSelector queries the catalog on every call and prefers the first
// generation-capable model whose name contains Marker, falling back to the
// first generation-capable model. The result follows the provider's catalog
// and is not stable across catalog changes.
type CatalogSelector struct {
	Catalog Catalog
	Marker  string
}

func (s *CatalogSelector) SelectModel(ctx context.Context) (string, error) {
	if s == nil || s.Catalog == nil {
		return "", fmt.Errorf("llm: catalog is nil")
	}
	models, err := s.Catalog.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("list models: %w", err)
	}
	marker := s.Marker
	if marker == "" {
		marker = DefaultModelMarker
	}
	var available []string
	for _, m := range models {
		if m.Supports(ActionGenerateContent) {
			available = append(available, m.Name)
		}
	}
	if len(available) == 0 {
		return "", ErrNoModels
	}
	for _, name := range available {
		if strings.Contains(name, marker) {
			return name, nil
		}
	}
	return available[0], nil
}
