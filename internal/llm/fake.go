package llm

import (
	"context"
	"sync"
)

// FakeClient answers prompts through Respond and records every prompt. It is
// used by tests and by offline runs.
type FakeClient struct {
	Model   string
	Respond func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *FakeClient) Name() string {
	if f.Model == "" {
		return "Fake"
	}
	return "Fake:" + f.Model
}

func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond == nil {
		return "", ErrEmptyResponse
	}
	return f.Respond(ctx, prompt)
}

// Prompts returns the prompts received so far, in arrival order.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// StaticCatalog is a fixed model list.
type StaticCatalog []ModelInfo

func (c StaticCatalog) ListModels(context.Context) ([]ModelInfo, error) {
	return append([]ModelInfo(nil), c...), nil
}
