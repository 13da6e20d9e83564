package llm

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiProvider owns the genai client and hands out per-model clients that
// share the same system instruction.
type GeminiProvider struct {
	cli    *genai.Client
	system string
}

// GeminiOption adjusts the genai client configuration.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at another Gemini API endpoint. Empty keeps
// the default.
func WithBaseURL(u string) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		if u = strings.TrimSpace(u); u != "" {
			cfg.HTTPOptions.BaseURL = u
		}
	}
}

func NewGeminiProvider(ctx context.Context, apiKey, systemInstruction string, opts ...GeminiOption) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{cli: cli, system: systemInstruction}, nil
}

// ListModels returns the provider catalog in the order the API reports it.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var out []ModelInfo
	for m, err := range p.cli.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		out = append(out, ModelInfo{
			Name:             m.Name,
			SupportedActions: append([]string(nil), m.SupportedActions...),
		})
	}
	return out, nil
}

// NewClient is a Factory.
func (p *GeminiProvider) NewClient(_ context.Context, model string) (Client, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("gemini: model is required")
	}
	return &GeminiClient{cli: p.cli, model: model, system: p.system}, nil
}

// GeminiClient is a thin wrapper around one model. Cross-cutting concerns
// (rate limiting, timeouts, logging) are applied via Middleware.
type GeminiClient struct {
	cli    *genai.Client
	model  string
	system string
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if g.system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.system, genai.RoleUser)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
