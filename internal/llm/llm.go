package llm

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("llm: empty response from model")

// Client generates plain text from a prompt.
type Client interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
	Close() error
}

type ctxKeyPhase struct{}

// WithPhase labels the calls made with ctx, for logs.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
