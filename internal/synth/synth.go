// Package synth turns a repository context into the three deployment
// artifacts. Each kind is generated independently: one failure never stops
// the others.
package synth

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"legacylift/internal/artifact"
	"legacylift/internal/llm"
)

// Synthesizer issues one generation call per artifact kind.
type Synthesizer struct {
	client     llm.Client
	log        *zap.Logger
	sequential bool
}

type Option func(*Synthesizer)

// Sequential issues the calls one after another instead of concurrently.
func Sequential() Option {
	return func(s *Synthesizer) { s.sequential = true }
}

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.log = l
		}
	}
}

func New(client llm.Client, opts ...Option) *Synthesizer {
	s := &Synthesizer{client: client, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns exactly one artifact per kind, in artifact.Kinds order.
// Failed generations come back as artifact.Failed placeholders. done, if not
// nil, is called as each artifact completes, possibly from several goroutines.
func (s *Synthesizer) Synthesize(ctx context.Context, repoContext string, done func(artifact.Artifact)) []artifact.Artifact {
	kinds := artifact.Kinds()
	out := make([]artifact.Artifact, len(kinds))
	start := time.Now()

	if s.sequential {
		for i, k := range kinds {
			out[i] = s.generate(ctx, k, repoContext, done)
		}
	} else {
		var g errgroup.Group
		for i, k := range kinds {
			g.Go(func() error {
				out[i] = s.generate(ctx, k, repoContext, done)
				return nil
			})
		}
		_ = g.Wait()
	}

	failed := 0
	for _, a := range out {
		if a.Failed() {
			failed++
		}
	}
	s.log.Info("synthesized artifacts",
		zap.Int("failed", failed),
		zap.Bool("sequential", s.sequential),
		zap.Duration("took", time.Since(start)))
	return out
}

func (s *Synthesizer) generate(ctx context.Context, kind artifact.Kind, repoContext string, done func(artifact.Artifact)) (a artifact.Artifact) {
	if done != nil {
		defer func() { done(a) }()
	}
	prompt, err := Prompt(kind, repoContext)
	if err != nil {
		return artifact.Failed(kind, err)
	}
	raw, err := s.client.GenerateText(llm.WithPhase(ctx, kind.String()), prompt)
	if err != nil {
		s.log.Warn("generation failed", zap.Stringer("kind", kind), zap.Error(err))
		return artifact.Failed(kind, err)
	}
	return artifact.Artifact{Kind: kind, Raw: raw, Content: llm.Sanitize(raw)}
}
