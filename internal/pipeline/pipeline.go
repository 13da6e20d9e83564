// Package pipeline runs one migration: clone the repository, summarize its
// manifests and synthesize the deployment artifacts into a bundle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legacylift/internal/artifact"
	"legacylift/internal/ingest"
)

var (
	ErrClone   = errors.New("clone failed")
	ErrContext = errors.New("context extraction failed")
)

type Cloner interface {
	Clone(ctx context.Context, repoURL string) (string, error)
}

// Extractor summarizes a working copy.
type Extractor func(dir string) (string, error)

type Synthesizer interface {
	Synthesize(ctx context.Context, repoContext string, done func(artifact.Artifact)) []artifact.Artifact
}

type Pipeline struct {
	cloner  Cloner
	extract Extractor
	synth   Synthesizer
	log     *zap.Logger
	newID   func() string

	// workMu guards the shared working copy from clone through extraction.
	workMu sync.Mutex
}

type Option func(*Pipeline)

func WithExtractor(fn Extractor) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.extract = fn
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithIDs overrides run id generation.
func WithIDs(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

func New(cloner Cloner, synth Synthesizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		cloner:  cloner,
		extract: ingest.ExtractContext,
		synth:   synth,
		log:     zap.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one migration. A clone or extraction failure ends the run
// without a bundle; generation failures are carried inside the bundle.
func (p *Pipeline) Run(ctx context.Context, repoURL string, obs Observer) (*artifact.Bundle, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, ingest.ErrEmptyURL
	}
	runID := p.newID()
	log := p.log.With(zap.String("run_id", runID), zap.String("repo", repoURL))
	emit := func(e Event) {
		if obs == nil {
			return
		}
		e.RunID = runID
		e.Time = time.Now().UTC()
		obs(e)
	}
	fail := func(err error) (*artifact.Bundle, error) {
		log.Warn("run failed", zap.Error(err))
		emit(Event{Stage: StageFailed, Message: err.Error()})
		return nil, err
	}

	emit(Event{Stage: StageCloning})
	repoContext, err := p.ingest(ctx, repoURL, emit)
	if err != nil {
		return fail(err)
	}
	log.Debug("extracted context", zap.Int("bytes", len(repoContext)))

	emit(Event{Stage: StageGenerating})
	arts := p.synth.Synthesize(ctx, repoContext, func(a artifact.Artifact) {
		emit(Event{Stage: StageGenerated, Kind: a.Kind, Failed: a.Failed()})
	})

	bundle, err := artifact.NewBundle(runID, repoURL, arts)
	if err != nil {
		return fail(err)
	}
	log.Info("run complete", zap.Int("failed_artifacts", len(bundle.FailedKinds())))
	emit(Event{Stage: StageDone})
	return bundle, nil
}

func (p *Pipeline) ingest(ctx context.Context, repoURL string, emit func(Event)) (string, error) {
	p.workMu.Lock()
	defer p.workMu.Unlock()

	dir, err := p.cloner.Clone(ctx, repoURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClone, err)
	}
	emit(Event{Stage: StageExtracting})
	repoContext, err := p.extract(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContext, err)
	}
	return repoContext, nil
}

// Reason strips the stage prefix from a Run error, leaving the underlying
// cause for display.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, stage := range []error{ErrClone, ErrContext} {
		if errors.Is(err, stage) {
			return strings.TrimPrefix(msg, stage.Error()+": ")
		}
	}
	return msg
}
