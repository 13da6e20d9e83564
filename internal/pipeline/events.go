package pipeline

import (
	"time"

	"legacylift/internal/artifact"
)

// Stage marks progress through a run.
type Stage string

const (
	StageCloning    Stage = "cloning"
	StageExtracting Stage = "extracting"
	StageGenerating Stage = "generating"
	StageGenerated  Stage = "generated"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Event reports one step of a run. Kind and Failed are only set for
// StageGenerated; Message carries the error text for StageFailed.
type Event struct {
	RunID   string        `json:"runId"`
	Stage   Stage         `json:"stage"`
	Kind    artifact.Kind `json:"kind,omitempty"`
	Failed  bool          `json:"failed,omitempty"`
	Message string        `json:"message,omitempty"`
	Time    time.Time     `json:"time"`
}

// Observer receives progress events. It may be called concurrently while
// artifacts are generated and must not block for long.
type Observer func(Event)
