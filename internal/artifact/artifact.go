package artifact

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorMarker prefixes the placeholder text stored in a slot whose
// generation failed.
const ErrorMarker = "AI Error: "

var ErrIncompleteBundle = errors.New("bundle must hold exactly one artifact per kind")

// Artifact is one generated file. Content is the sanitized model output, or
// an ErrorMarker placeholder when Err is set.
type Artifact struct {
	Kind    Kind
	Raw     string
	Content string
	Err     error
}

// Failed builds the placeholder artifact for a generation error.
func Failed(kind Kind, err error) Artifact {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Artifact{Kind: kind, Content: ErrorMarker + err.Error(), Err: err}
}

// Failed reports whether generation failed. Content that merely starts
// with ErrorMarker is model output, not a failure.
func (a Artifact) Failed() bool {
	return a.Err != nil
}

// Bundle is the complete result of one migration run. It only exists fully
// populated; use NewBundle to build one.
type Bundle struct {
	RunID     string
	RepoURL   string
	RepoName  string
	CreatedAt time.Time

	artifacts map[Kind]Artifact
}

// NewBundle assembles a bundle from exactly one artifact per kind.
func NewBundle(runID, repoURL string, artifacts []Artifact) (*Bundle, error) {
	byKind := make(map[Kind]Artifact, len(artifacts))
	for _, a := range artifacts {
		if !a.Kind.Valid() {
			return nil, fmt.Errorf("%w: unknown kind %q", ErrIncompleteBundle, a.Kind)
		}
		if _, dup := byKind[a.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate kind %q", ErrIncompleteBundle, a.Kind)
		}
		byKind[a.Kind] = a
	}
	for _, k := range Kinds() {
		if _, ok := byKind[k]; !ok {
			return nil, fmt.Errorf("%w: missing kind %q", ErrIncompleteBundle, k)
		}
	}
	return &Bundle{
		RunID:     strings.TrimSpace(runID),
		RepoURL:   strings.TrimSpace(repoURL),
		RepoName:  RepoName(repoURL),
		CreatedAt: time.Now().UTC(),
		artifacts: byKind,
	}, nil
}

// Get returns the artifact of the given kind.
func (b *Bundle) Get(kind Kind) (Artifact, bool) {
	if b == nil {
		return Artifact{}, false
	}
	a, ok := b.artifacts[kind]
	return a, ok
}

// Artifacts returns the artifacts in display order.
func (b *Bundle) Artifacts() []Artifact {
	if b == nil {
		return nil
	}
	out := make([]Artifact, 0, len(b.artifacts))
	for _, k := range Kinds() {
		out = append(out, b.artifacts[k])
	}
	return out
}

// FailedKinds lists the kinds whose slot holds an error placeholder.
func (b *Bundle) FailedKinds() []Kind {
	var out []Kind
	for _, a := range b.Artifacts() {
		if a.Failed() {
			out = append(out, a.Kind)
		}
	}
	return out
}

// RepoName derives the display name from a repository URL: the last path
// segment with any trailing ".git" removed.
func RepoName(repoURL string) string {
	s := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(s, ".git")
}
