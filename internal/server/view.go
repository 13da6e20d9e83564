package server

import (
	"embed"
	"html/template"
	"time"

	"legacylift/internal/artifact"
)

//go:embed templates/index.html
var templateFS embed.FS

func parsePage() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/index.html")
}

type artifactView struct {
	Kind        artifact.Kind `json:"kind"`
	Title       string        `json:"title"`
	FileName    string        `json:"fileName"`
	Language    string        `json:"language"`
	Content     string        `json:"content"`
	Failed      bool          `json:"failed,omitempty"`
	DownloadURL string        `json:"downloadUrl"`
}

type bundleView struct {
	RunID          string         `json:"runId"`
	RepoURL        string         `json:"repoUrl"`
	RepoName       string         `json:"repoName"`
	CreatedAt      time.Time      `json:"createdAt"`
	Artifacts      []artifactView `json:"artifacts"`
	DeployCommands string         `json:"deployCommands"`
	LastError      string         `json:"lastError,omitempty"`
}

func newBundleView(b *artifact.Bundle) *bundleView {
	if b == nil {
		return nil
	}
	v := &bundleView{
		RunID:          b.RunID,
		RepoURL:        b.RepoURL,
		RepoName:       b.RepoName,
		CreatedAt:      b.CreatedAt,
		DeployCommands: artifact.DeployCommands,
	}
	for _, a := range b.Artifacts() {
		v.Artifacts = append(v.Artifacts, artifactView{
			Kind:        a.Kind,
			Title:       a.Kind.Title(),
			FileName:    a.Kind.FileName(),
			Language:    a.Kind.Language(),
			Content:     a.Content,
			Failed:      a.Failed(),
			DownloadURL: "/download/" + string(a.Kind),
		})
	}
	return v
}

type pageData struct {
	URL     string
	Error   string
	Running bool
	Bundle  *bundleView
	Deploy  string
}
