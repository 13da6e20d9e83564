package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"legacylift/internal/artifact"
)

// bundleMarkdown lays the bundle out as one markdown document: a fenced
// block per artifact followed by the deploy commands.
func bundleMarkdown(b *artifact.Bundle) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Generated Artifacts for %s\n\n", b.RepoName)
	for _, a := range b.Artifacts() {
		fmt.Fprintf(&sb, "## %s\n\n", a.Kind.Title())
		lang := a.Kind.Language()
		if a.Failed() {
			lang = "text"
		}
		fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", lang, a.Content)
	}
	sb.WriteString("## One-Click Deployment Script\n\n")
	sb.WriteString("Run this in your Google Cloud Shell to deploy these artifacts.\n\n")
	fmt.Fprintf(&sb, "```bash\n%s\n```\n", strings.TrimSpace(artifact.DeployCommands))
	return sb.String()
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	return r
}

func render(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
