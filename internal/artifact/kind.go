package artifact

import (
	"fmt"
	"strings"
)

// Kind names one of the three generated deployment files.
type Kind string

const (
	KindDockerfile Kind = "dockerfile"
	KindCloudBuild Kind = "cloudbuild"
	KindService    Kind = "service_yaml"
)

type kindSpec struct {
	fileName string
	mimeType string
	title    string
	language string
}

var kindSpecs = map[Kind]kindSpec{
	KindDockerfile: {fileName: "Dockerfile", mimeType: "text/plain", title: "Dockerfile", language: "dockerfile"},
	KindCloudBuild: {fileName: "cloudbuild.yaml", mimeType: "text/yaml", title: "cloudbuild.yaml", language: "yaml"},
	KindService:    {fileName: "service.yaml", mimeType: "text/yaml", title: "service.yaml", language: "yaml"},
}

// Kinds returns every kind in display order.
func Kinds() []Kind {
	return []Kind{KindDockerfile, KindCloudBuild, KindService}
}

// ParseKind accepts either the kind identifier or its canonical file name.
func ParseKind(raw string) (Kind, error) {
	raw = strings.TrimSpace(raw)
	for _, k := range Kinds() {
		if strings.EqualFold(raw, string(k)) || raw == k.FileName() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown artifact kind %q", raw)
}

func (k Kind) Valid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// FileName is the canonical download name.
func (k Kind) FileName() string { return kindSpecs[k].fileName }

func (k Kind) MIMEType() string { return kindSpecs[k].mimeType }

func (k Kind) Title() string { return kindSpecs[k].title }

// Language is the syntax-highlighting hint used when rendering the artifact.
func (k Kind) Language() string { return kindSpecs[k].language }

func (k Kind) String() string { return string(k) }
