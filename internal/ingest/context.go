package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"legacylift/internal/safeio"
)

// NoManifestContext is returned when a repository declares no known manifest.
const NoManifestContext = "No major dependency files found."

var ErrInvalidEncoding = errors.New("manifest is not valid UTF-8")

type manifest struct {
	file  string
	label string
}

var manifests = []manifest{
	{file: "requirements.txt", label: "Python Dependencies (requirements.txt)"},
	{file: "package.json", label: "Node.js Dependencies (package.json)"},
}

// ExtractContext summarizes the dependency manifests found at the root of a
// working copy. Each manifest is embedded verbatim under its label. An
// unreadable or non-UTF-8 manifest fails the extraction.
func ExtractContext(dir string) (string, error) {
	root, err := safeio.Open(dir)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range manifests {
		ok, err := root.Exists(m.file)
		if err != nil {
			return "", fmt.Errorf("%s: %w", m.file, err)
		}
		if !ok {
			continue
		}
		raw, err := root.ReadFile(m.file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", m.file, err)
		}
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%s: %w", m.file, ErrInvalidEncoding)
		}
		fmt.Fprintf(&b, "%s:\n%s\n", m.label, raw)
	}
	if b.Len() == 0 {
		return NoManifestContext, nil
	}
	return b.String(), nil
}
