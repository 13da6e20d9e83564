package llm

import "strings"

// forbidden lists the wrapping the model adds despite being told not to:
// fence language tags and the fence itself.
var forbidden = []string{"dockerfile", "yaml", "```"}

// Sanitize strips every occurrence of the forbidden substrings and trims the
// result. Removal repeats until none remain, so Sanitize(Sanitize(s)) ==
// Sanitize(s) even when a removal joins the pieces of another occurrence.
func Sanitize(raw string) string {
	s := raw
	for {
		prev := s
		for _, f := range forbidden {
			s = strings.ReplaceAll(s, f, "")
		}
		if s == prev {
			break
		}
	}
	return strings.TrimSpace(s)
}
