package backend

import (
	"regexp"
	"strings"
)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•・]|\d+[.)、]|[(（]\d+[)）]|Q\d+[:.：]?)\s*`)

// ExtractQuestions returns the question lines of a hypothesis text, in order,
// with list markers and markdown emphasis removed.
func ExtractQuestions(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		q = strings.Trim(q, "*_ ")
		if q == "" {
			continue
		}
		if !strings.HasSuffix(q, "?") && !strings.HasSuffix(q, "？") {
			continue
		}
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}
