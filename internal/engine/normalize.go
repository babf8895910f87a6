// File: internal/engine/normalize.go
package engine

import (
	"regexp"
	"strings"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeQuestion produces the stable lookup key for question text:
// lowercase, punctuation removed, whitespace collapsed. Near-duplicate
// phrasings across sessions normalize to the same key.
func NormalizeQuestion(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = nonWordRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
}

// CleanQuestionText removes the rendering artifacts the target UI leaves in
// question text: duplicated adjacent lines, a verbatim repetition of the whole
// phrase, and trailing "Required" boilerplate.
func CleanQuestionText(text string) string {
	t := strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, ln := range strings.Split(t, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.EqualFold(ln, "required") {
			continue
		}
		// The same line is sometimes emitted twice in a row in the DOM.
		if len(lines) > 0 && strings.EqualFold(lines[len(lines)-1], ln) {
			continue
		}
		lines = append(lines, ln)
	}
	if len(lines) == 0 {
		return ""
	}

	t = whitespaceRe.ReplaceAllString(strings.Join(lines, " "), " ")
	t = strings.TrimSpace(t)

	// Whole-phrase duplication: "Why us? Why us?" collapses to one copy.
	words := strings.Fields(t)
	if n := len(words); n >= 8 && n%2 == 0 {
		half := n / 2
		dup := true
		for i := 0; i < half; i++ {
			if !strings.EqualFold(words[i], words[half+i]) {
				dup = false
				break
			}
		}
		if dup {
			t = strings.Join(words[:half], " ")
		}
	}

	return strings.Trim(t, " :|-")
}

// stripRequiredMarker drops a trailing asterisk used as a required marker.
func stripRequiredMarker(text string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), "*"))
}
