package ai

import "regexp"

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fenced     = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	bracePair  = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON pulls a JSON document out of free-form model output. Models
// wrap structured answers in markdown fences more often than not, so the
// lookup order is: ```json fence, bare fence, outermost brace pair.
// Returns "" when nothing resembling JSON is present.
func ExtractJSON(text string) string {
	if text == "" {
		return ""
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := fenced.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bracePair.FindString(text); m != "" {
		return m
	}
	return ""
}
