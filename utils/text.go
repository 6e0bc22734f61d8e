package utils

import "strings"

// TruncateRunes shortens s to at most max runes.
func TruncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// DeriveDocumentContent builds the embeddable text of a document from its
// structured fields. The client-supplied content field is never used, so the
// indexed text always matches question/answer.
func DeriveDocumentContent(question, answer string) string {
	var parts []string
	if question != "" {
		parts = append(parts, "Q: "+question)
	}
	if answer != "" {
		parts = append(parts, "A: "+answer)
	}
	return strings.Join(parts, "\n")
}
