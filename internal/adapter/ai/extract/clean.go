package extract

import (
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// removeMarkdownBlocks strips a surrounding ```json fence.
func removeMarkdownBlocks(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// cleanEscapes turns literal "\n" sequences into newlines, drops literal "\r"
// sequences and removes trailing commas before a closing bracket.
func cleanEscapes(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\r`, "")
	return trailingComma.ReplaceAllString(s, "$1")
}
