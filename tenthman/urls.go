package tenthman

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s\])>,]+`)

// ExtractURLs pulls absolute http/https URLs out of arbitrary text,
// deduplicated in first-occurrence order. Trailing sentence punctuation is
// stripped so "see https://a.com/x." yields a clean link.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, raw := range matches {
		clean := strings.TrimRight(raw, ".,;")
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
