package services

import (
	"regexp"
	"strings"
)

// The @ must start a word, so email addresses are not mentions.
var mentionPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_.])@([A-Za-z0-9_]+)`)

// ExtractMentions returns the distinct lowercased usernames mentioned in body
// in order of first appearance.
func ExtractMentions(body string) []string {
	matches := mentionPattern.FindAllStringSubmatch(body, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
