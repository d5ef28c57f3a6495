// Package classify assigns a chat type to a conversation summary.
package classify

import (
	"strings"

	"github.com/starford/contextbridge/internal/models"
)

// Rule maps a set of keywords to a chat type.
type Rule struct {
	Keywords []string
	Type     models.ChatType
}

// Match reports whether the lowercased text contains any of the rule's keywords.
func (r Rule) Match(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Rules is evaluated top to bottom; the first match wins.
var Rules = []Rule{
	{Keywords: []string{"test", "debug"}, Type: models.ChatTesting},
	{Keywords: []string{"plan", "design"}, Type: models.ChatPlanning},
	{Keywords: []string{"setup", "set up", "config"}, Type: models.ChatSetup},
	{Keywords: []string{"document"}, Type: models.ChatDocumentation},
	{Keywords: []string{"troubleshoot", "fix"}, Type: models.ChatTroubleshooting},
}

// Fallback is returned when no rule matches.
const Fallback = models.ChatImplementation

// Summary classifies a summary using Rules.
func Summary(summary string) models.ChatType {
	lower := strings.ToLower(summary)
	for _, r := range Rules {
		if r.Match(lower) {
			return r.Type
		}
	}
	return Fallback
}
