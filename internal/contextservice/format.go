package contextservice

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/contextbridge/internal/models"
)

// maxTitleRunes is how much of the summary goes into a title.
const maxTitleRunes = 50

var titleUnsafe = regexp.MustCompile(`[^\w\s-]`)

// NotFoundText is returned by get_context when no entry matches.
const NotFoundText = "❌ No context found for this session ID."

// SessionID formats a session id from the local wall clock, e.g. Claude-20250802143000.
func SessionID(prefix string, now time.Time) string {
	return prefix + "-" + now.Local().Format("20060102150405")
}

// Title builds the display title "NNNN - descriptive" for a summary.
func Title(chatNumber int, summary string) string {
	desc := summary
	if utf8.RuneCountInString(desc) > maxTitleRunes {
		desc = string([]rune(desc)[:maxTitleRunes]) + "..."
	}
	desc = strings.TrimSpace(titleUnsafe.ReplaceAllString(desc, " "))
	return fmt.Sprintf("%04d - %s", chatNumber, desc)
}

func joinBullets(items []string) string {
	return strings.Join(items, "\n• ")
}

// Handoff renders the text a later session uses to pick up where this one stopped.
func Handoff(sessionID, summary, decisions, actions, projectName string, tags []string) string {
	return fmt.Sprintf(
		"Continue from Session ID: %s\n\nPrevious context:\n%s\n\nKey decisions made:\n%s\n\nNext actions to complete:\n%s\n\nProject: %s\nTags: %s",
		sessionID, summary, decisions, actions, projectName, strings.Join(tags, ", "),
	)
}

// SavedText is the confirmation shown after a save.
func SavedText(r *SaveResult) string {
	return fmt.Sprintf(
		"✅ Context saved successfully!\n\nSession ID: %s\nChat #: %d\nTitle: %s\n\nUse this ID to resume this conversation later.",
		r.SessionID, r.ChatNumber, r.Title,
	)
}

// DigestText renders a loaded entry.
func DigestText(e *models.ContextEntry) string {
	var date string
	if !e.Date.IsZero() {
		date = e.Date.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return fmt.Sprintf(
		"📋 **Loaded Context from %s**\n\n**Summary:** %s\n\n**Key Decisions:**\n%s\n\n**Next Actions:**\n%s\n\n**Tags:** %s",
		date, e.Summary, e.KeyDecisions, e.NextActions, strings.Join(e.Tags, ", "),
	)
}

// ProjectsText renders a project listing, one "• name (status)" line per project.
func ProjectsText(projects []models.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📁 **Available Projects (%d):**\n\n", len(projects))
	for i, p := range projects {
		if i > 0 {
			b.WriteByte('\n')
		}
		name, status := p.Name, string(p.Status)
		if name == "" {
			name = "Untitled"
		}
		if status == "" {
			status = "Unknown"
		}
		fmt.Fprintf(&b, "• %s (%s)", name, status)
	}
	return b.String()
}

// ProjectCreatedText is the confirmation shown after create_project.
func ProjectCreatedText(name string) string {
	return fmt.Sprintf("✅ Project \"%s\" created successfully!", name)
}
