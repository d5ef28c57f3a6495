package storage

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"
)

// Property names of the projects collection. They must match the workspace schema exactly.
const (
	PropProjectName    = "Project name"
	PropProjectStatus  = "Status"
	PropProjectGoal    = "Goal"
	PropProjectCreated = "Created"
)

// Property names of the chats collection.
const (
	PropChatTitle     = "Chat Title"
	PropChatNumber    = "Chat #"
	PropSessionID     = "Session ID"
	PropSummary       = "Summary"
	PropDate          = "Date"
	PropCreated       = "Created"
	PropChatType      = "Chat Type"
	PropContextStatus = "Context Status"
	PropDuration      = "Duration"
	PropProject       = "Project"
	PropTags          = "Tags"
	PropKeyDecisions  = "Key Decisions"
	PropNextActions   = "Next Actions"
	PropHandoff       = "Handoff Prompt"
	PropMostRecent    = "Is Most Recent"
)

// maxRichTextLen is the per-object content limit of the Notion API.
const maxRichTextLen = 2000

// richText splits s into rich text objects that each fit the API limit.
func richText(s string) []notionapi.RichText {
	out := []notionapi.RichText{}
	for s != "" {
		cut := len(s)
		if utf8.RuneCountInString(s) > maxRichTextLen {
			cut = 0
			for i := 0; i < maxRichTextLen; i++ {
				_, size := utf8.DecodeRuneInString(s[cut:])
				cut += size
			}
		}
		out = append(out, notionapi.RichText{Text: &notionapi.Text{Content: s[:cut]}})
		s = s[cut:]
	}
	return out
}

func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		switch {
		case rt.PlainText != "":
			b.WriteString(rt.PlainText)
		case rt.Text != nil:
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

func titleValue(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		return plainText(v.Title)
	case notionapi.TitleProperty:
		return plainText(v.Title)
	}
	return ""
}

func richTextValue(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.RichTextProperty:
		return plainText(v.RichText)
	case notionapi.RichTextProperty:
		return plainText(v.RichText)
	}
	return ""
}

func numberValue(p notionapi.Property) float64 {
	switch v := p.(type) {
	case *notionapi.NumberProperty:
		return v.Number
	case notionapi.NumberProperty:
		return v.Number
	}
	return 0
}

func checkboxValue(p notionapi.Property) bool {
	switch v := p.(type) {
	case *notionapi.CheckboxProperty:
		return v.Checkbox
	case notionapi.CheckboxProperty:
		return v.Checkbox
	}
	return false
}

func selectValue(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.SelectProperty:
		return v.Select.Name
	case notionapi.SelectProperty:
		return v.Select.Name
	}
	return ""
}

func statusValue(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.StatusProperty:
		return v.Status.Name
	case notionapi.StatusProperty:
		return v.Status.Name
	}
	return ""
}

func multiSelectValue(p notionapi.Property) []string {
	var opts []notionapi.Option
	switch v := p.(type) {
	case *notionapi.MultiSelectProperty:
		opts = v.MultiSelect
	case notionapi.MultiSelectProperty:
		opts = v.MultiSelect
	}
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Name)
	}
	return out
}

func relationValue(p notionapi.Property) string {
	var rels []notionapi.Relation
	switch v := p.(type) {
	case *notionapi.RelationProperty:
		rels = v.Relation
	case notionapi.RelationProperty:
		rels = v.Relation
	}
	if len(rels) == 0 {
		return ""
	}
	return rels[0].ID.String()
}

func dateValue(p notionapi.Property) time.Time {
	var d *notionapi.DateObject
	switch v := p.(type) {
	case *notionapi.DateProperty:
		d = v.Date
	case notionapi.DateProperty:
		d = v.Date
	}
	if d == nil || d.Start == nil {
		return time.Time{}
	}
	return time.Time(*d.Start)
}

func createdTimeValue(p notionapi.Property) time.Time {
	switch v := p.(type) {
	case *notionapi.CreatedTimeProperty:
		return v.CreatedTime
	case notionapi.CreatedTimeProperty:
		return v.CreatedTime
	}
	return time.Time{}
}
