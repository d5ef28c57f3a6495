package storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jomei/notionapi"

	"github.com/starford/contextbridge/internal/apperr"
	"github.com/starford/contextbridge/internal/models"
)

const chatIcon = notionapi.Emoji("💬")

// NotionConfig holds what the Notion backend needs to reach the two collections.
type NotionConfig struct {
	Token              string
	ProjectsDatabaseID string
	ChatsDatabaseID    string
	// CoverURL is an external image set as the cover of new chat pages. Empty sets none.
	CoverURL string
	// HTTPClient overrides the transport, mostly for tests. Nil uses the library default.
	HTTPClient *http.Client
}

// Notion implements Provider on top of two Notion databases.
//
// Notion has no multi-page transactions, so Notion does not implement
// Publisher: clearing old flags and creating the new entry are separate
// requests and concurrent writers can leave zero or several entries flagged.
type Notion struct {
	client     *notionapi.Client
	projectsDB notionapi.DatabaseID
	chatsDB    notionapi.DatabaseID
	coverURL   string
}

// NewNotion creates a Notion provider.
func NewNotion(cfg NotionConfig) (*Notion, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("storage: notion token is empty")
	}
	if cfg.ProjectsDatabaseID == "" || cfg.ChatsDatabaseID == "" {
		return nil, fmt.Errorf("storage: notion database ids are required")
	}
	var opts []notionapi.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, notionapi.WithHTTPClient(cfg.HTTPClient))
	}
	return &Notion{
		client:     notionapi.NewClient(notionapi.Token(cfg.Token), opts...),
		projectsDB: notionapi.DatabaseID(cfg.ProjectsDatabaseID),
		chatsDB:    notionapi.DatabaseID(cfg.ChatsDatabaseID),
		coverURL:   cfg.CoverURL,
	}, nil
}

// LatestSequence returns the highest "Chat #" value.
func (n *Notion) LatestSequence(ctx context.Context) (int, error) {
	resp, err := n.client.Database.Query(ctx, n.chatsDB, &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{
			{Property: PropChatNumber, Direction: notionapi.SortOrderDESC},
		},
		PageSize: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("notion: query latest chat: %w", err)
	}
	if len(resp.Results) == 0 {
		return 0, nil
	}
	return int(numberValue(resp.Results[0].Properties[PropChatNumber])), nil
}

// FindProjectByName looks a project up by exact title.
func (n *Notion) FindProjectByName(ctx context.Context, name string) (string, bool, error) {
	resp, err := n.client.Database.Query(ctx, n.projectsDB, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropProjectName,
			RichText: &notionapi.TextFilterCondition{Equals: name},
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("notion: find project %q: %w", name, err)
	}
	if len(resp.Results) == 0 {
		return "", false, nil
	}
	return resp.Results[0].ID.String(), true, nil
}

// CreateProject creates a project page. Goal is omitted when empty.
func (n *Notion) CreateProject(ctx context.Context, in models.ProjectInput) (string, error) {
	props := notionapi.Properties{
		PropProjectName: notionapi.TitleProperty{Title: richText(in.Name)},
		PropProjectStatus: notionapi.StatusProperty{
			Status: notionapi.Status{Name: string(in.Status)},
		},
	}
	if in.Goal != "" {
		props[PropProjectGoal] = notionapi.RichTextProperty{RichText: richText(in.Goal)}
	}
	page, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: n.projectsDB},
		Properties: props,
	})
	if err != nil {
		return "", fmt.Errorf("notion: create project %q: %w", in.Name, err)
	}
	return page.ID.String(), nil
}

// ListProjects returns projects sorted by creation time, newest first.
func (n *Notion) ListProjects(ctx context.Context, includeDone bool) ([]models.Project, error) {
	req := &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{
			{Property: PropProjectCreated, Direction: notionapi.SortOrderDESC},
		},
	}
	if !includeDone {
		req.Filter = notionapi.PropertyFilter{
			Property: PropProjectStatus,
			Status:   &notionapi.StatusFilterCondition{DoesNotEqual: string(models.StatusDone)},
		}
	}
	pages, err := n.queryAll(ctx, n.projectsDB, req)
	if err != nil {
		return nil, fmt.Errorf("notion: list projects: %w", err)
	}
	out := make([]models.Project, 0, len(pages))
	for _, p := range pages {
		created := createdTimeValue(p.Properties[PropProjectCreated])
		if created.IsZero() {
			created = p.CreatedTime
		}
		out = append(out, models.Project{
			ID:        p.ID.String(),
			Name:      titleValue(p.Properties[PropProjectName]),
			Status:    models.ProjectStatus(statusValue(p.Properties[PropProjectStatus])),
			Goal:      richTextValue(p.Properties[PropProjectGoal]),
			CreatedAt: created,
		})
	}
	return out, nil
}

// FlaggedEntries returns the project's entries whose "Is Most Recent" box is checked.
func (n *Notion) FlaggedEntries(ctx context.Context, projectID string) ([]string, error) {
	pages, err := n.queryAll(ctx, n.chatsDB, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.AndCompoundFilter{
			notionapi.PropertyFilter{
				Property: PropProject,
				Relation: &notionapi.RelationFilterCondition{Contains: projectID},
			},
			notionapi.PropertyFilter{
				Property: PropMostRecent,
				Checkbox: &notionapi.CheckboxFilterCondition{Equals: true},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("notion: query flagged chats: %w", err)
	}
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.ID.String())
	}
	return ids, nil
}

// ClearMostRecent unchecks "Is Most Recent" on one chat page.
func (n *Notion) ClearMostRecent(ctx context.Context, entryID string) error {
	_, err := n.client.Page.Update(ctx, notionapi.PageID(entryID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			PropMostRecent: notionapi.CheckboxProperty{Checkbox: false},
		},
	})
	if err != nil {
		return fmt.Errorf("notion: clear most recent on %s: %w", entryID, err)
	}
	return nil
}

// CreateEntry creates a chat page with every tracked property.
func (n *Notion) CreateEntry(ctx context.Context, e *models.ContextEntry) (string, error) {
	date := notionapi.Date(e.Date)
	tags := make([]notionapi.Option, 0, len(e.Tags))
	for _, t := range e.Tags {
		tags = append(tags, notionapi.Option{Name: t})
	}

	props := notionapi.Properties{
		PropChatTitle:     notionapi.TitleProperty{Title: richText(e.Title)},
		PropChatNumber:    notionapi.NumberProperty{Number: float64(e.ChatNumber)},
		PropSessionID:     notionapi.RichTextProperty{RichText: richText(e.SessionID)},
		PropSummary:       notionapi.RichTextProperty{RichText: richText(e.Summary)},
		PropDate:          notionapi.DateProperty{Date: &notionapi.DateObject{Start: &date}},
		PropCreated:       notionapi.DateProperty{Date: &notionapi.DateObject{Start: &date}},
		PropChatType:      notionapi.SelectProperty{Select: notionapi.Option{Name: string(e.ChatType)}},
		PropContextStatus: notionapi.SelectProperty{Select: notionapi.Option{Name: e.Status}},
		PropDuration:      notionapi.NumberProperty{Number: 0},
		PropTags:          notionapi.MultiSelectProperty{MultiSelect: tags},
		PropKeyDecisions:  notionapi.RichTextProperty{RichText: richText(e.KeyDecisions)},
		PropNextActions:   notionapi.RichTextProperty{RichText: richText(e.NextActions)},
		PropHandoff:       notionapi.RichTextProperty{RichText: richText(e.Handoff)},
		PropMostRecent:    notionapi.CheckboxProperty{Checkbox: e.MostRecent},
	}
	if e.ProjectID != "" {
		props[PropProject] = notionapi.RelationProperty{
			Relation: []notionapi.Relation{{ID: notionapi.PageID(e.ProjectID)}},
		}
	}

	icon := chatIcon
	req := &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: n.chatsDB},
		Properties: props,
		Icon:       &notionapi.Icon{Type: "emoji", Emoji: &icon},
	}
	if n.coverURL != "" {
		req.Cover = &notionapi.Image{
			Type:     notionapi.FileTypeExternal,
			External: &notionapi.FileObject{URL: n.coverURL},
		}
	}
	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("notion: create chat: %w", err)
	}
	return page.ID.String(), nil
}

// FindEntryBySession returns the first chat whose "Session ID" contains sessionID.
func (n *Notion) FindEntryBySession(ctx context.Context, sessionID string) (*models.ContextEntry, error) {
	resp, err := n.client.Database.Query(ctx, n.chatsDB, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropSessionID,
			RichText: &notionapi.TextFilterCondition{Contains: sessionID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("notion: find chat by session: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, apperr.ErrNotFound
	}
	return entryFromPage(resp.Results[0]), nil
}

// queryAll follows next_cursor until the query is exhausted.
func (n *Notion) queryAll(ctx context.Context, db notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	for {
		resp, err := n.client.Database.Query(ctx, db, req)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		req.StartCursor = resp.NextCursor
	}
}

func entryFromPage(p notionapi.Page) *models.ContextEntry {
	props := p.Properties
	date := dateValue(props[PropDate])
	if date.IsZero() {
		date = p.CreatedTime
	}
	return &models.ContextEntry{
		ID:           p.ID.String(),
		ChatNumber:   int(numberValue(props[PropChatNumber])),
		Title:        titleValue(props[PropChatTitle]),
		SessionID:    richTextValue(props[PropSessionID]),
		Summary:      richTextValue(props[PropSummary]),
		KeyDecisions: richTextValue(props[PropKeyDecisions]),
		NextActions:  richTextValue(props[PropNextActions]),
		Handoff:      richTextValue(props[PropHandoff]),
		ChatType:     models.ChatType(selectValue(props[PropChatType])),
		Status:       selectValue(props[PropContextStatus]),
		Tags:         multiSelectValue(props[PropTags]),
		ProjectID:    relationValue(props[PropProject]),
		MostRecent:   checkboxValue(props[PropMostRecent]),
		Date:         date,
	}
}

var _ Provider = (*Notion)(nil)
