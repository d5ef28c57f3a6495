package storage_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/contextbridge/internal/apperr"
	"github.com/starford/contextbridge/internal/models"
	"github.com/starford/contextbridge/internal/notiontest"
	"github.com/starford/contextbridge/internal/storage"
	"github.com/starford/contextbridge/internal/testutil"
)

const (
	projectsDB = testutil.ProjectsDatabaseID
	chatsDB    = testutil.ChatsDatabaseID
)

func newNotion(t *testing.T) (*storage.Notion, *notiontest.Server) {
	t.Helper()
	return testutil.TestNotion(t)
}

func chat(n int, session, projectID string) *models.ContextEntry {
	return &models.ContextEntry{
		ChatNumber:   n,
		Title:        "0001 - Fixed login bug",
		SessionID:    session,
		Summary:      "Fixed login bug",
		KeyDecisions: "use JWT",
		NextActions:  "write tests",
		Handoff:      "Continue from Session ID: " + session,
		ChatType:     models.ChatTroubleshooting,
		Status:       models.ContextStatusActive,
		Tags:         []string{"auth", "bug"},
		ProjectID:    projectID,
		MostRecent:   true,
		Date:         time.Date(2025, 8, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestNewNotion_RequiresCredentials(t *testing.T) {
	_, err := storage.NewNotion(storage.NotionConfig{ProjectsDatabaseID: "a", ChatsDatabaseID: "b"})
	require.Error(t, err)
	_, err = storage.NewNotion(storage.NotionConfig{Token: "t", ProjectsDatabaseID: "a"})
	require.Error(t, err)
}

func TestNotion_LatestSequence(t *testing.T) {
	n, _ := newNotion(t)
	ctx := context.Background()

	seq, err := n.LatestSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, seq)

	for _, num := range []int{4, 12, 9} {
		_, err := n.CreateEntry(ctx, chat(num, "Claude-x", ""))
		require.NoError(t, err)
	}
	seq, err = n.LatestSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, seq)
}

func TestNotion_CreateAndFindProject(t *testing.T) {
	n, fake := newNotion(t)
	ctx := context.Background()

	id, err := n.CreateProject(ctx, models.ProjectInput{Name: "Website Redesign", Status: models.StatusNotStarted})
	require.NoError(t, err)

	pages := fake.Pages(projectsDB)
	require.Len(t, pages, 1)
	assert.Equal(t, "Website Redesign", pages[0].PlainText(storage.PropProjectName))
	assert.False(t, pages[0].Has(storage.PropProjectGoal), "empty goal must be omitted")

	got, found, err := n.FindProjectByName(ctx, "Website Redesign")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)

	_, found, err = n.FindProjectByName(ctx, "Website")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNotion_ListProjects(t *testing.T) {
	n, _ := newNotion(t)
	ctx := context.Background()

	for _, in := range []models.ProjectInput{
		{Name: "Old", Status: models.StatusInProgress, Goal: "first"},
		{Name: "Finished", Status: models.StatusDone},
		{Name: "New", Status: models.StatusNotStarted},
	} {
		_, err := n.CreateProject(ctx, in)
		require.NoError(t, err)
	}

	active, err := n.ListProjects(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "New", active[0].Name)
	assert.Equal(t, models.StatusNotStarted, active[0].Status)
	assert.Equal(t, "Old", active[1].Name)
	assert.Equal(t, "first", active[1].Goal)

	all, err := n.ListProjects(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNotion_FlaggedEntriesFollowsCursor(t *testing.T) {
	n, fake := newNotion(t)
	fake.SetPageSize(2)
	ctx := context.Background()

	pid, err := n.CreateProject(ctx, models.ProjectInput{Name: "P", Status: models.StatusNotStarted})
	require.NoError(t, err)

	var want []string
	for i := 1; i <= 5; i++ {
		id, err := n.CreateEntry(ctx, chat(i, "Claude-x", pid))
		require.NoError(t, err)
		want = append(want, id)
	}
	unflagged := chat(6, "Claude-y", pid)
	unflagged.MostRecent = false
	_, err = n.CreateEntry(ctx, unflagged)
	require.NoError(t, err)

	ids, err := n.FlaggedEntries(ctx, pid)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, ids)
}

func TestNotion_ClearMostRecent(t *testing.T) {
	n, fake := newNotion(t)
	ctx := context.Background()

	id, err := n.CreateEntry(ctx, chat(1, "Claude-x", ""))
	require.NoError(t, err)
	require.NoError(t, n.ClearMostRecent(ctx, id))

	pages := fake.Pages(chatsDB)
	require.Len(t, pages, 1)
	assert.False(t, pages[0].Checkbox(storage.PropMostRecent))
	assert.Equal(t, "Fixed login bug", pages[0].PlainText(storage.PropSummary))
}

func TestNotion_CreateEntryWithoutProject(t *testing.T) {
	n, fake := newNotion(t)
	_, err := n.CreateEntry(context.Background(), chat(1, "Claude-x", ""))
	require.NoError(t, err)

	pages := fake.Pages(chatsDB)
	require.Len(t, pages, 1)
	assert.False(t, pages[0].Has(storage.PropProject))
	assert.True(t, pages[0].Checkbox(storage.PropMostRecent))
	assert.Equal(t, float64(1), pages[0].Number(storage.PropChatNumber))
	assert.Equal(t, map[string]any{"type": "emoji", "emoji": "💬"}, pages[0].Icon)
	assert.Nil(t, pages[0].Cover, "no cover without a cover url")
}

func TestNotion_CreateEntrySetsCover(t *testing.T) {
	const cover = "https://images.example.com/chats-banner.png"
	fake := notiontest.New(t)
	fake.AddDatabase(projectsDB, storage.PropProjectCreated)
	fake.AddDatabase(chatsDB, "")
	n, err := storage.NewNotion(storage.NotionConfig{
		Token:              "secret_test",
		ProjectsDatabaseID: projectsDB,
		ChatsDatabaseID:    chatsDB,
		CoverURL:           cover,
		HTTPClient:         fake.Client(),
	})
	require.NoError(t, err)

	_, err = n.CreateEntry(context.Background(), chat(1, "Claude-x", ""))
	require.NoError(t, err)

	pages := fake.Pages(chatsDB)
	require.Len(t, pages, 1)
	assert.Equal(t, map[string]any{
		"type":     "external",
		"external": map[string]any{"url": cover},
	}, pages[0].Cover)
	assert.Equal(t, "💬", pages[0].Icon["emoji"])
}

func TestNotion_FindEntryBySession(t *testing.T) {
	n, _ := newNotion(t)
	ctx := context.Background()

	pid, err := n.CreateProject(ctx, models.ProjectInput{Name: "P", Status: models.StatusNotStarted})
	require.NoError(t, err)
	_, err = n.CreateEntry(ctx, chat(7, "Claude-20250802143000", pid))
	require.NoError(t, err)

	got, err := n.FindEntryBySession(ctx, "20250802143000")
	require.NoError(t, err)
	assert.Equal(t, 7, got.ChatNumber)
	assert.Equal(t, "Claude-20250802143000", got.SessionID)
	assert.Equal(t, "use JWT", got.KeyDecisions)
	assert.Equal(t, "write tests", got.NextActions)
	assert.Equal(t, []string{"auth", "bug"}, got.Tags)
	assert.Equal(t, models.ChatTroubleshooting, got.ChatType)
	assert.Equal(t, pid, got.ProjectID)
	assert.Equal(t, 2025, got.Date.Year())

	_, err = n.FindEntryBySession(ctx, "Claude-1999")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNotion_ErrorsAreWrapped(t *testing.T) {
	n, fake := newNotion(t)
	fake.FailOn(http.MethodPost, "/v1/databases/", http.StatusBadRequest, "Could not find property with name or id: Chat #")

	_, err := n.LatestSequence(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: query latest chat")
	assert.Contains(t, err.Error(), "Chat #")
}
