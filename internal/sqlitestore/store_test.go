package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/contextbridge/internal/apperr"
	"github.com/starford/contextbridge/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	clock := time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)
	s, err := Open(filepath.Join(t.TempDir(), "contextbridge.db"), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(n int, session, projectID string) *models.ContextEntry {
	return &models.ContextEntry{
		ChatNumber: n,
		Title:      "0001 - test",
		SessionID:  session,
		Summary:    "summary",
		ChatType:   models.ChatImplementation,
		Status:     models.ContextStatusActive,
		Tags:       []string{"go"},
		ProjectID:  projectID,
		MostRecent: true,
		Date:       time.Date(2025, 8, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestSchemaCreation(t *testing.T) {
	s := testStore(t)
	var count int
	require.NoError(t, s.conn.QueryRow(`SELECT count(*) FROM projects`).Scan(&count))
	require.NoError(t, s.conn.QueryRow(`SELECT count(*) FROM context_entries`).Scan(&count))
}

func TestLatestSequence(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	n, err := s.LatestSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, seq := range []int{3, 41, 7} {
		_, err := s.CreateEntry(ctx, entry(seq, "Claude-x", ""))
		require.NoError(t, err)
	}
	n, err = s.LatestSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 41, n)
}

func TestFindProjectByName_ExactMatch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateProject(ctx, models.ProjectInput{Name: "Website Redesign", Status: models.StatusNotStarted})
	require.NoError(t, err)

	got, found, err := s.FindProjectByName(ctx, "Website Redesign")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)

	_, found, err = s.FindProjectByName(ctx, "website redesign")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListProjects_OrderAndDoneFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, in := range []models.ProjectInput{
		{Name: "A", Status: models.StatusInProgress},
		{Name: "B", Status: models.StatusDone},
		{Name: "C", Status: models.StatusNotStarted, Goal: "ship it"},
	} {
		_, err := s.CreateProject(ctx, in)
		require.NoError(t, err)
	}

	active, err := s.ListProjects(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "C", active[0].Name)
	assert.Equal(t, "ship it", active[0].Goal)
	assert.Equal(t, "A", active[1].Name)

	all, err := s.ListProjects(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{all[0].Name, all[1].Name, all[2].Name})
	assert.Equal(t, models.StatusDone, all[1].Status)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
}

func TestPublishEntry_ClearsPreviousFlag(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pid, err := s.CreateProject(ctx, models.ProjectInput{Name: "P", Status: models.StatusNotStarted})
	require.NoError(t, err)
	other, err := s.CreateProject(ctx, models.ProjectInput{Name: "Q", Status: models.StatusNotStarted})
	require.NoError(t, err)

	first, err := s.PublishEntry(ctx, entry(1, "Claude-1", pid))
	require.NoError(t, err)
	untouched, err := s.PublishEntry(ctx, entry(2, "Claude-2", other))
	require.NoError(t, err)
	second, err := s.PublishEntry(ctx, entry(3, "Claude-3", pid))
	require.NoError(t, err)

	ids, err := s.FlaggedEntries(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, ids)
	assert.NotEqual(t, first, second)

	ids, err = s.FlaggedEntries(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, []string{untouched}, ids)
}

func TestPublishEntry_RollsBackOnFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pid, err := s.CreateProject(ctx, models.ProjectInput{Name: "P", Status: models.StatusNotStarted})
	require.NoError(t, err)
	prev, err := s.PublishEntry(ctx, entry(1, "Claude-1", pid))
	require.NoError(t, err)

	_, err = s.conn.Exec(`
		CREATE TRIGGER reject_boom BEFORE INSERT ON context_entries
		WHEN NEW.summary = 'boom'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	bad := entry(2, "Claude-2", pid)
	bad.Summary = "boom"
	_, err = s.PublishEntry(ctx, bad)
	require.Error(t, err)

	ids, err := s.FlaggedEntries(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []string{prev}, ids)
}

func TestClearMostRecent_UnknownID(t *testing.T) {
	s := testStore(t)
	err := s.ClearMostRecent(context.Background(), "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFindEntryBySession(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := entry(5, "Claude-20250802143000", "")
	e.Tags = []string{"a", "b"}
	e.KeyDecisions = "use sqlite"
	_, err := s.CreateEntry(ctx, e)
	require.NoError(t, err)

	got, err := s.FindEntryBySession(ctx, "20250802")
	require.NoError(t, err)
	assert.Equal(t, 5, got.ChatNumber)
	assert.Equal(t, "Claude-20250802143000", got.SessionID)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, "use sqlite", got.KeyDecisions)
	assert.Equal(t, models.ChatImplementation, got.ChatType)
	assert.True(t, got.MostRecent)
	assert.Empty(t, got.ProjectID)
	assert.True(t, e.Date.Equal(got.Date))

	_, err = s.FindEntryBySession(ctx, "Claude-1999")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
