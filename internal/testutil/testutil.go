// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/contextbridge/internal/contextservice"
	"github.com/starford/contextbridge/internal/notiontest"
	"github.com/starford/contextbridge/internal/sqlitestore"
	"github.com/starford/contextbridge/internal/storage"
)

// Database ids registered on the fake Notion server by TestNotion.
const (
	ProjectsDatabaseID = "11111111-1111-1111-1111-111111111111"
	ChatsDatabaseID    = "22222222-2222-2222-2222-222222222222"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestStore creates a temporary SQLite store that is automatically closed.
func TestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "contextbridge-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestNotion creates a Notion store backed by an in-process fake API.
func TestNotion(t *testing.T) (*storage.Notion, *notiontest.Server) {
	t.Helper()
	fake := notiontest.New(t)
	fake.AddDatabase(ProjectsDatabaseID, storage.PropProjectCreated)
	fake.AddDatabase(ChatsDatabaseID, "")
	store, err := storage.NewNotion(storage.NotionConfig{
		Token:              "secret_test",
		ProjectsDatabaseID: ProjectsDatabaseID,
		ChatsDatabaseID:    ChatsDatabaseID,
		HTTPClient:         fake.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return store, fake
}

// TestService wires a service with default settings and a clock that
// advances one second per call, starting at start.
func TestService(store storage.Provider, start time.Time) *contextservice.Service {
	now := start
	return contextservice.NewService(store, contextservice.Settings{
		DefaultProject:     "General Inquiries",
		AutoCreateProjects: true,
		SessionPrefix:      "Claude",
	}, Logger(), contextservice.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
}
