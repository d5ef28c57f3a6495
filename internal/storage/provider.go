// Package storage defines the datastore abstraction for projects and context entries.
package storage

import (
	"context"

	"github.com/starford/contextbridge/internal/models"
)

// Provider is the interface for project and context entry operations.
type Provider interface {
	// LatestSequence returns the highest chat number in the store, or 0 when empty.
	LatestSequence(ctx context.Context) (int, error)
	// FindProjectByName returns the id of the first project whose name equals name exactly.
	FindProjectByName(ctx context.Context, name string) (id string, found bool, err error)
	// CreateProject creates a project and returns its id.
	CreateProject(ctx context.Context, in models.ProjectInput) (string, error)
	// ListProjects returns projects newest first, skipping Done ones unless includeDone is set.
	ListProjects(ctx context.Context, includeDone bool) ([]models.Project, error)
	// FlaggedEntries returns the ids of the project's entries marked most recent.
	FlaggedEntries(ctx context.Context, projectID string) ([]string, error)
	// ClearMostRecent unsets the most-recent flag on one entry.
	ClearMostRecent(ctx context.Context, entryID string) error
	// CreateEntry stores a new context entry and returns its id.
	CreateEntry(ctx context.Context, entry *models.ContextEntry) (string, error)
	// FindEntryBySession returns the first entry whose session id contains sessionID.
	// It returns apperr.ErrNotFound when nothing matches.
	FindEntryBySession(ctx context.Context, sessionID string) (*models.ContextEntry, error)
}

// Publisher is implemented by stores that can clear the previous most-recent
// entries of a project and create the new entry as a single atomic unit.
type Publisher interface {
	PublishEntry(ctx context.Context, entry *models.ContextEntry) (string, error)
}
