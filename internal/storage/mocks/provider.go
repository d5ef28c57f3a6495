package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/starford/contextbridge/internal/models"
)

// Provider is a mock for storage.Provider.
type Provider struct {
	mock.Mock
}

func (m *Provider) LatestSequence(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *Provider) FindProjectByName(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *Provider) CreateProject(ctx context.Context, in models.ProjectInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *Provider) ListProjects(ctx context.Context, includeDone bool) ([]models.Project, error) {
	args := m.Called(ctx, includeDone)
	if list, ok := args.Get(0).([]models.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Provider) FlaggedEntries(ctx context.Context, projectID string) ([]string, error) {
	args := m.Called(ctx, projectID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Provider) ClearMostRecent(ctx context.Context, entryID string) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *Provider) CreateEntry(ctx context.Context, entry *models.ContextEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *Provider) FindEntryBySession(ctx context.Context, sessionID string) (*models.ContextEntry, error) {
	args := m.Called(ctx, sessionID)
	if e, ok := args.Get(0).(*models.ContextEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

// Publisher is a Provider mock that also implements storage.Publisher.
type Publisher struct {
	Provider
}

func (m *Publisher) PublishEntry(ctx context.Context, entry *models.ContextEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}
