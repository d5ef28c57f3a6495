// Package contextservice implements saving, loading and listing conversation
// context on top of a storage.Provider.
package contextservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/contextbridge/internal/apperr"
	"github.com/starford/contextbridge/internal/classify"
	"github.com/starford/contextbridge/internal/models"
	"github.com/starford/contextbridge/internal/storage"
)

// Settings controls project resolution and session naming.
type Settings struct {
	DefaultProject     string
	AutoCreateProjects bool
	SessionPrefix      string
}

// Service coordinates the save and load workflows.
type Service struct {
	store    storage.Provider
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for session ids and entry dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new context service.
func NewService(store storage.Provider, settings Settings, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, settings: settings, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SaveRequest defines the inputs of a save.
type SaveRequest struct {
	Summary      string
	ProjectName  string
	KeyDecisions []string
	NextActions  []string
	Tags         []string
}

// Validate checks the request.
func (r SaveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Summary, validation.Required),
	)
}

// SaveResult describes the stored entry.
type SaveResult struct {
	EntryID    string
	SessionID  string
	ChatNumber int
	Title      string
	ProjectID  string
	ChatType   models.ChatType
}

// SaveContext stores a new context entry and makes it the most recent one of its project.
// Steps run strictly in order and the first failure aborts the save.
func (s *Service) SaveContext(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	projectName := strings.TrimSpace(req.ProjectName)
	if projectName == "" {
		projectName = s.settings.DefaultProject
	}

	now := s.now()
	sessionID := SessionID(s.settings.SessionPrefix, now)
	log := s.logger.With("session_id", sessionID)

	latest, err := s.store.LatestSequence(ctx)
	if err != nil {
		return nil, err
	}
	chatNumber := latest + 1
	title := Title(chatNumber, req.Summary)
	log.Debug("sequence assigned", "chat_number", chatNumber, "title", title)

	projectID, err := s.ResolveProjectID(ctx, projectName)
	if err != nil {
		return nil, err
	}
	log.Debug("project resolved", "project", projectName, "project_id", projectID)

	_, atomic := s.store.(storage.Publisher)
	if projectID != "" && !atomic {
		if err := s.clearFlagged(ctx, projectID); err != nil {
			return nil, err
		}
	}

	chatType := classify.Summary(req.Summary)
	decisions := joinBullets(req.KeyDecisions)
	actions := joinBullets(req.NextActions)

	entry := &models.ContextEntry{
		ChatNumber:   chatNumber,
		Title:        title,
		SessionID:    sessionID,
		Summary:      req.Summary,
		KeyDecisions: decisions,
		NextActions:  actions,
		Handoff:      Handoff(sessionID, req.Summary, decisions, actions, projectName, req.Tags),
		ChatType:     chatType,
		Status:       models.ContextStatusActive,
		Tags:         nonNilSlice(req.Tags),
		ProjectID:    projectID,
		MostRecent:   true,
		Date:         now,
	}

	var id string
	if pub, ok := s.store.(storage.Publisher); ok {
		id, err = pub.PublishEntry(ctx, entry)
	} else {
		id, err = s.store.CreateEntry(ctx, entry)
	}
	if err != nil {
		return nil, err
	}
	log.Info("context saved", "chat_number", chatNumber, "chat_type", chatType, "entry_id", id)

	return &SaveResult{
		EntryID:    id,
		SessionID:  sessionID,
		ChatNumber: chatNumber,
		Title:      title,
		ProjectID:  projectID,
		ChatType:   chatType,
	}, nil
}

func (s *Service) clearFlagged(ctx context.Context, projectID string) error {
	ids, err := s.store.FlaggedEntries(ctx, projectID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.store.ClearMostRecent(ctx, id); err != nil {
			return err
		}
	}
	s.logger.Debug("previous entries unflagged", "project_id", projectID, "count", len(ids))
	return nil
}

// ResolveProjectID returns the id of the project named name, creating it when
// it is missing and auto-create is enabled. It returns "" when the project is
// missing and auto-create is off.
func (s *Service) ResolveProjectID(ctx context.Context, name string) (string, error) {
	id, found, err := s.store.FindProjectByName(ctx, name)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}
	if !s.settings.AutoCreateProjects {
		return "", nil
	}
	return s.store.CreateProject(ctx, models.ProjectInput{Name: name, Status: models.StatusNotStarted})
}

// GetContext returns the first entry whose session id contains sessionID.
// It returns apperr.ErrNotFound when nothing matches.
func (s *Service) GetContext(ctx context.Context, sessionID string) (*models.ContextEntry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId is required", apperr.ErrInvalidInput)
	}
	return s.store.FindEntryBySession(ctx, sessionID)
}

// ListProjects returns projects newest first. Done projects are skipped unless includeDone is set.
func (s *Service) ListProjects(ctx context.Context, includeDone bool) ([]models.Project, error) {
	return s.store.ListProjects(ctx, includeDone)
}

// CreateProjectRequest defines project creation inputs.
type CreateProjectRequest struct {
	Name        string
	Description string
	Status      models.ProjectStatus
}

// Validate checks the request. An empty status is accepted and defaults later.
func (r CreateProjectRequest) Validate() error {
	statuses := make([]any, 0, len(models.ProjectStatuses))
	for _, st := range models.ProjectStatuses {
		statuses = append(statuses, st)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Status, validation.In(statuses...)),
	)
}

// CreateProject creates a project and returns its id. Status defaults to Not started.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	status := req.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	id, err := s.store.CreateProject(ctx, models.ProjectInput{
		Name:   req.Name,
		Goal:   req.Description,
		Status: status,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("project created", "project", req.Name, "project_id", id, "status", status)
	return id, nil
}

// IsNotFound reports whether err means a lookup matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
