package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/contextbridge/internal/apperr"
	"github.com/starford/contextbridge/internal/models"
	"github.com/starford/contextbridge/internal/storage"
)

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LatestSequence returns the highest chat number, or 0 for an empty store.
func (s *Store) LatestSequence(ctx context.Context) (int, error) {
	var n sql.NullInt64
	if err := s.conn.QueryRowContext(ctx, `SELECT MAX(chat_number) FROM context_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlitestore: latest sequence: %w", err)
	}
	return int(n.Int64), nil
}

// FindProjectByName returns the oldest project whose name matches exactly.
func (s *Store) FindProjectByName(ctx context.Context, name string) (string, bool, error) {
	var id string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id FROM projects WHERE name = ? ORDER BY created_at, rowid LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlitestore: find project %q: %w", name, err)
	}
	return id, true, nil
}

// CreateProject inserts a project and returns its generated id.
func (s *Store) CreateProject(ctx context.Context, in models.ProjectInput) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO projects (id, name, status, goal, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, in.Name, string(in.Status), in.Goal, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("sqlitestore: create project %q: %w", in.Name, err)
	}
	return id, nil
}

// ListProjects returns projects newest first.
func (s *Store) ListProjects(ctx context.Context, includeDone bool) ([]models.Project, error) {
	q := `SELECT id, name, status, goal, created_at FROM projects`
	var args []any
	if !includeDone {
		q += ` WHERE status != ?`
		args = append(args, string(models.StatusDone))
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var (
			p      models.Project
			status string
		)
		if err := rows.Scan(&p.ID, &p.Name, &status, &p.Goal, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan project: %w", err)
		}
		p.Status = models.ProjectStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// FlaggedEntries returns the ids of the project's entries marked most recent.
func (s *Store) FlaggedEntries(ctx context.Context, projectID string) ([]string, error) {
	return flagged(ctx, s.conn, projectID)
}

// ClearMostRecent unsets the most-recent flag on one entry.
func (s *Store) ClearMostRecent(ctx context.Context, entryID string) error {
	return clearFlag(ctx, s.conn, entryID)
}

// CreateEntry inserts a context entry.
func (s *Store) CreateEntry(ctx context.Context, e *models.ContextEntry) (string, error) {
	return insertEntry(ctx, s.conn, e)
}

// PublishEntry clears the project's flagged entries and inserts e in one transaction.
func (s *Store) PublishEntry(ctx context.Context, e *models.ContextEntry) (string, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if e.ProjectID != "" {
		ids, err := flagged(ctx, tx, e.ProjectID)
		if err != nil {
			return "", err
		}
		for _, id := range ids {
			if err := clearFlag(ctx, tx, id); err != nil {
				return "", err
			}
		}
	}
	id, err := insertEntry(ctx, tx, e)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return id, nil
}

// FindEntryBySession returns the earliest entry whose session id contains sessionID.
func (s *Store) FindEntryBySession(ctx context.Context, sessionID string) (*models.ContextEntry, error) {
	var (
		e         models.ContextEntry
		chatType  string
		tagsJSON  string
		projectID sql.NullString
		date      time.Time
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT id, chat_number, title, session_id, summary, key_decisions, next_actions,
		       handoff, chat_type, status, tags, project_id, most_recent, date
		FROM context_entries
		WHERE instr(session_id, ?) > 0
		ORDER BY rowid
		LIMIT 1`, sessionID).Scan(
		&e.ID, &e.ChatNumber, &e.Title, &e.SessionID, &e.Summary, &e.KeyDecisions, &e.NextActions,
		&e.Handoff, &chatType, &e.Status, &tagsJSON, &projectID, &e.MostRecent, &date,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: find entry by session: %w", err)
	}
	e.ChatType = models.ChatType(chatType)
	e.ProjectID = projectID.String
	e.Date = date
	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return nil, fmt.Errorf("sqlitestore: decode tags: %w", err)
	}
	return &e, nil
}

func flagged(ctx context.Context, q querier, projectID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM context_entries WHERE project_id = ? AND most_recent = 1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: flagged entries: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func clearFlag(ctx context.Context, q querier, entryID string) error {
	res, err := q.ExecContext(ctx, `UPDATE context_entries SET most_recent = 0 WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("sqlitestore: clear most recent on %s: %w", entryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlitestore: clear most recent on %s: %w", entryID, apperr.ErrNotFound)
	}
	return nil
}

func insertEntry(ctx context.Context, q querier, e *models.ContextEntry) (string, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	var projectID any
	if e.ProjectID != "" {
		projectID = e.ProjectID
	}

	id := uuid.NewString()
	_, err := q.ExecContext(ctx, `
		INSERT INTO context_entries (
			id, chat_number, title, session_id, summary, key_decisions, next_actions,
			handoff, chat_type, status, tags, project_id, most_recent, date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.ChatNumber, e.Title, e.SessionID, e.Summary, e.KeyDecisions, e.NextActions,
		e.Handoff, string(e.ChatType), e.Status, string(tagsJSON), projectID, e.MostRecent, e.Date.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("sqlitestore: create entry: %w", err)
	}
	return id, nil
}

var (
	_ storage.Provider  = (*Store)(nil)
	_ storage.Publisher = (*Store)(nil)
)
