package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	queryUpsertWorkspace = `INSERT INTO workspace (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`

	queryWorkspaceByName = `SELECT id, name, created_at FROM workspace WHERE name = $1`

	queryWorkspaceByID = `SELECT id, name, created_at FROM workspace WHERE id = $1`

	queryListWorkspaces = `SELECT id, name, created_at FROM workspace ORDER BY name`
)

// GetOrCreateWorkspace returns the workspace called name, creating it on
// first use. Repeated calls return the same ID.
func (s *Store) GetOrCreateWorkspace(ctx context.Context, name string) (*Workspace, error) {
	if name == "" {
		return nil, errors.New("workspace name must not be empty")
	}
	var w Workspace
	err := s.db.QueryRowContext(ctx, queryUpsertWorkspace, uuid.NewString(), name).
		Scan(&w.ID, &w.Name, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: get or create workspace: %w", err)
	}
	return &w, nil
}

// GetWorkspaceByName returns ErrNotFound when no workspace has that name.
func (s *Store) GetWorkspaceByName(ctx context.Context, name string) (*Workspace, error) {
	return s.scanWorkspace(s.db.QueryRowContext(ctx, queryWorkspaceByName, name))
}

// GetWorkspaceByID returns ErrNotFound when the ID is unknown or malformed.
func (s *Store) GetWorkspaceByID(ctx context.Context, id string) (*Workspace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return s.scanWorkspace(s.db.QueryRowContext(ctx, queryWorkspaceByID, id))
}

func (s *Store) scanWorkspace(row *sql.Row) (*Workspace, error) {
	var w Workspace
	if err := row.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &w, nil
}

func (s *Store) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	rows, err := s.db.QueryContext(ctx, queryListWorkspaces)
	if err != nil {
		return nil, fmt.Errorf("db error: list workspaces: %w", err)
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: scan workspace: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: list workspaces: %w", err)
	}
	return out, nil
}
