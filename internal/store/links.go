package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	queryGetLink = `SELECT l.workspace_id, l.integration_id, i.name, COALESCE(l.auth_details, ''), l.created_date
		FROM workspace_integration_link l
		JOIN integration i ON i.id = l.integration_id
		WHERE l.workspace_id = $1 AND l.integration_id = $2`

	queryUpsertLink = `INSERT INTO workspace_integration_link (workspace_id, integration_id, auth_details)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, integration_id) DO UPDATE SET auth_details = EXCLUDED.auth_details`

	queryDeleteLink = `DELETE FROM workspace_integration_link WHERE workspace_id = $1 AND integration_id = $2`

	queryListLinks = `SELECT l.workspace_id, l.integration_id, i.name, COALESCE(l.auth_details, ''), l.created_date
		FROM workspace_integration_link l
		JOIN integration i ON i.id = l.integration_id
		WHERE l.workspace_id = $1
		ORDER BY i.name`

	queryLockFamilyLinks = `SELECT l.workspace_id, l.integration_id
		FROM workspace_integration_link l
		JOIN integration i ON i.id = l.integration_id
		WHERE l.workspace_id = $1 AND i.name LIKE $2
		FOR UPDATE OF l`

	queryLockAllFamilyLinks = `SELECT l.workspace_id, l.integration_id
		FROM workspace_integration_link l
		JOIN integration i ON i.id = l.integration_id
		WHERE i.name LIKE $1
		FOR UPDATE OF l`
)

// GetLink returns ErrNotFound when the workspace has no link to the integration.
func (s *Store) GetLink(ctx context.Context, workspaceID, integrationID string) (*Link, error) {
	var l Link
	err := s.db.QueryRowContext(ctx, queryGetLink, workspaceID, integrationID).
		Scan(&l.WorkspaceID, &l.IntegrationID, &l.IntegrationName, &l.AuthDetails, &l.CreatedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: get link: %w", err)
	}
	return &l, nil
}

// UpsertLink stores authDetails for the pair, replacing any existing payload.
// The original creation date is kept on update.
func (s *Store) UpsertLink(ctx context.Context, workspaceID, integrationID, authDetails string) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertLink, workspaceID, integrationID, authDetails); err != nil {
		return fmt.Errorf("db error: upsert link: %w", err)
	}
	return nil
}

// DeleteLink removes the pair's link. Deleting a missing link is not an error.
func (s *Store) DeleteLink(ctx context.Context, workspaceID, integrationID string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteLink, workspaceID, integrationID); err != nil {
		return fmt.Errorf("db error: delete link: %w", err)
	}
	return nil
}

// ListLinks returns every link of the workspace.
func (s *Store) ListLinks(ctx context.Context, workspaceID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, queryListLinks, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("db error: list links: %w", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.WorkspaceID, &l.IntegrationID, &l.IntegrationName, &l.AuthDetails, &l.CreatedDate); err != nil {
			return nil, fmt.Errorf("db error: scan link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: list links: %w", err)
	}
	return out, nil
}

// DeleteLinksByIntegrationPrefix removes, in one transaction, every link of
// the workspace whose integration name starts with prefix. Either all
// matching links are removed or none are.
func (s *Store) DeleteLinksByIntegrationPrefix(ctx context.Context, workspaceID, prefix string) (int64, error) {
	return s.deleteFamily(ctx, queryLockFamilyLinks, workspaceID, likePrefix(prefix))
}

// DeleteAllLinksByIntegrationPrefix is DeleteLinksByIntegrationPrefix across
// every workspace.
func (s *Store) DeleteAllLinksByIntegrationPrefix(ctx context.Context, prefix string) (int64, error) {
	return s.deleteFamily(ctx, queryLockAllFamilyLinks, likePrefix(prefix))
}

type linkKey struct {
	workspaceID   string
	integrationID string
}

func (s *Store) deleteFamily(ctx context.Context, lockQuery string, args ...any) (int64, error) {
	var removed int64
	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		keys, err := lockLinks(ctx, tx, lockQuery, args...)
		if err != nil {
			return err
		}
		for _, k := range keys {
			res, err := tx.ExecContext(ctx, queryDeleteLink, k.workspaceID, k.integrationID)
			if err != nil {
				return fmt.Errorf("delete link %s/%s: %w", k.workspaceID, k.integrationID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("db error: clear links: %w", err)
	}
	return removed, nil
}

func lockLinks(ctx context.Context, tx DBTX, query string, args ...any) ([]linkKey, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select links: %w", err)
	}
	defer rows.Close()

	var keys []linkKey
	for rows.Next() {
		var k linkKey
		if err := rows.Scan(&k.workspaceID, &k.integrationID); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// likePrefix escapes LIKE metacharacters in prefix and appends a wildcard.
func likePrefix(prefix string) string {
	out := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		switch c := prefix[i]; c {
		case '%', '_', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	return string(append(out, '%'))
}
