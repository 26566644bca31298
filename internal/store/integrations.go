package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const queryUpsertIntegration = `INSERT INTO integration (id, name, port)
	VALUES ($1, $2, $3)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	RETURNING id, name, port`

// GetOrCreateIntegration returns the integration called name, creating it
// with the given port on first use. An existing row keeps its port.
func (s *Store) GetOrCreateIntegration(ctx context.Context, name string, port *int) (*Integration, error) {
	var p sql.NullInt32
	if port != nil {
		p = sql.NullInt32{Int32: int32(*port), Valid: true}
	}
	row := s.db.QueryRowContext(ctx, queryUpsertIntegration, uuid.NewString(), name, p)
	in, err := scanIntegration(row)
	if err != nil {
		return nil, fmt.Errorf("db error: get or create integration %q: %w", name, err)
	}
	return in, nil
}

func scanIntegration(row *sql.Row) (*Integration, error) {
	var (
		in   Integration
		port sql.NullInt32
	)
	if err := row.Scan(&in.ID, &in.Name, &port); err != nil {
		return nil, err
	}
	if port.Valid {
		v := int(port.Int32)
		in.Port = &v
	}
	return &in, nil
}
