// Package store persists workspaces, integrations and the per-workspace
// credential links in PostgreSQL.
//
// Repositories run against the DBTX interface so the same code works on a
// *sql.DB and inside a transaction (see WithTx). The schema is managed with
// goose migrations embedded in the binary; call Migrate at startup or use the
// `migrate` command.
//
// Uniqueness is enforced by the schema: workspace and integration names carry
// UNIQUE constraints and get-or-create is a single INSERT ... ON CONFLICT
// statement, so concurrent first use cannot produce duplicate rows.
package store
