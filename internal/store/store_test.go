package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wsID  = "5b0c7a0e-7d6f-4f5e-9d7c-1f0e2a3b4c5d"
	intID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestGetOrCreateWorkspace_Idempotent(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`INSERT INTO workspace .*ON CONFLICT \(name\) DO UPDATE.*RETURNING id, name, created_at`).
			WithArgs(sqlmock.AnyArg(), "acme").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow(wsID, "acme", created))
	}

	first, err := s.GetOrCreateWorkspace(context.Background(), "acme")
	require.NoError(t, err)
	second, err := s.GetOrCreateWorkspace(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, wsID, first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateWorkspace_Errors(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.GetOrCreateWorkspace(context.Background(), "")
	assert.Error(t, err)

	mock.ExpectQuery(`INSERT INTO workspace`).WillReturnError(errors.New("conn reset"))
	_, err = s.GetOrCreateWorkspace(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWorkspaceByName(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name, created_at FROM workspace WHERE name = \$1`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow(wsID, "acme", time.Now()))
	w, err := s.GetWorkspaceByName(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, wsID, w.ID)

	mock.ExpectQuery(`FROM workspace WHERE name = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	_, err = s.GetWorkspaceByName(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWorkspaceByID_MalformedSkipsQuery(t *testing.T) {
	s, mock := newMockStore(t)
	_, err := s.GetWorkspaceByID(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWorkspaces(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, name, created_at FROM workspace ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).
			AddRow(wsID, "acme", time.Now()).
			AddRow(intID, "globex", time.Now()))

	got, err := s.ListWorkspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "globex", got[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateIntegration(t *testing.T) {
	s, mock := newMockStore(t)
	port := 993

	mock.ExpectQuery(`INSERT INTO integration .*ON CONFLICT \(name\)`).
		WithArgs(sqlmock.AnyArg(), "Google Gmail", 993).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "port"}).AddRow(intID, "Google Gmail", 993))
	in, err := s.GetOrCreateIntegration(context.Background(), "Google Gmail", &port)
	require.NoError(t, err)
	assert.Equal(t, intID, in.ID)
	require.NotNil(t, in.Port)
	assert.Equal(t, 993, *in.Port)

	mock.ExpectQuery(`INSERT INTO integration`).
		WithArgs(sqlmock.AnyArg(), "Google Drive", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "port"}).AddRow(intID, "Google Drive", nil))
	in, err = s.GetOrCreateIntegration(context.Background(), "Google Drive", nil)
	require.NoError(t, err)
	assert.Nil(t, in.Port)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLink(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Now().UTC()

	mock.ExpectQuery(`FROM workspace_integration_link l\s+JOIN integration i`).
		WithArgs(wsID, intID).
		WillReturnRows(sqlmock.NewRows([]string{"workspace_id", "integration_id", "name", "auth_details", "created_date"}).
			AddRow(wsID, intID, "Google Gmail", `{"token":"t"}`, created))
	l, err := s.GetLink(context.Background(), wsID, intID)
	require.NoError(t, err)
	assert.Equal(t, "Google Gmail", l.IntegrationName)
	assert.Equal(t, `{"token":"t"}`, l.AuthDetails)

	mock.ExpectQuery(`FROM workspace_integration_link`).WithArgs(wsID, intID).WillReturnError(sql.ErrNoRows)
	_, err = s.GetLink(context.Background(), wsID, intID)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`FROM workspace_integration_link`).WithArgs(wsID, intID).WillReturnError(errors.New("db down"))
	_, err = s.GetLink(context.Background(), wsID, intID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLink_UsesConflictUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO workspace_integration_link .*ON CONFLICT \(workspace_id, integration_id\) DO UPDATE SET auth_details = EXCLUDED.auth_details`).
		WithArgs(wsID, intID, `{"token":"new"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpsertLink(context.Background(), wsID, intID, `{"token":"new"}`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLink(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM workspace_integration_link WHERE workspace_id = \$1 AND integration_id = \$2`).
		WithArgs(wsID, intID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.DeleteLink(context.Background(), wsID, intID))

	mock.ExpectExec(`DELETE FROM workspace_integration_link`).WillReturnError(errors.New("boom"))
	assert.Error(t, s.DeleteLink(context.Background(), wsID, intID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func familyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"workspace_id", "integration_id"}).
		AddRow(wsID, "i-gmail").
		AddRow(wsID, "i-drive").
		AddRow(wsID, "i-docs")
}

func TestDeleteLinksByIntegrationPrefix_AllRemoved(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE l.workspace_id = \$1 AND i.name LIKE \$2\s+FOR UPDATE OF l`).
		WithArgs(wsID, "Google %").
		WillReturnRows(familyRows())
	for _, id := range []string{"i-gmail", "i-drive", "i-docs"} {
		mock.ExpectExec(`DELETE FROM workspace_integration_link`).
			WithArgs(wsID, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	n, err := s.DeleteLinksByIntegrationPrefix(context.Background(), wsID, "Google ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLinksByIntegrationPrefix_FailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`i.name LIKE \$2`).WithArgs(wsID, "Google %").WillReturnRows(familyRows())
	mock.ExpectExec(`DELETE FROM workspace_integration_link`).
		WithArgs(wsID, "i-gmail").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM workspace_integration_link`).
		WithArgs(wsID, "i-drive").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	n, err := s.DeleteLinksByIntegrationPrefix(context.Background(), wsID, "Google ")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "connection lost")
	// no commit was issued, so the first delete never became visible
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllLinksByIntegrationPrefix(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE i.name LIKE \$1\s+FOR UPDATE OF l`).
		WithArgs("Google %").
		WillReturnRows(sqlmock.NewRows([]string{"workspace_id", "integration_id"}).AddRow(wsID, intID))
	mock.ExpectExec(`DELETE FROM workspace_integration_link`).
		WithArgs(wsID, intID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := s.DeleteAllLinksByIntegrationPrefix(context.Background(), "Google ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePrefix(t *testing.T) {
	tests := map[string]string{
		"Google ":  "Google %",
		"":         "%",
		"50%_off":  `50\%\_off%`,
		`back\sl`: `back\\sl%`,
	}
	for in, want := range tests {
		if got := likePrefix(in); got != want {
			t.Errorf("likePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), s.DB(), nil, func(ctx context.Context, tx DBTX) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_UsesEmbeddedMigrations(t *testing.T) {
	s, _ := newMockStore(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), s.DB()))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("dirty")
	}
	err := Migrate(context.Background(), s.DB())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty")
}
