package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/store"
	"github.com/oneplace/workspace-mcp/internal/store/storetest"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedLink(t *testing.T, mem *storetest.Memory, workspace, integration string, creds *credentials.Credentials) *store.Workspace {
	t.Helper()
	ctx := context.Background()
	ws, err := mem.GetOrCreateWorkspace(ctx, workspace)
	require.NoError(t, err)
	it, err := mem.GetOrCreateIntegration(ctx, integration, nil)
	require.NoError(t, err)
	raw, err := creds.Encode()
	require.NoError(t, err)
	require.NoError(t, mem.UpsertLink(ctx, ws.ID, it.ID, raw))
	return ws
}

func seedWorkspaces(t *testing.T) (*storetest.Memory, *store.Workspace) {
	t.Helper()
	mem := storetest.New()
	acme := seedLink(t, mem, "acme", google.ServiceGmail.IntegrationName(),
		&credentials.Credentials{AccessToken: "at", RefreshToken: "rt", Expiry: testNow.Add(time.Hour)})
	seedLink(t, mem, "acme", google.ServiceDrive.IntegrationName(),
		&credentials.Credentials{AccessToken: "at", Expiry: testNow.Add(-time.Hour)})
	seedLink(t, mem, "acme", "Slack", &credentials.Credentials{AccessToken: "slack"})
	seedLink(t, mem, "globex", google.ServiceDocs.IntegrationName(),
		&credentials.Credentials{AccessToken: "at", RefreshToken: "rt"})
	return mem, acme
}

func TestListCredentials(t *testing.T) {
	mem, _ := seedWorkspaces(t)

	var out bytes.Buffer
	require.NoError(t, listCredentials(context.Background(), mem, &out, testNow))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "WORKSPACE")
	assert.Regexp(t, `^acme\s+Drive\s+expired\s+no\s`, string(lines[1]))
	assert.Regexp(t, `^acme\s+Gmail\s+2026-03-01T13:00:00Z\s+yes\s`, string(lines[2]))
	assert.Regexp(t, `^globex\s+Docs\s+never\s+yes\s`, string(lines[3]))
	assert.NotContains(t, out.String(), "Slack")
}

func TestListCredentials_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listCredentials(context.Background(), storetest.New(), &out, testNow))
	assert.Equal(t, "No Google credentials stored.\n", out.String())
}

func TestClearCredentials(t *testing.T) {
	tests := []struct {
		name string
		ref  func(ws *store.Workspace) string
	}{
		{name: "by name", ref: func(ws *store.Workspace) string { return ws.Name }},
		{name: "by id", ref: func(ws *store.Workspace) string { return ws.ID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, acme := seedWorkspaces(t)
			ctx := context.Background()

			var out bytes.Buffer
			require.NoError(t, clearCredentials(ctx, mem, &out, tt.ref(acme)))
			assert.Equal(t, "Cleared 2 Google credential(s) for workspace acme\n", out.String())

			links, err := mem.ListLinks(ctx, acme.ID)
			require.NoError(t, err)
			require.Len(t, links, 1)
			assert.Equal(t, "Slack", links[0].IntegrationName)

			globex, err := mem.GetWorkspaceByName(ctx, "globex")
			require.NoError(t, err)
			links, err = mem.ListLinks(ctx, globex.ID)
			require.NoError(t, err)
			assert.Len(t, links, 1)
		})
	}
}

func TestClearCredentials_UnknownWorkspace(t *testing.T) {
	mem, _ := seedWorkspaces(t)

	for _, ref := range []string{"initech", "5f0c6a52-3c1e-4a8e-9d7e-2b1f0b6f9a11"} {
		err := clearCredentials(context.Background(), mem, &bytes.Buffer{}, ref)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	}
}

func TestClearAllCredentials(t *testing.T) {
	mem, acme := seedWorkspaces(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, clearAllCredentials(ctx, mem, &out))
	assert.Equal(t, "Cleared 3 Google credential(s) across all workspaces\n", out.String())

	links, err := mem.ListLinks(ctx, acme.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Slack", links[0].IntegrationName)
}

func TestCredentialsCmd_Subcommands(t *testing.T) {
	cmd := newCredentialsCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "clear", "clear-all"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("database-url"))
}
