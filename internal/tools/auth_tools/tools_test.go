package auth_tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneplace/workspace-mcp/internal/credentials/credentialstest"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/tools/toolstest"
)

func TestTools_Names(t *testing.T) {
	env := toolstest.New(t, nil)
	assert.Equal(t, []string{
		"google_auth_url",
		"google_save_auth_code",
		"google_credentials_status",
		"google_revoke_credentials",
		"clear_google_credentials",
	}, toolstest.Names(Tools(env.SC)))
}

func TestAuthURL(t *testing.T) {
	env := toolstest.New(t, nil)
	tools := Tools(env.SC)

	result := toolstest.Call(t, tools, "google_auth_url", map[string]any{"workspace": "acme", "service": "drive"})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, toolstest.Text(result), google.AuthURLPrefix)

	structured := result.StructuredContent.(map[string]any)
	assert.Equal(t, "drive", structured["service"])
	assert.Equal(t, "acme", structured["workspace"])

	result = toolstest.Call(t, tools, "google_auth_url", map[string]any{"service": "calendar"})
	assert.True(t, result.IsError)

	result = toolstest.Call(t, tools, "google_auth_url", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolstest.Text(result), "service is required")
}

func TestSaveAuthCode(t *testing.T) {
	env := toolstest.New(t, nil)
	tools := Tools(env.SC)

	result := toolstest.Call(t, tools, "google_save_auth_code", map[string]any{"workspace": "acme", "service": "docs"})
	assert.True(t, result.IsError)
	assert.Equal(t, "code is required", toolstest.Text(result))

	result = toolstest.Call(t, tools, "google_save_auth_code", map[string]any{"workspace": "acme", "service": "docs", "code": credentialstest.RejectedCode})
	assert.True(t, result.IsError)
	assert.Contains(t, toolstest.Text(result), "failed to exchange authorization code")

	result = toolstest.Call(t, tools, "google_save_auth_code", map[string]any{"workspace": "acme", "service": "docs", "code": "manual"})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, toolstest.Text(result), `"service_type": "docs"`)
	assert.NotContains(t, toolstest.Text(result), "at-manual")

	result = toolstest.Call(t, tools, "google_credentials_status", map[string]any{"workspace": "acme", "service": "docs"})
	assert.Contains(t, toolstest.Text(result), `"has_credentials": true`)
}

func TestStatus(t *testing.T) {
	env := toolstest.New(t, nil)
	env.Authorize(t, "acme", google.ServiceGmail)
	tools := Tools(env.SC)

	result := toolstest.Call(t, tools, "google_credentials_status", map[string]any{"workspace": "acme"})
	require.False(t, result.IsError, toolstest.Text(result))
	text := toolstest.Text(result)
	assert.Contains(t, text, `"service_type": "gmail"`)
	assert.Contains(t, text, `"service_type": "docs"`)
	assert.Contains(t, text, `"has_credentials": true`)

	result = toolstest.Call(t, tools, "google_credentials_status", map[string]any{"workspace": "acme", "service": "drive"})
	require.False(t, result.IsError)
	assert.Contains(t, toolstest.Text(result), `"has_credentials": false`)
	assert.NotContains(t, toolstest.Text(result), `"service_type": "gmail"`)
}

func TestRevokeAndClear(t *testing.T) {
	env := toolstest.New(t, nil)
	env.Authorize(t, "acme", google.ServiceGmail)
	env.Authorize(t, "acme", google.ServiceDrive)
	env.Authorize(t, "acme", google.ServiceDocs)
	tools := Tools(env.SC)

	result := toolstest.Call(t, tools, "google_revoke_credentials", map[string]any{"workspace": "acme", "service": "gmail"})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Equal(t, []string{"rt-code-acme"}, env.Provider.Revoked())

	result = toolstest.Call(t, tools, "clear_google_credentials", map[string]any{"workspace": "acme"})
	require.False(t, result.IsError)
	assert.Contains(t, toolstest.Text(result), "Cleared 2 Google credentials")

	result = toolstest.Call(t, tools, "google_credentials_status", map[string]any{"workspace": "acme"})
	assert.NotContains(t, toolstest.Text(result), `"has_credentials": true`)
}
