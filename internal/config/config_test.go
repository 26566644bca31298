package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears every bound variable for the duration of the test.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DefaultDatabaseURL, cfg.Database.URL)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "https://oneplace-api.speakmulti.com/api/google/callback", cfg.OAuth.RedirectURL)
	assert.Equal(t, DefaultSuccessRedirect, cfg.OAuth.SuccessRedirect)
	assert.Equal(t, 30*time.Second, cfg.OAuth.HTTPTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_Environment(t *testing.T) {
	unsetEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/core")
	t.Setenv("GOOGLE_REDIRECT_URI", "http://localhost:8000/api/google/callback")
	t.Setenv("PORT", "9001")
	t.Setenv("TRANSPORT", "streamable-http")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("DEBUG", "1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.speakmulti.com,http://localhost:3000")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/core", cfg.Database.URL)
	assert.Equal(t, "http://localhost:8000/api/google/callback", cfg.OAuth.RedirectURL)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5*time.Second, cfg.OAuth.HTTPTimeout)
	assert.True(t, cfg.Logging.Debug)
	assert.Equal(t, []string{"https://app.speakmulti.com", "http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoad_EmptySuccessRedirectMeansJSON(t *testing.T) {
	unsetEnv(t)
	t.Setenv("OAUTH_SUCCESS_REDIRECT", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.OAuth.SuccessRedirect)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	unsetEnv(t)
	t.Setenv("TRANSPORT", "stdio")
	t.Setenv("PORT", "9001")

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("transport", "stdio", "")
	flags.Int("port", 8000, "")
	flags.Bool("debug", false, "")
	require.NoError(t, flags.Parse([]string{"--transport", "streamable-http"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport, "changed flag wins")
	assert.Equal(t, 9001, cfg.Server.Port, "unchanged flag does not shadow the environment")
	assert.False(t, cfg.Logging.Debug)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{name: "transport", env: map[string]string{"TRANSPORT": "sse"}, wantMsg: `unsupported transport "sse"`},
		{name: "port", env: map[string]string{"PORT": "70000"}, wantMsg: "port 70000 out of range"},
		{name: "empty database url", env: map[string]string{"DATABASE_URL": ""}, wantMsg: "DATABASE_URL"},
		{name: "relative redirect", env: map[string]string{"GOOGLE_REDIRECT_URI": "/callback"}, wantMsg: "GOOGLE_REDIRECT_URI"},
		{name: "zero timeout", env: map[string]string{"HTTP_TIMEOUT": "0s"}, wantMsg: "HTTP_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("METRICS_ADDR=:9191\nPORT=8100\n"), 0o600))
	t.Setenv("PORT", "8200")
	t.Cleanup(func() { _ = os.Unsetenv("METRICS_ADDR") })

	LoadDotEnv(filepath.Join(dir, "missing.env"), path)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.Metrics.Addr)
	assert.Equal(t, 8200, cfg.Server.Port, "existing variables are not overridden")
}
