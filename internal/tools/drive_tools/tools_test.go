package drive_tools

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/tools/toolstest"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

// driveCalls records what the tools sent.
type driveCalls struct {
	query    string
	pageSize string
	uploaded string
	created  map[string]any
	shared   map[string]any
}

// fakeDrive answers the Drive v3 calls the tools make.
type fakeDrive struct {
	mu    sync.Mutex
	calls driveCalls
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/files") && r.Method == http.MethodGet:
		f.calls.query = r.URL.Query().Get("q")
		f.calls.pageSize = r.URL.Query().Get("pageSize")
		toolstest.JSON(w, `{"files":[{"id":"f1","name":"report.txt","mimeType":"text/plain"}]}`)
	case strings.HasSuffix(path, "/files") && r.URL.Query().Get("uploadType") != "":
		body, _ := io.ReadAll(r.Body)
		f.calls.uploaded = string(body)
		toolstest.JSON(w, `{"id":"up1","name":"notes.txt","mimeType":"text/plain"}`)
	case strings.HasSuffix(path, "/files"):
		_ = json.NewDecoder(r.Body).Decode(&f.calls.created)
		toolstest.JSON(w, `{"id":"folder1","name":"Reports","mimeType":"application/vnd.google-apps.folder"}`)
	case strings.HasSuffix(path, "/files/f1/permissions"):
		_ = json.NewDecoder(r.Body).Decode(&f.calls.shared)
		toolstest.JSON(w, `{"id":"p1","type":"user","role":"writer","emailAddress":"bob@example.com"}`)
	case strings.HasSuffix(path, "/files/f1"):
		if r.URL.Query().Get("alt") == "media" {
			_, _ = io.WriteString(w, "quarterly numbers")
			return
		}
		toolstest.JSON(w, `{"id":"f1","name":"report.txt","mimeType":"text/plain"}`)
	case strings.HasSuffix(path, "/files/img1"):
		if r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write(pngBytes)
			return
		}
		toolstest.JSON(w, `{"id":"img1","name":"logo.png","mimeType":"image/png"}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeDrive) snapshot() driveCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newEnv(t *testing.T) (*toolstest.Env, *fakeDrive) {
	t.Helper()
	api := &fakeDrive{}
	env := toolstest.New(t, api)
	env.Authorize(t, "acme", google.ServiceDrive)
	return env, api
}

func TestTools_Names(t *testing.T) {
	env := toolstest.New(t, nil)
	assert.Equal(t, []string{
		"drive_list_files",
		"drive_search_files",
		"drive_upload_file",
		"drive_download_file",
		"drive_create_folder",
		"drive_share_file",
	}, toolstest.Names(Tools(env.SC)))
}

func TestListFiles(t *testing.T) {
	env, api := newEnv(t)

	result := toolstest.Call(t, Tools(env.SC), "drive_list_files", map[string]any{
		"workspace":   "acme",
		"query":       "name contains 'report'",
		"max_results": float64(5000),
	})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, toolstest.Text(result), "Found 1 files:")
	assert.Contains(t, toolstest.Text(result), `"name": "report.txt"`)

	got := api.snapshot()
	assert.Equal(t, "(name contains 'report') and trashed = false", got.query)
	assert.Equal(t, "1000", got.pageSize)
}

func TestSearchFiles(t *testing.T) {
	env, api := newEnv(t)
	tools := Tools(env.SC)

	result := toolstest.Call(t, tools, "drive_search_files", map[string]any{"workspace": "acme"})
	assert.True(t, result.IsError)
	assert.Equal(t, "term is required", toolstest.Text(result))

	result = toolstest.Call(t, tools, "drive_search_files", map[string]any{"workspace": "acme", "term": "it's"})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, api.snapshot().query, `name contains 'it\'s'`)
}

func TestUploadFile(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    string
		wantErr string
	}{
		{
			name: "plain text",
			args: map[string]any{"name": "notes.txt", "content": "hello drive"},
			want: "hello drive",
		},
		{
			name: "base64",
			args: map[string]any{"name": "notes.txt", "content": base64.StdEncoding.EncodeToString([]byte("decoded body")), "is_base64": true},
			want: "decoded body",
		},
		{
			name:    "bad base64",
			args:    map[string]any{"name": "notes.txt", "content": "%%%", "is_base64": true},
			wantErr: "failed to decode base64 content",
		},
		{
			name:    "missing content",
			args:    map[string]any{"name": "notes.txt"},
			wantErr: "content is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, api := newEnv(t)
			tt.args["workspace"] = "acme"

			result := toolstest.Call(t, Tools(env.SC), "drive_upload_file", tt.args)
			if tt.wantErr != "" {
				assert.True(t, result.IsError)
				assert.Contains(t, toolstest.Text(result), tt.wantErr)
				assert.Empty(t, api.snapshot().uploaded)
				return
			}
			require.False(t, result.IsError, toolstest.Text(result))
			assert.Contains(t, toolstest.Text(result), "File uploaded successfully:")
			assert.Contains(t, api.snapshot().uploaded, tt.want)
		})
	}
}

func TestDownloadFile(t *testing.T) {
	env, _ := newEnv(t)
	tools := Tools(env.SC)

	result := toolstest.Call(t, tools, "drive_download_file", map[string]any{"workspace": "acme", "file_id": "f1"})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, toolstest.Text(result), `"encoding": "text"`)
	assert.Contains(t, toolstest.Text(result), `"content": "quarterly numbers"`)

	result = toolstest.Call(t, tools, "drive_download_file", map[string]any{"workspace": "acme", "file_id": "img1"})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, toolstest.Text(result), `"encoding": "base64"`)
	assert.Contains(t, toolstest.Text(result), base64.StdEncoding.EncodeToString(pngBytes))
}

func TestCreateFolder(t *testing.T) {
	env, api := newEnv(t)

	result := toolstest.Call(t, Tools(env.SC), "drive_create_folder", map[string]any{"workspace": "acme", "name": "Reports", "parent_id": "root-id"})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, toolstest.Text(result), `"id": "folder1"`)

	created := api.snapshot().created
	assert.Equal(t, "Reports", created["name"])
	assert.Equal(t, []any{"root-id"}, created["parents"])
}

func TestShareFile(t *testing.T) {
	env, api := newEnv(t)
	tools := Tools(env.SC)

	result := toolstest.Call(t, tools, "drive_share_file", map[string]any{"workspace": "acme", "file_id": "f1", "role": "writer"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolstest.Text(result), "email address is required")

	result = toolstest.Call(t, tools, "drive_share_file", map[string]any{
		"workspace":     "acme",
		"file_id":       "f1",
		"role":          "writer",
		"email_address": "bob@example.com",
	})
	require.False(t, result.IsError, toolstest.Text(result))
	assert.Contains(t, toolstest.Text(result), "File shared successfully:")
	assert.Equal(t, "writer", api.snapshot().shared["role"])
}

func TestNoCredentials(t *testing.T) {
	env := toolstest.New(t, &fakeDrive{})

	result := toolstest.Call(t, Tools(env.SC), "drive_list_files", map[string]any{"workspace": "acme"})
	require.True(t, result.IsError)
	assert.Contains(t, toolstest.Text(result), `no valid drive credentials for workspace "acme"`)
}
