package common

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oneplace/workspace-mcp/internal/server"
)

// WorkspaceArg is the argument every tool accepts to pick a workspace.
const WorkspaceArg = "workspace"

// WithWorkspace declares the workspace argument on a tool.
func WithWorkspace() mcp.ToolOption {
	return mcp.WithString(WorkspaceArg,
		mcp.Description(fmt.Sprintf("Workspace name (default: '%s'). Credentials are stored per workspace.", server.DefaultWorkspace)),
	)
}

// WorkspaceFromArgs returns the workspace argument or the default workspace.
func WorkspaceFromArgs(args map[string]any) string {
	if ws := strings.TrimSpace(StringArg(args, WorkspaceArg)); ws != "" {
		return ws
	}
	return server.DefaultWorkspace
}

// StringArg returns args[key] when it is a string.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// RequiredString returns a non-blank string argument.
func RequiredString(args map[string]any, key string) (string, error) {
	s := StringArg(args, key)
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// IntArg reads a numeric argument. Missing or non-positive values yield def
// and values above max are capped.
func IntArg(args map[string]any, key string, def, max int64) int64 {
	var n int64
	switch v := args[key].(type) {
	case float64:
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	default:
		return def
	}
	if n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// BoolArg reads a boolean argument, or def when it is absent.
func BoolArg(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

// ListArg reads a list argument given either as an array of strings or as a
// comma separated string. Blank items are dropped.
func ListArg(args map[string]any, key string) []string {
	var raw []string
	switch v := args[key].(type) {
	case string:
		raw = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = v
	}

	var out []string
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
