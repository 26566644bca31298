package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys.
const (
	KeyOperation   = "operation"
	KeyService     = "service"
	KeyWorkspace   = "workspace"
	KeyIntegration = "integration"
	KeyDuration    = "duration"
	KeyStatus      = "status"
	KeyReason      = "reason"
	KeyError       = "error"
	KeyTool        = "tool"
)

// Status values. Duplicated from instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New builds a logger writing to w. Unknown formats fall back to text.
func New(w io.Writer, format string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Workspace returns a slog attribute for a workspace identifier.
// Workspace IDs are UUIDs and safe to log as-is; names go through WorkspaceName.
func Workspace(id string) slog.Attr {
	return slog.String(KeyWorkspace, id)
}

// WorkspaceName returns a hashed workspace name. Names are usually usernames,
// so only a short digest is logged.
func WorkspaceName(name string) slog.Attr {
	return slog.String(KeyWorkspace, HashName(name))
}

func Integration(name string) slog.Attr {
	return slog.String(KeyIntegration, name)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Reason returns a slog attribute explaining why credentials were dropped.
func Reason(reason string) slog.Attr {
	return slog.String(KeyReason, reason)
}

// Err returns a slog attribute for an error.
// A nil error yields an empty group, which slog omits from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// HashName returns a short stable digest of a name for log correlation.
func HashName(name string) string {
	if name == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(name))
	return "ws:" + hex.EncodeToString(sum[:6])
}

// SanitizeToken returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
