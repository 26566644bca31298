package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/oneplace/workspace-mcp/internal/logging"
)

// ToolInvocation captures one MCP tool call for the audit log.
//
// Workspace names frequently identify customers, so LogAttrs emits the
// hashed form unless the AuditLogger was configured to include names.
type ToolInvocation struct {
	Tool string

	Workspace   string
	ServiceName string // gmail, drive, docs
	Operation   string // list, get, create, update, send, share, export

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithWorkspace sets the workspace the tool ran against.
func (ti *ToolInvocation) WithWorkspace(name string) *ToolInvocation {
	ti.Workspace = name
	return ti
}

// WithService sets the Google service and operation.
func (ti *ToolInvocation) WithService(serviceName, operation string) *ToolInvocation {
	ti.ServiceName = serviceName
	ti.Operation = operation
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished and records its duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the invocation.
func (ti *ToolInvocation) LogAttrs(includeWorkspaceNames bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String(logging.KeyTool, ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.String(logging.KeyStatus, ti.Status()),
	}

	if ti.Workspace != "" {
		if includeWorkspaceNames {
			attrs = append(attrs, slog.String(logging.KeyWorkspace, ti.Workspace))
		} else {
			attrs = append(attrs, logging.WorkspaceName(ti.Workspace))
		}
	}
	if ti.ServiceName != "" {
		attrs = append(attrs, slog.String(logging.KeyService, ti.ServiceName))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String(logging.KeyOperation, ti.Operation))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger                *slog.Logger
	includeWorkspaceNames bool
	enabled               bool
}

// NewAuditLogger creates an AuditLogger from the given configuration.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:                logger,
		includeWorkspaceNames: config.IncludeWorkspaceNames,
		enabled:               config.Enabled,
	}
}

// LogToolInvocation logs ti at Info on success and Warn on failure.
// A nil AuditLogger logs nothing.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, ti.LogAttrs(al.includeWorkspaceNames)...)
}
