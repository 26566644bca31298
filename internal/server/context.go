package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/docs"
	"github.com/oneplace/workspace-mcp/internal/drive"
	"github.com/oneplace/workspace-mcp/internal/gmail"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/instrumentation"
	"github.com/oneplace/workspace-mcp/internal/store"
)

// DefaultWorkspace is used when a caller names no workspace.
const DefaultWorkspace = "default"

// WorkspaceStore is the workspace persistence used by tools and the API.
// *store.Store implements it.
type WorkspaceStore interface {
	GetOrCreateWorkspace(ctx context.Context, name string) (*store.Workspace, error)
	GetWorkspaceByName(ctx context.Context, name string) (*store.Workspace, error)
	Ping(ctx context.Context) error
}

var _ WorkspaceStore = (*store.Store)(nil)

// ServerContext holds what MCP tools and HTTP handlers share: workspace
// lookup, the credential managers and instrumentation.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	workspaces WorkspaceStore
	registry   *credentials.Registry
	// tokens serves API clients; the registry unless replaced.
	tokens google.TokenProvider

	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	// apiOptions are appended when Google API clients are built.
	apiOptions []option.ClientOption

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = logger }
}

func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = metrics }
}

func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = al }
}

// WithTokenProvider replaces the registry as the source of API tokens.
func WithTokenProvider(tp google.TokenProvider) Option {
	return func(sc *ServerContext) { sc.tokens = tp }
}

// WithAPIOptions adds client options to every Google API client, e.g. a
// test endpoint.
func WithAPIOptions(opts ...option.ClientOption) Option {
	return func(sc *ServerContext) { sc.apiOptions = append(sc.apiOptions, opts...) }
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, workspaces WorkspaceStore, registry *credentials.Registry, opts ...Option) (*ServerContext, error) {
	if workspaces == nil {
		return nil, errors.New("workspace store is required")
	}
	if registry == nil {
		return nil, errors.New("credential registry is required")
	}
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		workspaces: workspaces,
		registry:   registry,
		tokens:     registry,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Workspaces() WorkspaceStore { return sc.workspaces }

func (sc *ServerContext) Registry() *credentials.Registry { return sc.registry }

// Tokens returns the provider tools use to obtain API tokens.
func (sc *ServerContext) Tokens() google.TokenProvider { return sc.tokens }

func (sc *ServerContext) Logger() *slog.Logger { return sc.logger }

// Metrics may return nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics { return sc.metrics }

// AuditLogger may return nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger { return sc.auditLogger }

// Manager returns the credential manager for svc.
func (sc *ServerContext) Manager(svc google.Service) (*credentials.Manager, error) {
	m, ok := sc.registry.Manager(svc)
	if !ok {
		return nil, fmt.Errorf("no credential manager for service %q", svc)
	}
	return m, nil
}

// ResolveWorkspace returns the workspace called name, creating it on first
// use. An empty name means DefaultWorkspace.
func (sc *ServerContext) ResolveWorkspace(ctx context.Context, name string) (*store.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultWorkspace
	}
	ws, err := sc.workspaces.GetOrCreateWorkspace(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %q: %w", name, err)
	}
	return ws, nil
}

// GmailClient builds a Gmail client for an already validated token.
func (sc *ServerContext) GmailClient(ctx context.Context, tok *oauth2.Token) (*gmail.Client, error) {
	return gmail.NewClient(ctx, google.StaticTokenSource(tok), sc.metrics, sc.apiOptions...)
}

// DriveClient builds a Drive client for an already validated token.
func (sc *ServerContext) DriveClient(ctx context.Context, tok *oauth2.Token) (*drive.Client, error) {
	return drive.NewClient(ctx, google.StaticTokenSource(tok), sc.metrics, sc.apiOptions...)
}

// DocsClient builds a Docs client for an already validated token.
func (sc *ServerContext) DocsClient(ctx context.Context, tok *oauth2.Token) (*docs.Client, error) {
	return docs.NewClient(ctx, google.StaticTokenSource(tok), sc.metrics, sc.apiOptions...)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
