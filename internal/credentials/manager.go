package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/instrumentation"
	"github.com/oneplace/workspace-mcp/internal/logging"
	"github.com/oneplace/workspace-mcp/internal/store"
)

// Operation names used in logs, metrics and spans.
const (
	opAuthURL  = "auth_url"
	opExchange = "exchange"
	opGet      = "get"
	opRevoke   = "revoke"
	opClear    = "clear"
	opStatus   = "status"
)

// lookupTimeout bounds a shared credential lookup, refresh included.
const lookupTimeout = time.Minute

// Outcomes of a credential lookup, recorded on the span.
const (
	outcomeValid         = "valid"
	outcomeRefreshed     = "refreshed"
	outcomeNone          = "none"
	outcomeMalformed     = "malformed"
	outcomeScopeMismatch = "scope_mismatch"
	outcomeExpired       = "expired_no_refresh"
	outcomeRejected      = "refresh_rejected"
	outcomeConcurrent    = "concurrent_update"
)

// Store is the persistence the manager needs.
// *store.Store implements it.
type Store interface {
	GetOrCreateIntegration(ctx context.Context, name string, port *int) (*store.Integration, error)
	GetLink(ctx context.Context, workspaceID, integrationID string) (*store.Link, error)
	UpsertLink(ctx context.Context, workspaceID, integrationID, authDetails string) error
	DeleteLink(ctx context.Context, workspaceID, integrationID string) error
	DeleteLinksByIntegrationPrefix(ctx context.Context, workspaceID, prefix string) (int64, error)
}

var _ Store = (*store.Store)(nil)

// ExchangeResult is returned by a successful code exchange.
type ExchangeResult struct {
	Service      google.Service `json:"service_type"`
	AccessToken  string         `json:"-"`
	RefreshToken string         `json:"-"`
	ExpiresAt    *time.Time     `json:"expires_at"`
}

// Status is the read-only view of a workspace's stored credential.
type Status struct {
	HasCredentials  bool           `json:"has_credentials"`
	Service         google.Service `json:"service_type"`
	IntegrationID   string         `json:"integration_id"`
	IntegrationName string         `json:"integration_name"`
	CreatedDate     *time.Time     `json:"created_date,omitempty"`
	Scopes          []string       `json:"scopes,omitempty"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	// Expired reports the recorded expiry only; no refresh is attempted.
	Expired bool `json:"expired"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger. The manager adds its service attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// Manager owns the credential lifecycle of one Google service.
// It is safe for concurrent use.
type Manager struct {
	service  google.Service
	store    Store
	provider OAuthProvider
	now      func() time.Time
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	mu          sync.Mutex
	integration *store.Integration

	// flights collapses concurrent lookups of the same workspace so only
	// one refresh reaches the provider.
	flights singleflight.Group
}

// NewManager returns a manager for svc.
func NewManager(svc google.Service, st Store, provider OAuthProvider, opts ...Option) *Manager {
	m := &Manager{
		service:  svc,
		store:    st,
		provider: provider,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithService(m.logger, svc.String())
	return m
}

// Service returns the service this manager handles.
func (m *Manager) Service() google.Service {
	return m.service
}

// BuildAuthorizationURL returns the consent URL for this service. A non-empty
// workspaceHint is carried in the state so the callback can find the
// workspace; otherwise the state is a random correlator.
func (m *Manager) BuildAuthorizationURL(workspaceHint string) string {
	state := uuid.NewString()
	if workspaceHint != "" {
		state = google.EncodeState(google.State{Username: workspaceHint, Service: m.service.String()})
	}
	m.logger.Debug("built authorization URL", logging.Operation(opAuthURL), logging.WorkspaceName(workspaceHint))
	return m.provider.AuthCodeURL(state)
}

// ExchangeCodeForTokens trades code for tokens and stores them for the
// workspace. A provider rejection is returned as *AuthExchangeError.
func (m *Manager) ExchangeCodeForTokens(ctx context.Context, code, workspaceID string) (*ExchangeResult, error) {
	ctx, span := instrumentation.StartCredentialSpan(ctx, m.service.String(), opExchange, workspaceID)
	defer span.End()

	result, err := m.exchange(ctx, code, workspaceID)
	m.finish(ctx, span, opExchange, workspaceID, err)
	return result, err
}

func (m *Manager) exchange(ctx context.Context, code, workspaceID string) (*ExchangeResult, error) {
	tok, err := m.provider.Exchange(ctx, code)
	if err != nil {
		m.metrics.RecordOAuthExchange(ctx, m.service.String(), instrumentation.ResultFailure)
		return nil, &AuthExchangeError{Service: m.service, Err: err}
	}
	m.metrics.RecordOAuthExchange(ctx, m.service.String(), instrumentation.ResultSuccess)

	integration, err := m.integrationRecord(ctx)
	if err != nil {
		return nil, err
	}

	creds := fromToken(tok, m.service.Scopes(), "")
	if err := m.save(ctx, workspaceID, integration.ID, creds); err != nil {
		return nil, err
	}

	result := &ExchangeResult{
		Service:      m.service,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	}
	if !creds.Expiry.IsZero() {
		exp := creds.Expiry
		result.ExpiresAt = &exp
	}
	m.logger.Info("stored credentials",
		logging.Operation(opExchange),
		logging.Workspace(workspaceID),
		slog.Bool("has_refresh_token", creds.RefreshToken != ""),
		slog.String("access_token", logging.SanitizeToken(creds.AccessToken)),
	)
	return result, nil
}

type lookup struct {
	creds   *Credentials
	outcome string
}

// GetValidCredentials returns usable credentials for the workspace, refreshing
// them if they expired. It returns nil, nil when the workspace is not
// authorized: never authorized, malformed payload, changed scopes, expired
// without a refresh token, or refresh rejected by the provider. Unusable rows
// other than malformed ones are deleted.
//
// A non-nil error is a storage failure or a refresh that failed without a
// provider verdict; the stored row is kept in that case.
func (m *Manager) GetValidCredentials(ctx context.Context, workspaceID string) (*Credentials, error) {
	ctx, span := instrumentation.StartCredentialSpan(ctx, m.service.String(), opGet, workspaceID)
	defer span.End()

	// The flight outlives any single caller: one caller giving up must not
	// fail the others waiting on the same refresh.
	ch := m.flights.DoChan(workspaceID, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return m.getValid(flightCtx, workspaceID)
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		r = singleflight.Result{Err: ctx.Err()}
	}
	m.finish(ctx, span, opGet, workspaceID, r.Err)
	if r.Err != nil {
		return nil, r.Err
	}

	res := r.Val.(lookup)
	instrumentation.SetSpanOutcome(span, res.outcome)
	if r.Shared {
		m.logger.Debug("shared credential lookup", logging.Operation(opGet), logging.Workspace(workspaceID))
	}
	// Waiters of one flight share the value; hand each its own copy.
	return res.creds.Clone(), nil
}

func (m *Manager) getValid(ctx context.Context, workspaceID string) (lookup, error) {
	integration, err := m.integrationRecord(ctx)
	if err != nil {
		return lookup{}, err
	}

	creds, outcome, err := m.load(ctx, workspaceID, integration.ID)
	if err != nil || creds == nil {
		return lookup{outcome: outcome}, err
	}

	if !google.EqualScopes(creds.Scopes, m.service.Scopes()) {
		m.logger.Warn("stored scopes differ from required scopes, re-authorization needed",
			logging.Operation(opGet),
			logging.Workspace(workspaceID),
			slog.Any("stored_scopes", creds.Scopes),
			slog.Any("required_scopes", m.service.Scopes()),
		)
		return lookup{outcome: outcomeScopeMismatch}, m.invalidate(ctx, workspaceID, integration.ID, instrumentation.ReasonScopeMismatch)
	}

	if !creds.Expired(m.now()) {
		return lookup{creds: creds, outcome: outcomeValid}, nil
	}

	if creds.RefreshToken == "" {
		m.logger.Info("credentials expired without refresh token",
			logging.Operation(opGet),
			logging.Workspace(workspaceID),
		)
		return lookup{outcome: outcomeExpired}, m.invalidate(ctx, workspaceID, integration.ID, instrumentation.ReasonMissingRefresh)
	}

	return m.refresh(ctx, workspaceID, integration.ID, creds)
}

func (m *Manager) refresh(ctx context.Context, workspaceID, integrationID string, creds *Credentials) (lookup, error) {
	tok, err := m.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if !isProviderRejection(err) {
			m.metrics.RecordCredentialRefresh(ctx, m.service.String(), instrumentation.ResultFailure)
			return lookup{}, fmt.Errorf("refresh %s credentials: %w", m.service, err)
		}
		m.metrics.RecordCredentialRefresh(ctx, m.service.String(), instrumentation.ResultRejected)

		// Another process may have refreshed (and rotated the refresh
		// token) since we loaded the row. Its result wins.
		current, _, loadErr := m.load(ctx, workspaceID, integrationID)
		if loadErr == nil && current != nil &&
			current.AccessToken != creds.AccessToken &&
			!current.Expired(m.now()) &&
			google.EqualScopes(current.Scopes, m.service.Scopes()) {
			return lookup{creds: current, outcome: outcomeConcurrent}, nil
		}

		m.logger.Warn("provider rejected refresh, removing credentials",
			logging.Operation(opGet),
			logging.Workspace(workspaceID),
			logging.Err(err),
		)
		return lookup{outcome: outcomeRejected}, m.invalidate(ctx, workspaceID, integrationID, instrumentation.ReasonRefreshRejected)
	}

	next := fromToken(tok, m.service.Scopes(), creds.RefreshToken)
	if err := m.save(ctx, workspaceID, integrationID, next); err != nil {
		m.metrics.RecordCredentialRefresh(ctx, m.service.String(), instrumentation.ResultFailure)
		return lookup{}, err
	}
	m.metrics.RecordCredentialRefresh(ctx, m.service.String(), instrumentation.ResultSuccess)
	m.logger.Info("refreshed credentials",
		logging.Operation(opGet),
		logging.Workspace(workspaceID),
		slog.Time("expiry", next.Expiry),
	)
	return lookup{creds: next, outcome: outcomeRefreshed}, nil
}

// RevokeCredentials revokes the stored token at the provider and deletes the
// local row. Provider failures are logged and ignored; only a failed local
// delete is returned.
func (m *Manager) RevokeCredentials(ctx context.Context, workspaceID string) error {
	ctx, span := instrumentation.StartCredentialSpan(ctx, m.service.String(), opRevoke, workspaceID)
	defer span.End()

	err := m.revoke(ctx, workspaceID)
	m.finish(ctx, span, opRevoke, workspaceID, err)
	return err
}

func (m *Manager) revoke(ctx context.Context, workspaceID string) error {
	integration, err := m.integrationRecord(ctx)
	if err != nil {
		return err
	}

	creds, _, err := m.load(ctx, workspaceID, integration.ID)
	if err != nil {
		m.logger.Warn("could not read credentials before revocation",
			logging.Operation(opRevoke),
			logging.Workspace(workspaceID),
			logging.Err(err),
		)
	}
	if creds != nil {
		// Revoking the refresh token also invalidates its access tokens.
		token := creds.RefreshToken
		if token == "" {
			token = creds.AccessToken
		}
		if err := m.provider.Revoke(ctx, token); err != nil {
			m.logger.Warn("provider revocation failed, removing credentials locally",
				logging.Operation(opRevoke),
				logging.Workspace(workspaceID),
				logging.Err(err),
			)
		}
	}

	if err := m.store.DeleteLink(ctx, workspaceID, integration.ID); err != nil {
		return fmt.Errorf("delete %s credentials: %w", m.service, err)
	}
	m.logger.Info("revoked credentials", logging.Operation(opRevoke), logging.Workspace(workspaceID))
	return nil
}

// ClearAllCredentials deletes every Google credential of the workspace, for
// all services, in one transaction. It returns the number of removed links.
func (m *Manager) ClearAllCredentials(ctx context.Context, workspaceID string) (int64, error) {
	ctx, span := instrumentation.StartCredentialSpan(ctx, m.service.String(), opClear, workspaceID)
	defer span.End()

	n, err := m.store.DeleteLinksByIntegrationPrefix(ctx, workspaceID, google.IntegrationPrefix)
	if err != nil {
		err = fmt.Errorf("clear credentials: %w", err)
	}
	m.finish(ctx, span, opClear, workspaceID, err)
	if err != nil {
		return 0, err
	}

	m.logger.Info("cleared credentials",
		logging.Operation(opClear),
		logging.Workspace(workspaceID),
		slog.Int64("removed", n),
	)
	return n, nil
}

// GetCredentialsStatus reports what is stored for the workspace without
// refreshing or deleting anything.
func (m *Manager) GetCredentialsStatus(ctx context.Context, workspaceID string) (*Status, error) {
	ctx, span := instrumentation.StartCredentialSpan(ctx, m.service.String(), opStatus, workspaceID)
	defer span.End()

	status, err := m.status(ctx, workspaceID)
	m.finish(ctx, span, opStatus, workspaceID, err)
	return status, err
}

func (m *Manager) status(ctx context.Context, workspaceID string) (*Status, error) {
	integration, err := m.integrationRecord(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Service:         m.service,
		IntegrationID:   integration.ID,
		IntegrationName: integration.Name,
	}

	link, err := m.store.GetLink(ctx, workspaceID, integration.ID)
	if errors.Is(err, store.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s credentials: %w", m.service, err)
	}

	creds, err := ParseCredentials(link.AuthDetails)
	if err != nil {
		return st, nil
	}

	created := link.CreatedDate
	st.HasCredentials = true
	st.CreatedDate = &created
	st.Scopes = creds.Scopes
	if !creds.Expiry.IsZero() {
		exp := creds.Expiry
		st.ExpiresAt = &exp
		st.Expired = creds.Expired(m.now())
	}
	return st, nil
}

// integrationRecord returns the service's integration row, creating it on
// first use. The row is immutable so it is cached after the first lookup.
func (m *Manager) integrationRecord(ctx context.Context) (*store.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.integration != nil {
		return m.integration, nil
	}

	port := m.service.Port()
	integration, err := m.store.GetOrCreateIntegration(ctx, m.service.IntegrationName(), &port)
	if err != nil {
		return nil, fmt.Errorf("resolve %s integration: %w", m.service, err)
	}
	m.integration = integration
	return integration, nil
}

// load reads and parses the stored credentials. A missing row or a malformed
// payload yields nil credentials and no error.
func (m *Manager) load(ctx context.Context, workspaceID, integrationID string) (*Credentials, string, error) {
	link, err := m.store.GetLink(ctx, workspaceID, integrationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, outcomeNone, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load %s credentials: %w", m.service, err)
	}

	creds, err := ParseCredentials(link.AuthDetails)
	if err != nil {
		m.logger.Warn("ignoring unreadable stored credentials",
			logging.Workspace(workspaceID),
			logging.Err(err),
		)
		m.metrics.RecordCredentialInvalidation(ctx, m.service.String(), instrumentation.ReasonMalformed)
		return nil, outcomeMalformed, nil
	}
	return creds, outcomeValid, nil
}

func (m *Manager) save(ctx context.Context, workspaceID, integrationID string, creds *Credentials) error {
	raw, err := creds.Encode()
	if err != nil {
		return err
	}
	if err := m.store.UpsertLink(ctx, workspaceID, integrationID, raw); err != nil {
		return fmt.Errorf("store %s credentials: %w", m.service, err)
	}
	return nil
}

// invalidate deletes a row that can no longer produce a usable token.
func (m *Manager) invalidate(ctx context.Context, workspaceID, integrationID, reason string) error {
	m.metrics.RecordCredentialInvalidation(ctx, m.service.String(), reason)
	if err := m.store.DeleteLink(ctx, workspaceID, integrationID); err != nil {
		return fmt.Errorf("delete %s credentials: %w", m.service, err)
	}
	return nil
}

// finish records the outcome of op on the span and in metrics.
func (m *Manager) finish(ctx context.Context, span trace.Span, op, workspaceID string, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		m.logger.Error("credential operation failed",
			logging.Operation(op),
			logging.Workspace(workspaceID),
			logging.Err(err),
		)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	m.metrics.RecordCredentialOperation(ctx, m.service.String(), op, status)
}
