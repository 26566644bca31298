package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/drive"
	"github.com/oneplace/workspace-mcp/internal/gmail"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/logging"
	"github.com/oneplace/workspace-mcp/internal/store"
)

const (
	// DefaultRequestTimeout bounds API requests. MCP streams are not affected.
	DefaultRequestTimeout = 60 * time.Second

	// serviceTestItems is how many items the service probe lists.
	serviceTestItems = 5
)

var validate = validator.New()

// APIConfig configures the HTTP API.
type APIConfig struct {
	// SuccessRedirect is where the OAuth callback sends the browser after a
	// successful exchange. Empty means answer with JSON instead.
	SuccessRedirect string
	CORSOrigins     []string
	RequestTimeout  time.Duration
	Version         string
}

// API serves the OAuth and workspace endpoints.
type API struct {
	sc  *ServerContext
	cfg APIConfig
}

type workspaceRequest struct {
	Name string `json:"name" validate:"required"`
}

type workspaceResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type initiateRequest struct {
	// WorkspaceID carries the workspace name.
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Service     string `json:"service" validate:"required"`
}

type serviceTestRequest struct {
	Username string `json:"username" validate:"required"`
	Service  string `json:"service" validate:"required"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// NewAPIRouter builds the chi router with every API route. The caller may
// mount further handlers (the MCP endpoint) on the returned router.
func NewAPIRouter(sc *ServerContext, health *HealthChecker, cfg APIConfig) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	a := &API{sc: sc, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.observe)
	r.Use(middleware.Recoverer)
	r.Use(otelhttp.NewMiddleware("workspace-api"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Mcp-Session-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Mcp-Session-Id"},
		MaxAge:         300,
	}))

	health.RegisterHealthEndpoints(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Get("/", a.root)
		r.Get("/oauth/redirect", a.oauthRedirect)
		r.Get("/google/callback", a.oauthCallback)

		r.Route("/api", func(r chi.Router) {
			r.Post("/workspace", a.createWorkspace)
			r.Get("/workspace/{username}", a.getWorkspace)

			r.Get("/google/callback", a.oauthCallback)

			r.Route("/oauth", func(r chi.Router) {
				r.Post("/initiate", a.initiate)
				r.Get("/status/{username}", a.statusAll)
				r.Get("/status/{username}/{service}", a.status)
				r.Delete("/{username}", a.clearAll)
				r.Delete("/{username}/{service}", a.revoke)
			})

			r.Post("/service/test", a.serviceTest)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "The requested resource was not found")
	})
	return r
}

// observe records request metrics and logs one line per request. The route
// pattern, not the raw path, labels the metric.
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		dur := time.Since(start)
		a.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, pattern, status, dur)
		a.sc.Logger().Debug("http request",
			"method", r.Method,
			"route", pattern,
			logging.Status(http.StatusText(status)),
			"status_code", status,
			"duration", dur,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Detail: detail})
}

// internalError logs err and answers 500. The body only carries the request
// ID; storage and driver messages stay in the log.
func (a *API) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	reqID := middleware.GetReqID(r.Context())
	a.sc.Logger().Error("api request failed",
		logging.Operation(op),
		"request_id", reqID,
		logging.Err(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error, request id "+reqID)
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			return fmt.Errorf("missing required fields: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

func invalidServiceMessage(s string) string {
	return fmt.Sprintf("Invalid service %q. Must be one of: %s", s, strings.Join(google.ServiceNames(), ", "))
}

// lookupWorkspace finds an existing workspace by name, answering 404 or 500
// itself when it returns nil.
func (a *API) lookupWorkspace(w http.ResponseWriter, r *http.Request, name string) *store.Workspace {
	ws, err := a.sc.Workspaces().GetWorkspaceByName(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return nil
	}
	if err != nil {
		a.internalError(w, r, "workspace_lookup", err)
		return nil
	}
	return ws
}

// manager parses the service and returns its manager, answering 400 itself
// when it returns nil.
func (a *API) manager(w http.ResponseWriter, name string) *credentials.Manager {
	svc, err := google.ParseService(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, invalidServiceMessage(name))
		return nil
	}
	m, err := a.sc.Manager(svc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	return m
}

func (a *API) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            "Google Services MCP OAuth Integration API",
		"version":            a.cfg.Version,
		"available_services": google.ServiceNames(),
		"endpoints": map[string]string{
			"workspace":      "/api/workspace",
			"oauth_initiate": "/api/oauth/initiate",
			"oauth_callback": "/api/google/callback",
			"oauth_status":   "/api/oauth/status",
			"service_test":   "/api/service/test",
			"health":         "/api/health",
		},
	})
}

func (a *API) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws, err := a.sc.ResolveWorkspace(r.Context(), req.Name)
	if err != nil {
		a.internalError(w, r, "workspace_create", err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceResponse{ID: ws.ID, Name: ws.Name, Status: "created"})
}

func (a *API) getWorkspace(w http.ResponseWriter, r *http.Request) {
	ws := a.lookupWorkspace(w, r, chi.URLParam(r, "username"))
	if ws == nil {
		return
	}
	writeJSON(w, http.StatusOK, workspaceResponse{ID: ws.ID, Name: ws.Name, Status: "exists"})
}

func (a *API) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m := a.manager(w, req.Service)
	if m == nil {
		return
	}
	ws, err := a.sc.ResolveWorkspace(r.Context(), req.WorkspaceID)
	if err != nil {
		a.internalError(w, r, "oauth_initiate", err)
		return
	}

	authURL := m.BuildAuthorizationURL(ws.Name)
	var state string
	if u, err := url.Parse(authURL); err == nil {
		state = u.Query().Get("state")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"workspace_id":      ws.ID,
		"username":          ws.Name,
		"service":           m.Service(),
		"authorization_url": authURL,
		"redirect_url":      "/oauth/redirect?authorization_url=" + url.QueryEscape(authURL),
		"state":             state,
		"message":           fmt.Sprintf("OAuth flow initiated for %s", m.Service()),
	})
}

func (a *API) oauthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Authorization was not granted: %s", denied))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing code parameter")
		return
	}
	rawState := q.Get("state")
	if rawState == "" {
		writeError(w, http.StatusBadRequest, "Missing state parameter")
		return
	}

	st := google.DecodeState(rawState)
	m := a.manager(w, st.Service)
	if m == nil {
		return
	}
	ws, err := a.sc.ResolveWorkspace(r.Context(), st.Username)
	if err != nil {
		a.internalError(w, r, "oauth_callback", err)
		return
	}

	result, err := m.ExchangeCodeForTokens(r.Context(), code, ws.ID)
	var exErr *credentials.AuthExchangeError
	if errors.As(err, &exErr) {
		writeError(w, http.StatusBadRequest, exErr.Error())
		return
	}
	if err != nil {
		a.internalError(w, r, "oauth_callback", err)
		return
	}

	if a.cfg.SuccessRedirect != "" {
		http.Redirect(w, r, a.cfg.SuccessRedirect, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"workspace_id": ws.ID,
		"username":     ws.Name,
		"service":      m.Service(),
		"expires_at":   result.ExpiresAt,
		"message":      fmt.Sprintf("Successfully authenticated with %s", m.Service()),
	})
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	m := a.manager(w, chi.URLParam(r, "service"))
	if m == nil {
		return
	}
	ws := a.lookupWorkspace(w, r, chi.URLParam(r, "username"))
	if ws == nil {
		return
	}
	st, err := m.GetCredentialsStatus(r.Context(), ws.ID)
	if err != nil {
		a.internalError(w, r, "oauth_status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace_id":       ws.ID,
		"username":           ws.Name,
		"service":            m.Service(),
		"is_authenticated":   st.HasCredentials,
		"last_authenticated": st.CreatedDate,
		"expires_at":         st.ExpiresAt,
		"expired":            st.Expired,
	})
}

func (a *API) statusAll(w http.ResponseWriter, r *http.Request) {
	ws := a.lookupWorkspace(w, r, chi.URLParam(r, "username"))
	if ws == nil {
		return
	}
	all := make(map[google.Service]*credentials.Status, len(google.Services()))
	for _, svc := range google.Services() {
		m, err := a.sc.Manager(svc)
		if err != nil {
			continue
		}
		st, err := m.GetCredentialsStatus(r.Context(), ws.ID)
		if err != nil {
			a.internalError(w, r, "oauth_status", err)
			return
		}
		all[svc] = st
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace_id":    ws.ID,
		"username":        ws.Name,
		"services_status": all,
	})
}

func (a *API) revoke(w http.ResponseWriter, r *http.Request) {
	m := a.manager(w, chi.URLParam(r, "service"))
	if m == nil {
		return
	}
	ws := a.lookupWorkspace(w, r, chi.URLParam(r, "username"))
	if ws == nil {
		return
	}
	if err := m.RevokeCredentials(r.Context(), ws.ID); err != nil {
		a.internalError(w, r, "oauth_revoke", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%s credentials revoked successfully", m.Service()),
	})
}

func (a *API) clearAll(w http.ResponseWriter, r *http.Request) {
	ws := a.lookupWorkspace(w, r, chi.URLParam(r, "username"))
	if ws == nil {
		return
	}
	n, err := a.sc.Registry().ClearAll(r.Context(), ws.ID)
	if err != nil {
		a.internalError(w, r, "oauth_clear", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": n,
		"message": fmt.Sprintf("Cleared %d Google credentials for %s", n, ws.Name),
	})
}

func (a *API) serviceTest(w http.ResponseWriter, r *http.Request) {
	var req serviceTestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m := a.manager(w, req.Service)
	if m == nil {
		return
	}
	ws := a.lookupWorkspace(w, r, req.Username)
	if ws == nil {
		return
	}

	creds, err := m.GetValidCredentials(r.Context(), ws.ID)
	if err != nil {
		a.internalError(w, r, "service_test", err)
		return
	}
	if creds == nil {
		writeError(w, http.StatusUnauthorized,
			fmt.Sprintf("No valid %s credentials found. Please authenticate first.", m.Service()))
		return
	}

	result, err := a.probe(r, m.Service(), creds)
	if err != nil {
		a.internalError(w, r, "service_test", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"workspace_id": ws.ID,
		"username":     ws.Name,
		"service":      m.Service(),
		"test_result":  result,
		"message":      fmt.Sprintf("Service %s tested successfully", m.Service()),
	})
}

// probe lists a few items with the service's API.
func (a *API) probe(r *http.Request, svc google.Service, creds *credentials.Credentials) (any, error) {
	ctx := r.Context()
	tok := creds.Token()
	switch svc {
	case google.ServiceGmail:
		c, err := a.sc.GmailClient(ctx, tok)
		if err != nil {
			return nil, err
		}
		return c.ListMessages(ctx, gmail.ListOptions{Labels: []string{gmail.LabelInbox}, MaxResults: serviceTestItems})
	case google.ServiceDrive:
		c, err := a.sc.DriveClient(ctx, tok)
		if err != nil {
			return nil, err
		}
		return c.ListFiles(ctx, drive.ListOptions{PageSize: serviceTestItems})
	case google.ServiceDocs:
		c, err := a.sc.DocsClient(ctx, tok)
		if err != nil {
			return nil, err
		}
		return c.ListDocuments(ctx, serviceTestItems)
	}
	return nil, fmt.Errorf("unsupported service %q", svc)
}

func (a *API) oauthRedirect(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("authorization_url")
	if !strings.HasPrefix(target, google.AuthURLPrefix) {
		writeError(w, http.StatusBadRequest, "Invalid authorization URL")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
