// Package storetest provides an in-memory stand-in for store.Store.
package storetest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oneplace/workspace-mcp/internal/store"
)

type linkKey struct{ workspaceID, integrationID string }

// Memory implements the store.Store methods used by the managers, the API
// and the CLI. It is safe for concurrent use.
type Memory struct {
	mu           sync.Mutex
	workspaces   map[string]*store.Workspace // by name
	integrations map[string]*store.Integration
	links        map[linkKey]store.Link

	// PingErr is returned by Ping.
	PingErr error
}

// New returns an empty Memory.
func New() *Memory {
	return &Memory{
		workspaces:   map[string]*store.Workspace{},
		integrations: map[string]*store.Integration{},
		links:        map[linkKey]store.Link{},
	}
}

func (m *Memory) Ping(context.Context) error { return m.PingErr }

func (m *Memory) GetOrCreateWorkspace(_ context.Context, name string) (*store.Workspace, error) {
	if name == "" {
		return nil, errors.New("workspace name must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[name]
	if !ok {
		w = &store.Workspace{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
		m.workspaces[name] = w
	}
	cp := *w
	return &cp, nil
}

func (m *Memory) GetWorkspaceByName(_ context.Context, name string) (*store.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *Memory) GetWorkspaceByID(_ context.Context, id string) (*store.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workspaces {
		if w.ID == id {
			cp := *w
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) ListWorkspaces(context.Context) ([]store.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Workspace, 0, len(m.workspaces))
	for _, w := range m.workspaces {
		out = append(out, *w)
	}
	slices.SortFunc(out, func(a, b store.Workspace) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *Memory) GetOrCreateIntegration(_ context.Context, name string, port *int) (*store.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.integrations[name]
	if !ok {
		it = &store.Integration{ID: uuid.NewString(), Name: name, Port: port}
		m.integrations[name] = it
	}
	cp := *it
	return &cp, nil
}

func (m *Memory) GetLink(_ context.Context, workspaceID, integrationID string) (*store.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[linkKey{workspaceID, integrationID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (m *Memory) UpsertLink(_ context.Context, workspaceID, integrationID, authDetails string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := linkKey{workspaceID, integrationID}
	l, ok := m.links[key]
	if !ok {
		l = store.Link{WorkspaceID: workspaceID, IntegrationID: integrationID, CreatedDate: time.Now().UTC()}
		for _, it := range m.integrations {
			if it.ID == integrationID {
				l.IntegrationName = it.Name
			}
		}
	}
	l.AuthDetails = authDetails
	m.links[key] = l
	return nil
}

func (m *Memory) DeleteLink(_ context.Context, workspaceID, integrationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, linkKey{workspaceID, integrationID})
	return nil
}

func (m *Memory) ListLinks(_ context.Context, workspaceID string) ([]store.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Link
	for k, l := range m.links {
		if k.workspaceID == workspaceID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b store.Link) int { return strings.Compare(a.IntegrationName, b.IntegrationName) })
	return out, nil
}

func (m *Memory) DeleteLinksByIntegrationPrefix(_ context.Context, workspaceID, prefix string) (int64, error) {
	return m.deleteWhere(func(k linkKey, l store.Link) bool {
		return k.workspaceID == workspaceID && strings.HasPrefix(l.IntegrationName, prefix)
	}), nil
}

func (m *Memory) DeleteAllLinksByIntegrationPrefix(_ context.Context, prefix string) (int64, error) {
	return m.deleteWhere(func(_ linkKey, l store.Link) bool {
		return strings.HasPrefix(l.IntegrationName, prefix)
	}), nil
}

func (m *Memory) deleteWhere(match func(linkKey, store.Link) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, l := range m.links {
		if match(k, l) {
			delete(m.links, k)
			n++
		}
	}
	return n
}
