package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/credentials/credentialstest"
	"github.com/oneplace/workspace-mcp/internal/store/storetest"
)

type testEnv struct {
	sc       *ServerContext
	store    *storetest.Memory
	provider *credentialstest.Provider
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := storetest.New()
	provider := &credentialstest.Provider{}
	registry := credentialstest.NewRegistry(mem, provider, credentials.WithLogger(logger))

	sc, err := NewServerContext(context.Background(), mem, registry, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return &testEnv{sc: sc, store: mem, provider: provider}
}
