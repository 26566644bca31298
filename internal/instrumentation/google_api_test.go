package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestTrackGoogleAPI(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()
	called := false
	require.NoError(t, TrackGoogleAPI(ctx, m, ServiceGmail, "list", func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)

	boom := errors.New("boom")
	err := TrackGoogleAPI(ctx, m, ServiceGmail, "send", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	sum := collectSum(t, reader, "google_api_operations_total")
	assert.Equal(t, int64(1), valueFor(sum,
		attribute.String(attrService, ServiceGmail),
		attribute.String(attrOperation, "list"),
		attribute.String(attrStatus, StatusSuccess),
	))
	assert.Equal(t, int64(1), valueFor(sum,
		attribute.String(attrService, ServiceGmail),
		attribute.String(attrOperation, "send"),
		attribute.String(attrStatus, StatusError),
	))
}

func TestTrackGoogleAPI_NilMetrics(t *testing.T) {
	err := TrackGoogleAPI(context.Background(), nil, ServiceDrive, "list", func(context.Context) error { return nil })
	assert.NoError(t, err)
}
