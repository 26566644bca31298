package instrumentation

import (
	"context"
	"time"
)

// TrackGoogleAPI runs fn inside a client span and records the call in
// google_api_operations_total. m may be nil.
func TrackGoogleAPI(ctx context.Context, m *Metrics, service, operation string, fn func(context.Context) error) error {
	ctx, span := StartGoogleAPISpan(ctx, service, operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := StatusSuccess
	if err != nil {
		status = StatusError
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	m.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
	return err
}
