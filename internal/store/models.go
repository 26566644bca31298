package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Workspace is the tenant boundary credentials are scoped to.
type Workspace struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Integration identifies one provider service, e.g. "Google Gmail".
type Integration struct {
	ID   string
	Name string
	// Port is informational; nil when unknown.
	Port *int
}

// Link is the credential record for one (workspace, integration) pair.
// AuthDetails holds the serialized OAuth payload and is opaque to this package.
type Link struct {
	WorkspaceID     string
	IntegrationID   string
	IntegrationName string
	AuthDetails     string
	CreatedDate     time.Time
}
