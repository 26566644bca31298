package google

import (
	"fmt"
	"strings"

	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// Service identifies one Google API a workspace can authorize.
type Service string

const (
	ServiceGmail Service = "gmail"
	ServiceDrive Service = "drive"
	ServiceDocs  Service = "docs"
)

// IntegrationPrefix is shared by the integration names of every Service.
// Clearing "all Google credentials" matches on it.
const IntegrationPrefix = "Google "

type serviceSpec struct {
	integration  string
	scopes       []string
	port         int
	clientIDEnv  string
	clientSecEnv string
}

var serviceSpecs = map[Service]serviceSpec{
	ServiceGmail: {
		integration:  IntegrationPrefix + "Gmail",
		scopes:       []string{gmail.GmailModifyScope},
		port:         993,
		clientIDEnv:  "GMAIL_CLIENT_ID",
		clientSecEnv: "GMAIL_CLIENT_SECRET",
	},
	ServiceDrive: {
		integration:  IntegrationPrefix + "Drive",
		scopes:       []string{drive.DriveScope},
		port:         443,
		clientIDEnv:  "GDRIVE_CLIENT_ID",
		clientSecEnv: "GDRIVE_CLIENT_SECRET",
	},
	ServiceDocs: {
		integration:  IntegrationPrefix + "Docs",
		scopes:       []string{docs.DocumentsScope},
		port:         443,
		clientIDEnv:  "GDOCS_CLIENT_ID",
		clientSecEnv: "GDOCS_CLIENT_SECRET",
	},
}

// Services returns every supported service in a stable order.
func Services() []Service {
	return []Service{ServiceGmail, ServiceDrive, ServiceDocs}
}

// ParseService converts a user-supplied name into a Service.
func ParseService(s string) (Service, error) {
	svc := Service(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := serviceSpecs[svc]; !ok {
		return "", fmt.Errorf("unknown service %q (supported: %s)", s, strings.Join(ServiceNames(), ", "))
	}
	return svc, nil
}

// ServiceNames returns the string form of Services.
func ServiceNames() []string {
	names := make([]string, 0, len(serviceSpecs))
	for _, s := range Services() {
		names = append(names, string(s))
	}
	return names
}

func (s Service) String() string { return string(s) }

// Valid reports whether s is one of the supported services.
func (s Service) Valid() bool {
	_, ok := serviceSpecs[s]
	return ok
}

// Scopes returns a copy of the OAuth scopes the service requires.
func (s Service) Scopes() []string {
	spec := serviceSpecs[s]
	out := make([]string, len(spec.scopes))
	copy(out, spec.scopes)
	return out
}

// IntegrationName is the name the service is stored under, e.g. "Google Gmail".
func (s Service) IntegrationName() string {
	return serviceSpecs[s].integration
}

// Port is informational metadata stored with the integration row.
func (s Service) Port() int {
	return serviceSpecs[s].port
}

// ClientEnv returns the environment variable names holding the
// service-specific client id and secret.
func (s Service) ClientEnv() (idKey, secretKey string) {
	spec := serviceSpecs[s]
	return spec.clientIDEnv, spec.clientSecEnv
}
