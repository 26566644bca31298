package google

import (
	"fmt"
	"strings"
)

// ConfigurationError reports that no OAuth client credentials are configured
// for a service. It is fatal at startup.
type ConfigurationError struct {
	Service Service
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no OAuth client credentials for service %q: set %s",
		e.Service, strings.Join(e.Missing, ", "))
}
