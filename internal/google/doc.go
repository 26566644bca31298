// Package google describes the Google services workspace-mcp integrates with
// and the OAuth2 client configuration for each of them.
//
// Each supported API is a value of the closed Service enum. A Service knows
// its required scopes, the integration name it is stored under, and which
// environment variables hold its OAuth client credentials. Client credentials
// are resolved once with ResolveClientCredentials; a missing pair is a
// *ConfigurationError.
//
// The package also owns the OAuth state parameter format (EncodeState /
// DecodeState) shared by the authorization URL builder and the callback
// handler, and the TokenProvider interface through which API clients obtain
// tokens.
package google
