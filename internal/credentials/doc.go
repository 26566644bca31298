// Package credentials manages the OAuth2 credential lifecycle for each
// (workspace, Google service) pair: consent URLs, code exchange, storage,
// expiry-driven refresh, scope-change invalidation, revocation and bulk
// clearing.
//
// GetValidCredentials is the single entry point tool handlers use before
// calling a Google API. It returns nil, nil whenever the workspace is not
// currently authorized, whatever the cause; the remedy is always a new
// consent flow.
package credentials
