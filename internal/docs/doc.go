// Package docs is a thin client over the Google Docs API. File level
// operations on documents (list, search, share, export) go through the
// Drive API with the same credentials.
package docs
