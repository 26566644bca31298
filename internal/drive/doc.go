// Package drive is a thin client over the Google Drive v3 API.
//
// It covers the file operations the Drive tools expose (list, search,
// create folder, upload, download, share) plus export, which the Docs
// tools use for Google Docs files. Like the other API clients it takes an
// oauth2.TokenSource from the credential manager and never refreshes.
package drive
