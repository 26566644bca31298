package drive

import (
	"io"
	"time"
)

// FileInfo is the metadata returned for a file or folder.
type FileInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size,omitempty"`
	CreatedTime  time.Time `json:"createdTime,omitzero"`
	ModifiedTime time.Time `json:"modifiedTime,omitzero"`
	WebViewLink  string    `json:"webViewLink,omitempty"`
	Parents      []string  `json:"parents,omitempty"`
	Owners       []User    `json:"owners,omitempty"`
	Shared       bool      `json:"shared"`
}

// User is an owner or permission holder.
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Permission is one access grant on a file.
type Permission struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Role         string `json:"role"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Domain       string `json:"domain,omitempty"`
}

// ListOptions filters ListFiles.
type ListOptions struct {
	// Query uses the Drive search language, e.g. "name contains 'report'".
	// See https://developers.google.com/drive/api/guides/search-files
	Query string
	// PageSize defaults to DefaultPageSize.
	PageSize int64
	OrderBy  string
}

// UploadOptions describes the new file.
type UploadOptions struct {
	ParentID    string
	Description string
	// MimeType is detected by Drive when empty.
	MimeType string
}

// ShareOptions describes the permission to grant.
type ShareOptions struct {
	// Type is user, group, domain or anyone. Defaults to user.
	Type string
	// Role is reader, commenter, writer or owner. Defaults to reader.
	Role string
	// EmailAddress is required for user and group grants.
	EmailAddress string
	// Domain is required for domain grants.
	Domain                string
	SendNotificationEmail bool
}

// Download is an open file body. Callers must close it.
type Download struct {
	File *FileInfo
	Body io.ReadCloser
}
