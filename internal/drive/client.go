package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/instrumentation"
)

const (
	// FolderMimeType is the MIME type of Drive folders.
	FolderMimeType = "application/vnd.google-apps.folder"
	// DocumentMimeType is the MIME type of Google Docs files.
	DocumentMimeType = "application/vnd.google-apps.document"

	// DefaultPageSize is used when a list call does not set a limit.
	DefaultPageSize = 10
	// MaxPageSize is the largest page the API accepts.
	MaxPageSize = 1000
)

const fileFields = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, parents, owners, shared"

// Client wraps the Drive service.
type Client struct {
	service *drive.Service
	metrics *instrumentation.Metrics
	// service label for metrics; docs reuses this client for Drive calls.
	label string
}

// NewClient creates a Drive client authorized by ts. Extra options are
// applied last.
func NewClient(ctx context.Context, ts oauth2.TokenSource, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	return newClient(ctx, ts, metrics, instrumentation.ServiceDrive, opts...)
}

// NewClientForService is NewClient with a different metrics label, for
// callers that reach Drive with another service's credentials.
func NewClientForService(ctx context.Context, ts oauth2.TokenSource, metrics *instrumentation.Metrics, label string, opts ...option.ClientOption) (*Client, error) {
	return newClient(ctx, ts, metrics, label, opts...)
}

func newClient(ctx context.Context, ts oauth2.TokenSource, metrics *instrumentation.Metrics, label string, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(google.NewAPIHTTPClient(ts))}, opts...)
	svc, err := drive.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{service: svc, metrics: metrics, label: label}, nil
}

func (c *Client) track(ctx context.Context, op string, fn func(context.Context) error) error {
	return instrumentation.TrackGoogleAPI(ctx, c.metrics, c.label, op, fn)
}

// ListFiles lists non-trashed files matching opts.
func (c *Client) ListFiles(ctx context.Context, opts ListOptions) ([]*FileInfo, error) {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	q := "trashed = false"
	if opts.Query != "" {
		q = "(" + opts.Query + ") and " + q
	}

	var out []*FileInfo
	err := c.track(ctx, "list", func(ctx context.Context) error {
		call := c.service.Files.List().
			Context(ctx).
			Q(q).
			PageSize(size).
			Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")"))
		if opts.OrderBy != "" {
			call = call.OrderBy(opts.OrderBy)
		}
		res, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		out = make([]*FileInfo, 0, len(res.Files))
		for _, f := range res.Files {
			out = append(out, convertToFileInfo(f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchFiles lists files whose name or content contains term. mimeType
// narrows the result when non-empty.
func (c *Client) SearchFiles(ctx context.Context, term, mimeType string, pageSize int64) ([]*FileInfo, error) {
	if strings.TrimSpace(term) == "" {
		return nil, errors.New("search term is required")
	}
	return c.ListFiles(ctx, ListOptions{Query: TextQuery(term, mimeType), PageSize: pageSize})
}

// GetFile returns the metadata of one file.
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, errors.New("file ID is required")
	}
	var out *FileInfo
	err := c.track(ctx, "get", func(ctx context.Context) error {
		f, err := c.service.Files.Get(fileID).Context(ctx).Fields(googleapi.Field(fileFields)).Do()
		if err != nil {
			return fmt.Errorf("failed to get file %s: %w", fileID, err)
		}
		out = convertToFileInfo(f)
		return nil
	})
	return out, err
}

// CreateFolder creates a folder, under parentID when it is non-empty.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*FileInfo, error) {
	if name == "" {
		return nil, errors.New("folder name is required")
	}
	folder := &drive.File{Name: name, MimeType: FolderMimeType}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	var out *FileInfo
	err := c.track(ctx, "create_folder", func(ctx context.Context) error {
		f, err := c.service.Files.Create(folder).Context(ctx).Fields(googleapi.Field(fileFields)).Do()
		if err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}
		out = convertToFileInfo(f)
		return nil
	})
	return out, err
}

// UploadFile creates a file with the given content.
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader, opts UploadOptions) (*FileInfo, error) {
	if name == "" {
		return nil, errors.New("file name is required")
	}
	if content == nil {
		return nil, errors.New("file content is required")
	}

	file := &drive.File{Name: name, Description: opts.Description, MimeType: opts.MimeType}
	if opts.ParentID != "" {
		file.Parents = []string{opts.ParentID}
	}

	var out *FileInfo
	err := c.track(ctx, "upload", func(ctx context.Context) error {
		call := c.service.Files.Create(file).Context(ctx).Fields(googleapi.Field(fileFields))
		if opts.MimeType != "" {
			call = call.Media(content, googleapi.ContentType(opts.MimeType))
		} else {
			call = call.Media(content)
		}
		f, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to upload file: %w", err)
		}
		out = convertToFileInfo(f)
		return nil
	})
	return out, err
}

// DownloadFile opens the content of a binary file.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (*Download, error) {
	info, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(info.MimeType, "application/vnd.google-apps.") {
		return nil, fmt.Errorf("file %s is a Google Workspace file (%s); export it instead", fileID, info.MimeType)
	}

	var body io.ReadCloser
	err = c.track(ctx, "download", func(ctx context.Context) error {
		resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("failed to download file %s: %w", fileID, err)
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Download{File: info, Body: body}, nil
}

// ExportFile converts a Google Workspace file to mimeType.
func (c *Client) ExportFile(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	if fileID == "" {
		return nil, errors.New("file ID is required")
	}
	var body io.ReadCloser
	err := c.track(ctx, "export", func(ctx context.Context) error {
		resp, err := c.service.Files.Export(fileID, mimeType).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("failed to export file %s: %w", fileID, err)
		}
		body = resp.Body
		return nil
	})
	return body, err
}

// ShareFile grants a permission on a file.
func (c *Client) ShareFile(ctx context.Context, fileID string, opts ShareOptions) (*Permission, error) {
	perm, err := opts.permission()
	if err != nil {
		return nil, err
	}
	if fileID == "" {
		return nil, errors.New("file ID is required")
	}

	var out *Permission
	err = c.track(ctx, "share", func(ctx context.Context) error {
		p, err := c.service.Permissions.Create(fileID, perm).
			Context(ctx).
			SendNotificationEmail(opts.SendNotificationEmail).
			Fields("id, type, role, emailAddress, domain").
			Do()
		if err != nil {
			return fmt.Errorf("failed to share file %s: %w", fileID, err)
		}
		out = convertToPermission(p)
		return nil
	})
	return out, err
}

var (
	validTypes = map[string]bool{"user": true, "group": true, "domain": true, "anyone": true}
	validRoles = map[string]bool{"reader": true, "commenter": true, "writer": true, "fileOrganizer": true, "organizer": true, "owner": true}
)

func (o ShareOptions) permission() (*drive.Permission, error) {
	typ, role := o.Type, o.Role
	if typ == "" {
		typ = "user"
	}
	if role == "" {
		role = "reader"
	}
	if !validTypes[typ] {
		return nil, fmt.Errorf("invalid permission type %q", typ)
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	p := &drive.Permission{Type: typ, Role: role}
	switch typ {
	case "user", "group":
		if o.EmailAddress == "" {
			return nil, fmt.Errorf("email address is required for %s permissions", typ)
		}
		p.EmailAddress = o.EmailAddress
	case "domain":
		if o.Domain == "" {
			return nil, errors.New("domain is required for domain permissions")
		}
		p.Domain = o.Domain
	}
	return p, nil
}

// TextQuery builds a query matching term in the name or full text.
func TextQuery(term, mimeType string) string {
	t := EscapeQuery(term)
	q := fmt.Sprintf("(name contains '%s' or fullText contains '%s')", t, t)
	if mimeType != "" {
		q = fmt.Sprintf("mimeType = '%s' and %s", EscapeQuery(mimeType), q)
	}
	return q
}

// EscapeQuery escapes a value for use inside a quoted query string.
func EscapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func convertToFileInfo(f *drive.File) *FileInfo {
	info := &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
		Shared:      f.Shared,
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		info.CreatedTime = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		info.ModifiedTime = t
	}
	for _, o := range f.Owners {
		info.Owners = append(info.Owners, User{DisplayName: o.DisplayName, EmailAddress: o.EmailAddress})
	}
	return info
}

func convertToPermission(p *drive.Permission) *Permission {
	return &Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
	}
}
