package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/oauth2"
	docs "google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"github.com/oneplace/workspace-mcp/internal/drive"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/instrumentation"
)

// MaxExportSize is the largest export Drive serves.
const MaxExportSize = 10 << 20

// ExportFormats maps export format names to MIME types.
var ExportFormats = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"odt":  "application/vnd.oasis.opendocument.text",
	"rtf":  "application/rtf",
	"txt":  "text/plain",
	"html": "text/html",
	"epub": "application/epub+zip",
	"md":   "text/markdown",
}

// ExportFormatNames returns the supported export formats, sorted.
func ExportFormatNames() []string {
	names := make([]string, 0, len(ExportFormats))
	for k := range ExportFormats {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Document is the shape returned to tools.
type Document struct {
	ID         string `json:"document_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content,omitempty"`
	RevisionID string `json:"revision_id,omitempty"`
}

// DocumentURL returns the edit URL of a document.
func DocumentURL(id string) string {
	return "https://docs.google.com/document/d/" + id + "/edit"
}

// Client wraps the Docs service and a Drive client sharing its token.
type Client struct {
	documents *docs.DocumentsService
	files     *drive.Client
	metrics   *instrumentation.Metrics
}

// NewClient creates a Docs client authorized by ts. Extra options are
// applied last to both the Docs and Drive services.
func NewClient(ctx context.Context, ts oauth2.TokenSource, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(google.NewAPIHTTPClient(ts))}, opts...)
	svc, err := docs.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docs service: %w", err)
	}
	files, err := drive.NewClientForService(ctx, ts, metrics, instrumentation.ServiceDocs, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{documents: svc.Documents, files: files, metrics: metrics}, nil
}

func (c *Client) track(ctx context.Context, op string, fn func(context.Context) error) error {
	return instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceDocs, op, fn)
}

// CreateDocument creates a document and inserts content when non-empty.
func (c *Client) CreateDocument(ctx context.Context, title, content string) (*Document, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}

	var created *docs.Document
	err := c.track(ctx, "create", func(ctx context.Context) error {
		var err error
		created, err = c.documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if content != "" {
		if err := c.batchUpdate(ctx, created.DocumentId, []*docs.Request{insertText(1, content)}); err != nil {
			return nil, err
		}
	}
	return &Document{ID: created.DocumentId, Title: created.Title, URL: DocumentURL(created.DocumentId)}, nil
}

// GetDocument returns the document with its body as plain text.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	d, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:         d.DocumentId,
		Title:      d.Title,
		URL:        DocumentURL(d.DocumentId),
		Content:    PlainText(d),
		RevisionID: d.RevisionId,
	}, nil
}

func (c *Client) get(ctx context.Context, id string) (*docs.Document, error) {
	if id == "" {
		return nil, errors.New("document ID is required")
	}
	var d *docs.Document
	err := c.track(ctx, "get", func(ctx context.Context) error {
		var err error
		d, err = c.documents.Get(id).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get document %s: %w", id, err)
		}
		return nil
	})
	return d, err
}

// UpdateDocument replaces the body with content, or appends it on a new
// line when appendContent is set.
func (c *Client) UpdateDocument(ctx context.Context, id, content string, appendContent bool) error {
	if content == "" {
		return errors.New("content is required")
	}
	d, err := c.get(ctx, id)
	if err != nil {
		return err
	}
	return c.batchUpdate(ctx, id, updateRequests(endIndex(d), content, appendContent))
}

// updateRequests builds the batch for UpdateDocument. end is the body's
// end index; the final newline at end-1 can never be deleted.
func updateRequests(end int64, content string, appendContent bool) []*docs.Request {
	last := max(end-1, 1)
	if appendContent {
		return []*docs.Request{insertText(last, "\n"+content)}
	}
	var reqs []*docs.Request
	if last > 1 {
		reqs = append(reqs, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: last},
			},
		})
	}
	return append(reqs, insertText(1, content))
}

func insertText(index int64, text string) *docs.Request {
	return &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: index},
			Text:     text,
		},
	}
}

func (c *Client) batchUpdate(ctx context.Context, id string, reqs []*docs.Request) error {
	return c.track(ctx, "update", func(ctx context.Context) error {
		_, err := c.documents.BatchUpdate(id, &docs.BatchUpdateDocumentRequest{Requests: reqs}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update document %s: %w", id, err)
		}
		return nil
	})
}

// ListDocuments lists the most recently modified documents.
func (c *Client) ListDocuments(ctx context.Context, pageSize int64) ([]*drive.FileInfo, error) {
	return c.files.ListFiles(ctx, drive.ListOptions{
		Query:    "mimeType = '" + drive.DocumentMimeType + "'",
		PageSize: pageSize,
		OrderBy:  "modifiedTime desc",
	})
}

// SearchDocuments finds documents whose name or text contains term.
func (c *Client) SearchDocuments(ctx context.Context, term string, pageSize int64) ([]*drive.FileInfo, error) {
	return c.files.SearchFiles(ctx, term, drive.DocumentMimeType, pageSize)
}

// ShareDocument grants a user access to a document.
func (c *Client) ShareDocument(ctx context.Context, id, email, role string, notify bool) (*drive.Permission, error) {
	return c.files.ShareFile(ctx, id, drive.ShareOptions{
		Type:                  "user",
		Role:                  role,
		EmailAddress:          email,
		SendNotificationEmail: notify,
	})
}

// ExportDocument returns the document converted to format, which must be a
// key of ExportFormats.
func (c *Client) ExportDocument(ctx context.Context, id, format string) ([]byte, string, error) {
	format = strings.ToLower(format)
	mimeType, ok := ExportFormats[format]
	if !ok {
		return nil, "", fmt.Errorf("unsupported export format %q (supported: %s)", format, strings.Join(ExportFormatNames(), ", "))
	}

	body, err := c.files.ExportFile(ctx, id, mimeType)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, MaxExportSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read export of %s: %w", id, err)
	}
	if len(data) > MaxExportSize {
		return nil, "", fmt.Errorf("export of %s exceeds %d bytes", id, MaxExportSize)
	}
	return data, mimeType, nil
}
