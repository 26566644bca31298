package docs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at"}),
		nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func paragraph(text string, end int64) *docs.StructuralElement {
	return &docs.StructuralElement{
		EndIndex: end,
		Paragraph: &docs.Paragraph{Elements: []*docs.ParagraphElement{
			{TextRun: &docs.TextRun{Content: text}},
		}},
	}
}

func TestPlainText(t *testing.T) {
	d := &docs.Document{Body: &docs.Body{Content: []*docs.StructuralElement{
		{SectionBreak: &docs.SectionBreak{}, EndIndex: 1},
		paragraph("Hello\n", 7),
		{Table: &docs.Table{TableRows: []*docs.TableRow{
			{TableCells: []*docs.TableCell{
				{Content: []*docs.StructuralElement{paragraph("a\n", 0)}},
				{Content: []*docs.StructuralElement{paragraph("b\n", 0)}},
			}},
		}}},
		paragraph("World\n", 20),
	}}}

	assert.Equal(t, "Hello\na\tb\nWorld", PlainText(d))
	assert.Equal(t, int64(20), endIndex(d))
	assert.Empty(t, PlainText(nil))
	assert.Equal(t, int64(1), endIndex(&docs.Document{}))
}

func TestUpdateRequests(t *testing.T) {
	t.Run("replace non-empty body", func(t *testing.T) {
		reqs := updateRequests(20, "new", false)
		require.Len(t, reqs, 2)
		assert.Equal(t, &docs.Range{StartIndex: 1, EndIndex: 19}, reqs[0].DeleteContentRange.Range)
		assert.Equal(t, int64(1), reqs[1].InsertText.Location.Index)
		assert.Equal(t, "new", reqs[1].InsertText.Text)
	})

	t.Run("replace empty body only inserts", func(t *testing.T) {
		reqs := updateRequests(2, "new", false)
		require.Len(t, reqs, 1)
		assert.NotNil(t, reqs[0].InsertText)
	})

	t.Run("append", func(t *testing.T) {
		reqs := updateRequests(20, "more", true)
		require.Len(t, reqs, 1)
		assert.Equal(t, int64(19), reqs[0].InsertText.Location.Index)
		assert.Equal(t, "\nmore", reqs[0].InsertText.Text)
	})
}

func TestClient_CreateDocument(t *testing.T) {
	var batch docs.BatchUpdateDocumentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/v1/documents"):
			writeJSON(w, &docs.Document{DocumentId: "doc1", Title: "Plan"})
		case strings.HasSuffix(r.URL.Path, "/v1/documents/doc1:batchUpdate"):
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
			writeJSON(w, &docs.BatchUpdateDocumentResponse{DocumentId: "doc1"})
		default:
			http.NotFound(w, r)
		}
	})

	d, err := c.CreateDocument(context.Background(), "Plan", "first line")
	require.NoError(t, err)
	assert.Equal(t, "doc1", d.ID)
	assert.Equal(t, "https://docs.google.com/document/d/doc1/edit", d.URL)
	require.Len(t, batch.Requests, 1)
	assert.Equal(t, "first line", batch.Requests[0].InsertText.Text)
}

func TestClient_CreateDocument_RequiresTitle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { t.Error("no request expected") })
	_, err := c.CreateDocument(context.Background(), "", "x")
	require.Error(t, err)
}

func TestClient_GetDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &docs.Document{
			DocumentId: "doc1",
			Title:      "Notes",
			RevisionId: "rev-7",
			Body:       &docs.Body{Content: []*docs.StructuralElement{paragraph("Body text\n", 11)}},
		})
	})

	d, err := c.GetDocument(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "Notes", d.Title)
	assert.Equal(t, "Body text", d.Content)
	assert.Equal(t, "rev-7", d.RevisionID)
}

func TestClient_ListDocuments(t *testing.T) {
	var q string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("q")
		writeJSON(w, &drive.FileList{Files: []*drive.File{{Id: "doc1", Name: "Notes"}}})
	})

	files, err := c.ListDocuments(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, q, "mimeType = 'application/vnd.google-apps.document'")
}

func TestClient_ExportDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/files/doc1/export"), r.URL.Path)
		assert.Equal(t, "text/plain", r.URL.Query().Get("mimeType"))
		_, _ = io.WriteString(w, "exported")
	})

	data, mimeType, err := c.ExportDocument(context.Background(), "doc1", "TXT")
	require.NoError(t, err)
	assert.Equal(t, "exported", string(data))
	assert.Equal(t, "text/plain", mimeType)
}

func TestClient_ExportDocument_UnsupportedFormat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { t.Error("no request expected") })
	_, _, err := c.ExportDocument(context.Background(), "doc1", "xls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docx, epub, html, md, odt, pdf, rtf, txt")
}
