package docs

import (
	"strings"

	docs "google.golang.org/api/docs/v1"
)

// PlainText extracts the text of a document body. Table cells are
// separated by tabs and rows by newlines.
func PlainText(d *docs.Document) string {
	if d == nil || d.Body == nil {
		return ""
	}
	var b strings.Builder
	writeElements(&b, d.Body.Content)
	return strings.TrimSpace(b.String())
}

func writeElements(b *strings.Builder, elems []*docs.StructuralElement) {
	for _, el := range elems {
		switch {
		case el.Paragraph != nil:
			for _, pe := range el.Paragraph.Elements {
				if pe.TextRun != nil {
					b.WriteString(pe.TextRun.Content)
				}
			}
		case el.Table != nil:
			for _, row := range el.Table.TableRows {
				for i, cell := range row.TableCells {
					if i > 0 {
						b.WriteString("\t")
					}
					var cb strings.Builder
					writeElements(&cb, cell.Content)
					b.WriteString(strings.TrimSpace(cb.String()))
				}
				b.WriteString("\n")
			}
		}
	}
}

// endIndex returns the end index of the last body element, or 1 for an
// empty body.
func endIndex(d *docs.Document) int64 {
	if d == nil || d.Body == nil || len(d.Body.Content) == 0 {
		return 1
	}
	return d.Body.Content[len(d.Body.Content)-1].EndIndex
}
