package extensions

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/peterckelly/zotero/pkg/sanitizer"
)

// ReportRenderer turns report entries into a document. The returned
// reader may fail part way; the report extension then appends an error
// notice to whatever was already delivered.
type ReportRenderer interface {
	Render(ctx context.Context, entries []*ReportEntry) (io.Reader, error)
}

// ReportRendererFunc adapts a function to ReportRenderer.
type ReportRendererFunc func(ctx context.Context, entries []*ReportEntry) (io.Reader, error)

func (f ReportRendererFunc) Render(ctx context.Context, entries []*ReportEntry) (io.Reader, error) {
	return f(ctx, entries)
}

// HTMLReport renders a plain HTML report. Entries are written as they are
// rendered, so large reports start streaming before they are complete.
type HTMLReport struct {
	// Stylesheet is linked from the document head. Default:
	// "zotero://report/detail.css".
	Stylesheet string
}

// fields skipped in the per-item table because they are rendered elsewhere
var reportHiddenFields = []string{"title", "note", "abstractNote"}

func (h HTMLReport) Render(ctx context.Context, entries []*ReportEntry) (io.Reader, error) {
	css := h.Stylesheet
	if css == "" {
		css = "zotero://report/detail.css"
	}

	pr, pw := io.Pipe()
	go func() {
		w := bufio.NewWriter(pw)
		err := h.write(ctx, w, css, entries)
		if err == nil {
			err = w.Flush()
		}
		pw.CloseWithError(err)
	}()
	return pr, nil
}

func (h HTMLReport) write(ctx context.Context, w *bufio.Writer, css string, entries []*ReportEntry) error {
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\"/>\n<title>Zotero Report</title>\n")
	fmt.Fprintf(w, "<link rel=\"stylesheet\" type=\"text/css\" href=\"%s\"/>\n</head>\n<body>\n<ul class=\"report\">\n", sanitizer.Text(css))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		class := "item"
		if !e.SearchMatch {
			class += " unmatched"
		}
		fmt.Fprintf(w, "<li id=\"item_%s\" class=\"%s\">\n", sanitizer.Text(e.Key), class)
		if e.IsNote() {
			fmt.Fprintf(w, "<div class=\"note\">%s</div>\n", sanitizer.Fragment(e.Note))
		} else {
			fmt.Fprintf(w, "<h2>%s</h2>\n", sanitizer.Title(e.Title))
			writeFields(w, e.Item)
		}
		if len(e.Notes) > 0 {
			w.WriteString("<h3 class=\"notes\">Notes:</h3>\n<ul class=\"notes\">\n")
			for _, n := range e.Notes {
				fmt.Fprintf(w, "<li id=\"item_%s\">%s</li>\n", sanitizer.Text(n.Key), sanitizer.Fragment(n.Note))
			}
			w.WriteString("</ul>\n")
		}
		if len(e.Attachments) > 0 {
			w.WriteString("<h3 class=\"attachments\">Attachments</h3>\n<ul class=\"attachments\">\n")
			for _, a := range e.Attachments {
				fmt.Fprintf(w, "<li id=\"item_%s\">%s</li>\n", sanitizer.Text(a.Key), sanitizer.Title(a.Title))
			}
			w.WriteString("</ul>\n")
		}
		if _, err := w.WriteString("</li>\n"); err != nil {
			return err
		}
	}

	_, err := w.WriteString("</ul>\n</body>\n</html>\n")
	return err
}

func writeFields(w *bufio.Writer, it Item) {
	names := make([]string, 0, len(it.Fields)+1)
	for name, v := range it.Fields {
		if v != "" && !slices.Contains(reportHiddenFields, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	w.WriteString("<table>\n")
	fmt.Fprintf(w, "<tr><th>Item Type</th><td>%s</td></tr>\n", sanitizer.Text(it.ItemType))
	for _, name := range names {
		fmt.Fprintf(w, "<tr><th>%s</th><td>%s</td></tr>\n", sanitizer.Text(name), sanitizer.Text(it.Fields[name]))
	}
	w.WriteString("</table>\n")
	if abstract := it.Fields["abstractNote"]; abstract != "" {
		fmt.Fprintf(w, "<p class=\"abstractNote\">%s</p>\n", sanitizer.Fragment(abstract))
	}
}
