package backup

import (
	"context"
	"io"

	md "github.com/nao1215/markdown"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

// Export writes every Active record to w as one plain-text document.
func Export(ctx context.Context, s store.Store, pause store.Sleeper, w io.Writer) (int, error) {
	var active []*records.Record
	err := store.Walk(ctx, s, pause, func(r *records.Record) error {
		if r.Status == records.StatusActive {
			active = append(active, r)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(active), WriteDocument(w, active)
}

// WriteDocument renders recs as a single markdown document with one section
// per record, separated by horizontal rules.
func WriteDocument(w io.Writer, recs []*records.Record) error {
	doc := md.NewMarkdown(w).
		H1("Knowledge Export").
		PlainTextf("%d active items", len(recs)).
		LF()
	for _, r := range recs {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		doc.H2(title).
			PlainText(r.Content).
			HorizontalRule()
	}
	return doc.Build()
}
