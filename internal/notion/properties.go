package notion

import (
	"strings"
	"time"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

// Property names in the knowledge database.
const (
	PropName    = "Name"
	PropType    = "Type"
	PropStatus  = "Status"
	PropSource  = "Source"
	PropContent = "Content"
)

type textContent struct {
	Content string `json:"content"`
}

type richText struct {
	Type      string       `json:"type,omitempty"`
	Text      *textContent `json:"text,omitempty"`
	PlainText *string      `json:"plain_text,omitempty"`
}

type option struct {
	Name string `json:"name"`
}

// property is the union of every property shape the database uses. Only the
// field matching Type is populated.
type property struct {
	Type     string     `json:"type,omitempty"`
	Title    []richText `json:"title,omitempty"`
	RichText []richText `json:"rich_text,omitempty"`
	Select   *option    `json:"select,omitempty"`
	Status   *option    `json:"status,omitempty"`
	URL      *string    `json:"url,omitempty"`
}

type page struct {
	ID             string              `json:"id"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	URL            string              `json:"url,omitempty"`
	Properties     map[string]property `json:"properties"`
}

type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// plainText joins a rich text list, preferring plain_text and falling back
// to text.content.
func plainText(items []richText) string {
	var b strings.Builder
	for _, it := range items {
		switch {
		case it.PlainText != nil:
			b.WriteString(*it.PlainText)
		case it.Text != nil:
			b.WriteString(it.Text.Content)
		}
	}
	return b.String()
}

// toRecord maps a page into the typed record shape.
func toRecord(p page) *records.Record {
	props := p.Properties
	r := &records.Record{
		ID:             p.ID,
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
		Tag:            records.DefaultTag,
		Status:         records.StatusActive,
	}

	if name, ok := props[PropName]; ok && len(name.Title) > 0 {
		r.Title = plainText(name.Title[:1])
	}
	if t, ok := props[PropType]; ok && t.Select != nil {
		r.Tag = records.NormalizeTag(t.Select.Name)
	}
	if s, ok := props[PropStatus]; ok && s.Status != nil {
		r.Status = records.ParseStatus(s.Status.Name)
	}
	if src, ok := props[PropSource]; ok && src.URL != nil {
		r.SourceURL = *src.URL
	}
	if c, ok := props[PropContent]; ok {
		r.Content = plainText(c.RichText)
	}
	return r
}

// writeProperties is the property payload of a create or update. Source is
// always sent so clearing a URL clears it in the store.
type writeProperties map[string]any

func fromFields(f store.Fields, chunkLen int) writeProperties {
	chunks := records.SplitChunks(f.Content, chunkLen)
	content := make([]richText, 0, len(chunks))
	for _, c := range chunks {
		content = append(content, richText{Type: "text", Text: &textContent{Content: c}})
	}

	var source *string
	if u := strings.TrimSpace(f.SourceURL); u != "" {
		source = &u
	}

	return writeProperties{
		PropName:    map[string]any{"title": []richText{{Type: "text", Text: &textContent{Content: f.Title}}}},
		PropType:    map[string]any{"select": option{Name: f.Tag.String()}},
		PropStatus:  map[string]any{"status": option{Name: f.Status.String()}},
		PropContent: map[string]any{"rich_text": content},
		PropSource:  map[string]any{"url": source},
	}
}
