// Package records defines the strongly typed Record shape shared by every
// component, the closed Tag and Status enumerations, the content fingerprint
// used for change detection, and the chunking rules applied at the store boundary.
package records

import (
	"strings"
	"time"
)

// Record is one titled content item tracked by the record store.
type Record struct {
	// ID is the opaque store-assigned identity, stable across updates.
	ID string `json:"id" yaml:"id"`

	// Title is the natural key. Uniqueness is repaired, not assumed.
	Title string `json:"title" yaml:"title"`

	// Content is the full text, already reassembled from store chunks.
	Content string `json:"content" yaml:"content"`

	Tag    Tag    `json:"tag" yaml:"tag"`
	Status Status `json:"status" yaml:"status"`

	// SourceURL is empty for self-managed records.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	CreatedTime    time.Time `json:"created_time" yaml:"created_time"`
	LastEditedTime time.Time `json:"last_edited_time" yaml:"last_edited_time"`
}

// SelfManaged reports whether the record has no remote source to reconcile against.
func (r *Record) SelfManaged() bool {
	return strings.TrimSpace(r.SourceURL) == ""
}

// Hash returns the content fingerprint of the record.
func (r *Record) Hash() string {
	return ContentHash(r.Content)
}

// QuoteSource renders text copied verbatim from url. Discovered records end
// with a quote so later cycles can tell the copy is still current.
func QuoteSource(url, text string) string {
	return "Original Content (" + url + "):\n\n" + text
}
