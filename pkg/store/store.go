// Package store defines the boundary between the reconciliation engine and
// whichever record store holds the data. Adapters translate the store's own
// property shapes into records.Record; nothing above this package sees them.
package store

import (
	"context"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
)

// Store is the record store seen by the engine.
type Store interface {
	// ListPage returns one page of non-archived records. An empty cursor
	// starts from the beginning.
	ListPage(ctx context.Context, cursor string) (Page, error)

	// GetByTitle returns the first record whose title equals title exactly,
	// or an error satisfying errors.IsNotFound.
	GetByTitle(ctx context.Context, title string) (*records.Record, error)

	// Create persists a new record and returns it with its assigned ID.
	Create(ctx context.Context, f Fields) (*records.Record, error)

	// Update replaces every property of the record with id.
	Update(ctx context.Context, id string, f Fields) (*records.Record, error)

	// Archive hides the record from listings. Records are never hard-deleted.
	Archive(ctx context.Context, id string) error
}

// Page is one slice of a cursor-paginated listing.
type Page struct {
	Records    []*records.Record
	HasMore    bool
	NextCursor string
}

// Fields is the writable property set of a record.
type Fields struct {
	Title     string
	Content   string
	Tag       records.Tag
	Status    records.Status
	SourceURL string
}

// FieldsOf returns the writable properties of r.
func FieldsOf(r *records.Record) Fields {
	return Fields{
		Title:     r.Title,
		Content:   r.Content,
		Tag:       r.Tag,
		Status:    r.Status,
		SourceURL: r.SourceURL,
	}
}

// Sleeper is the polite delay applied between page requests.
type Sleeper func(ctx context.Context) error

// Walk lists every page in order, calling fn for each record. pause, when
// non-nil, runs after every page. Returning an error from fn stops the walk.
func Walk(ctx context.Context, s Store, pause Sleeper, fn func(*records.Record) error) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.ListPage(ctx, cursor)
		if err != nil {
			return err
		}
		for _, r := range page.Records {
			if err := fn(r); err != nil {
				return err
			}
		}
		if pause != nil {
			if err := pause(ctx); err != nil {
				return err
			}
		}
		if !page.HasMore || page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

// All collects every record via Walk.
func All(ctx context.Context, s Store, pause Sleeper) ([]*records.Record, error) {
	var all []*records.Record
	err := Walk(ctx, s, pause, func(r *records.Record) error {
		all = append(all, r)
		return nil
	})
	return all, err
}
