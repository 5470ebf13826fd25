// Package memstore is an in-memory store.Store used by tests and dry runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

// Op names a store call for fault injection and counting.
type Op string

// Store operations.
const (
	OpList    Op = "list"
	OpGet     Op = "get"
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpArchive Op = "archive"
)

// FaultFunc may return an error to fail the given call before it runs. It is
// called with the store locked and must not call back into the store.
type FaultFunc func(op Op, key string) error

// Store keeps records in insertion order.
type Store struct {
	mu       sync.Mutex
	records  []*records.Record
	archived map[string]bool
	pageSize int
	seq      int
	now      func() time.Time
	fault    FaultFunc
	calls    map[Op]int
}

// New returns an empty store listing pageSize records per page.
func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Store{
		archived: make(map[string]bool),
		pageSize: pageSize,
		now:      time.Now,
		calls:    make(map[Op]int),
	}
}

// SetClock replaces the creation/edit timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetFault installs a fault hook; nil removes it.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Seed inserts a record verbatim, assigning an ID if it has none.
func (s *Store) Seed(r records.Record) *records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.nextID()
	}
	if r.CreatedTime.IsZero() {
		r.CreatedTime = s.now()
	}
	if r.LastEditedTime.IsZero() {
		r.LastEditedTime = r.CreatedTime
	}
	cp := r
	s.records = append(s.records, &cp)
	out := cp
	return &out
}

// Calls returns how many times op was invoked, failed calls included.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Writes returns the number of create, update and archive calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[OpCreate] + s.calls[OpUpdate] + s.calls[OpArchive]
}

// Snapshot returns copies of all non-archived records.
func (s *Store) Snapshot() []records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]records.Record, 0, len(s.records))
	for _, r := range s.live() {
		out = append(out, *r)
	}
	return out
}

// Get returns a copy of the record with id, archived or not.
func (s *Store) Get(id string) (records.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return *r, true
		}
	}
	return records.Record{}, false
}

// IsArchived reports whether id has been archived.
func (s *Store) IsArchived(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archived[id]
}

// ListPage implements store.Store. Cursors are decimal offsets.
func (s *Store) ListPage(_ context.Context, cursor string) (store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpList, cursor); err != nil {
		return store.Page{}, err
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return store.Page{}, errors.NewValidationError("cursor", cursor, "malformed cursor")
		}
		offset = n
	}

	live := s.live()
	if offset > len(live) {
		offset = len(live)
	}
	end := offset + s.pageSize
	if end > len(live) {
		end = len(live)
	}

	page := store.Page{Records: make([]*records.Record, 0, end-offset)}
	for _, r := range live[offset:end] {
		cp := *r
		page.Records = append(page.Records, &cp)
	}
	if end < len(live) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// GetByTitle implements store.Store.
func (s *Store) GetByTitle(_ context.Context, title string) (*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGet, title); err != nil {
		return nil, err
	}
	for _, r := range s.live() {
		if r.Title == title {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errors.NewNotFoundError("record", title)
}

// Create implements store.Store.
func (s *Store) Create(_ context.Context, f store.Fields) (*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCreate, f.Title); err != nil {
		return nil, err
	}
	now := s.now()
	r := &records.Record{
		ID:             s.nextID(),
		CreatedTime:    now,
		LastEditedTime: now,
	}
	apply(r, f)
	s.records = append(s.records, r)
	cp := *r
	return &cp, nil
}

// Update implements store.Store.
func (s *Store) Update(_ context.Context, id string, f store.Fields) (*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdate, id); err != nil {
		return nil, err
	}
	r := s.find(id)
	if r == nil {
		return nil, errors.NewNotFoundError("record", id)
	}
	apply(r, f)
	r.LastEditedTime = s.now()
	cp := *r
	return &cp, nil
}

// Archive implements store.Store.
func (s *Store) Archive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpArchive, id); err != nil {
		return err
	}
	if s.find(id) == nil {
		return errors.NewNotFoundError("record", id)
	}
	s.archived[id] = true
	return nil
}

func (s *Store) enter(op Op, key string) error {
	s.calls[op]++
	if s.fault != nil {
		return s.fault(op, key)
	}
	return nil
}

func (s *Store) live() []*records.Record {
	live := make([]*records.Record, 0, len(s.records))
	for _, r := range s.records {
		if !s.archived[r.ID] {
			live = append(live, r)
		}
	}
	return live
}

func (s *Store) find(id string) *records.Record {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) nextID() string {
	s.seq++
	return fmt.Sprintf("rec-%04d", s.seq)
}

func apply(r *records.Record, f store.Fields) {
	r.Title = f.Title
	r.Content = f.Content
	r.Tag = f.Tag
	r.Status = f.Status
	r.SourceURL = f.SourceURL
}

// Titles returns the sorted titles of all live records.
func (s *Store) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.records))
	for _, r := range s.live() {
		titles = append(titles, r.Title)
	}
	sort.Strings(titles)
	return titles
}
