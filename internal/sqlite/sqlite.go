// Package sqlite implements store.Store on a local SQLite database. It serves
// as an offline record store for development and for running the agent
// without a Notion workspace.
package sqlite

import (
	"context"
	"database/sql"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	tag         TEXT NOT NULL,
	status      TEXT NOT NULL,
	source_url  TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	archived_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_records_title ON records(title);
CREATE INDEX IF NOT EXISTS idx_records_archived ON records(archived_at);
`

const columns = `id, title, content, tag, status, source_url, created_at, updated_at`

// Store is a SQLite-backed store.Store.
type Store struct {
	db       *sql.DB
	pageSize int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock replaces the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.WrapResource("open", "database", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("migrate", "database", path, err)
	}

	s := &Store{
		db:       db,
		pageSize: constants.DefaultPageSize,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*records.Record, error) {
	var (
		r                records.Record
		tag, status      string
		source           sql.NullString
		created, updated string
	)
	if err := row.Scan(&r.ID, &r.Title, &r.Content, &tag, &status, &source, &created, &updated); err != nil {
		return nil, err
	}
	r.Tag = records.NormalizeTag(tag)
	r.Status = records.ParseStatus(status)
	if source.Valid {
		r.SourceURL = source.String
	}
	r.CreatedTime, _ = time.Parse(time.RFC3339Nano, created)
	r.LastEditedTime, _ = time.Parse(time.RFC3339Nano, updated)
	return &r, nil
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// ListPage implements store.Store. The cursor is the id of the last record of
// the previous page; ids are ULIDs and sort by creation.
func (s *Store) ListPage(ctx context.Context, cursor string) (store.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM records WHERE archived_at IS NULL AND id > ? ORDER BY id LIMIT ?`,
		cursor, s.pageSize+1)
	if err != nil {
		return store.Page{}, errors.WrapResource("list", "records", cursor, err)
	}
	defer rows.Close()

	var page store.Page
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return store.Page{}, errors.WrapResource("scan", "records", cursor, err)
		}
		page.Records = append(page.Records, r)
	}
	if err := rows.Err(); err != nil {
		return store.Page{}, errors.WrapResource("list", "records", cursor, err)
	}

	if len(page.Records) > s.pageSize {
		page.Records = page.Records[:s.pageSize]
		page.HasMore = true
		page.NextCursor = page.Records[len(page.Records)-1].ID
	}
	return page, nil
}

// GetByTitle implements store.Store. With duplicates present the oldest
// record wins.
func (s *Store) GetByTitle(ctx context.Context, title string) (*records.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM records WHERE archived_at IS NULL AND title = ? ORDER BY id LIMIT 1`, title)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("record", title)
	}
	if err != nil {
		return nil, errors.WrapResource("query", "record", title, err)
	}
	return r, nil
}

func (s *Store) get(ctx context.Context, id string) (*records.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("record", id)
	}
	return r, err
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, f store.Fields) (*records.Record, error) {
	now := s.now().UTC()
	id := s.newID(now)
	stamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.Title, f.Content, f.Tag.String(), f.Status.String(), nullable(f.SourceURL), stamp, stamp)
	if err != nil {
		return nil, errors.NewStoreWriteError("create", f.Title, "", err)
	}
	return s.get(ctx, id)
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id string, f store.Fields) (*records.Record, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET title = ?, content = ?, tag = ?, status = ?, source_url = ?, updated_at = ?
		 WHERE id = ? AND archived_at IS NULL`,
		f.Title, f.Content, f.Tag.String(), f.Status.String(), nullable(f.SourceURL),
		s.now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return nil, errors.NewStoreWriteError("update", f.Title, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NewStoreWriteError("update", f.Title, id, errors.NewNotFoundError("record", id))
	}
	return s.get(ctx, id)
}

// Archive implements store.Store.
func (s *Store) Archive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET archived_at = ? WHERE id = ? AND archived_at IS NULL`,
		s.now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return errors.NewStoreWriteError("archive", "", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewStoreWriteError("archive", "", id, errors.NewNotFoundError("record", id))
	}
	return nil
}
