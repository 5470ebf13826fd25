// Package notion implements store.Store over a Notion database through the
// public REST API. The loosely typed page property shapes never leave this
// package.
package notion

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/noxenys/AI-Knowledge-Agent/internal/transport"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

const (
	// DefaultBaseURL is the Notion API root.
	DefaultBaseURL = "https://api.notion.com/v1"
	// APIVersion is the Notion-Version header value.
	APIVersion = "2022-06-28"
)

// Config holds the adapter settings.
type Config struct {
	Token      string
	DatabaseID string
	BaseURL    string
	PageSize   int
	ChunkLen   int
	Timeout    time.Duration
}

// Store is a Notion-backed store.Store.
type Store struct {
	client   *transport.Client
	baseURL  string
	db       string
	pageSize int
	chunkLen int
}

var _ store.Store = (*Store)(nil)

// New validates cfg and returns a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Token == "" {
		return nil, errors.NewConfigError("notion", "token is required", nil)
	}
	if cfg.DatabaseID == "" {
		return nil, errors.NewConfigError("notion", "database id is required", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 || cfg.PageSize > constants.MaxPageSize {
		cfg.PageSize = constants.DefaultPageSize
	}
	if cfg.ChunkLen <= 0 || cfg.ChunkLen > constants.MaxChunkLength {
		cfg.ChunkLen = constants.MaxChunkLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultHTTPTimeout
	}

	return &Store{
		client: transport.New("notion", &transport.BearerAuth{Token: cfg.Token},
			transport.WithHeader("Notion-Version", APIVersion),
			transport.WithTimeout(cfg.Timeout)),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		db:       cfg.DatabaseID,
		pageSize: cfg.PageSize,
		chunkLen: cfg.ChunkLen,
	}, nil
}

type titleFilter struct {
	Property string            `json:"property"`
	Title    map[string]string `json:"title"`
}

type queryRequest struct {
	PageSize    int          `json:"page_size"`
	StartCursor string       `json:"start_cursor,omitempty"`
	Filter      *titleFilter `json:"filter,omitempty"`
}

func (s *Store) query(ctx context.Context, req queryRequest) (*queryResponse, error) {
	var resp queryResponse
	url := s.baseURL + "/databases/" + s.db + "/query"
	if err := s.client.JSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		if errors.IsNotFound(err) {
			// A missing database must not read as a missing record.
			return nil, errors.NewConfigError("notion", "database not found or not shared with the integration: "+err.Error(), nil)
		}
		return nil, err
	}
	return &resp, nil
}

// ListPage implements store.Store.
func (s *Store) ListPage(ctx context.Context, cursor string) (store.Page, error) {
	resp, err := s.query(ctx, queryRequest{PageSize: s.pageSize, StartCursor: cursor})
	if err != nil {
		return store.Page{}, errors.WrapResource("query", "database", s.db, err)
	}

	out := store.Page{Records: make([]*records.Record, 0, len(resp.Results)), HasMore: resp.HasMore}
	for _, p := range resp.Results {
		if p.Archived {
			continue
		}
		out.Records = append(out.Records, toRecord(p))
	}
	if resp.NextCursor != nil {
		out.NextCursor = *resp.NextCursor
	}
	return out, nil
}

// GetByTitle implements store.Store.
func (s *Store) GetByTitle(ctx context.Context, title string) (*records.Record, error) {
	resp, err := s.query(ctx, queryRequest{
		PageSize: 1,
		Filter:   &titleFilter{Property: PropName, Title: map[string]string{"equals": title}},
	})
	if err != nil {
		return nil, errors.WrapResource("query", "record", title, err)
	}
	if len(resp.Results) == 0 {
		return nil, errors.NewNotFoundError("record", title)
	}
	return toRecord(resp.Results[0]), nil
}

type createRequest struct {
	Parent     map[string]string `json:"parent"`
	Properties writeProperties   `json:"properties"`
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, f store.Fields) (*records.Record, error) {
	var p page
	err := s.client.JSON(ctx, http.MethodPost, s.baseURL+"/pages", createRequest{
		Parent:     map[string]string{"database_id": s.db},
		Properties: fromFields(f, s.chunkLen),
	}, &p)
	if err != nil {
		return nil, errors.NewStoreWriteError("create", f.Title, "", err)
	}
	return toRecord(p), nil
}

type updateRequest struct {
	Properties writeProperties `json:"properties,omitempty"`
	Archived   *bool           `json:"archived,omitempty"`
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id string, f store.Fields) (*records.Record, error) {
	var p page
	err := s.client.JSON(ctx, http.MethodPatch, s.baseURL+"/pages/"+id, updateRequest{
		Properties: fromFields(f, s.chunkLen),
	}, &p)
	if err != nil {
		return nil, errors.NewStoreWriteError("update", f.Title, id, err)
	}
	return toRecord(p), nil
}

// Archive implements store.Store.
func (s *Store) Archive(ctx context.Context, id string) error {
	archived := true
	err := s.client.JSON(ctx, http.MethodPatch, s.baseURL+"/pages/"+id, updateRequest{Archived: &archived}, nil)
	if err != nil {
		return errors.NewStoreWriteError("archive", "", id, err)
	}
	return nil
}
