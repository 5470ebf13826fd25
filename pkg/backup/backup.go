// Package backup writes structured snapshots of the whole store, reads them
// back for restores, and renders the Active records as one text document.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

// Snapshot is the on-disk shape of a backup.
type Snapshot struct {
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
	Count       int              `json:"count" yaml:"count"`
	Records     []records.Record `json:"records" yaml:"records"`
}

// Snapshotter dumps the store into a directory.
type Snapshotter struct {
	store     store.Store
	dir       string
	formats   []Format
	pageDelay time.Duration
	sleeper   retry.Sleeper
	now       func() time.Time
}

// Option configures a Snapshotter.
type Option func(*Snapshotter)

// WithFormats sets which files are written per snapshot.
func WithFormats(formats ...Format) Option {
	return func(s *Snapshotter) {
		if len(formats) > 0 {
			s.formats = formats
		}
	}
}

// WithPageDelay sets the pause after each listed page.
func WithPageDelay(d time.Duration) Option {
	return func(s *Snapshotter) {
		s.pageDelay = d
	}
}

// WithSleeper overrides how pauses are taken.
func WithSleeper(sl retry.Sleeper) Option {
	return func(s *Snapshotter) {
		if sl != nil {
			s.sleeper = sl
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Snapshotter) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Snapshotter writing JSON and YAML files into dir.
func New(s store.Store, dir string, opts ...Option) *Snapshotter {
	sn := &Snapshotter{
		store:     s,
		dir:       dir,
		formats:   []Format{FormatJSON, FormatYAML},
		pageDelay: constants.PageDelay,
		sleeper:   retry.RealSleeper,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(sn)
	}
	return sn
}

// Snapshot implements the per-cycle backup hook.
func (s *Snapshotter) Snapshot(ctx context.Context) error {
	_, err := s.Take(ctx)
	return err
}

// Take lists every record and writes one file per format. It returns the
// written paths.
func (s *Snapshotter) Take(ctx context.Context) ([]string, error) {
	logger := logging.Ctx(ctx)

	all, err := store.All(ctx, s.store, func(ctx context.Context) error {
		return s.sleeper.Sleep(ctx, s.pageDelay)
	})
	if err != nil {
		return nil, errors.WrapResource("list", "records", "", err)
	}

	snap := Snapshot{GeneratedAt: s.now().UTC(), Count: len(all), Records: make([]records.Record, 0, len(all))}
	for _, r := range all {
		snap.Records = append(snap.Records, *r)
	}

	if err := os.MkdirAll(s.dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", s.dir, err)
	}

	stamp := snap.GeneratedAt.Format("20060102_150405")
	var paths []string
	for _, f := range s.formats {
		data, err := Encode(&snap, f)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(s.dir, "records_"+stamp+f.Ext())
		if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
			return paths, errors.WrapIO("write", path, err)
		}
		paths = append(paths, path)
	}

	logger.Info().Int("records", snap.Count).Strs("files", paths).Msg("Backup written")
	return paths, nil
}

// Encode serializes snap.
func Encode(snap *Snapshot, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return nil, errors.WrapParse("json", "snapshot", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		data, err := yaml.MarshalWithOptions(snap, yaml.Indent(2), yaml.UseLiteralStyleIfMultiline(true))
		if err != nil {
			return nil, errors.WrapParse("yaml", "snapshot", err)
		}
		return data, nil
	}
	return nil, errors.NewValidationError("format", f.String(), "unsupported snapshot format")
}

// Load reads a snapshot file, choosing the decoder from its extension.
func Load(path string) (*Snapshot, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, errors.NewValidationError("path", path, err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var snap Snapshot
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &snap)
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, errors.WrapParse(f.String(), path, err)
	}
	return &snap, nil
}
