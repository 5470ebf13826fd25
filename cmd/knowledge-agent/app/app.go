// Package app provides the application context and dependency management
// for the knowledge-agent CLI. It centralizes configuration, logging and the
// construction of the record store and the reconciliation components.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noxenys/AI-Knowledge-Agent/internal/notion"
	"github.com/noxenys/AI-Knowledge-Agent/internal/search/duckduckgo"
	"github.com/noxenys/AI-Knowledge-Agent/internal/sqlite"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/backup"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/discover"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/fetch"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/notify"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/reconcile"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/schedule"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/search"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

// App represents the knowledge agent with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	sleeper retry.Sleeper

	// Record store (lazy-initialized, singleton)
	mu     sync.Mutex
	store  store.Store
	closer io.Closer
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
		sleeper: retry.RealSleeper,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig()
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = config
	}

	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Store returns the configured record store, opening it on first use.
func (a *App) Store() (store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	switch a.config.Store {
	case StoreSQLite:
		s, err := sqlite.Open(a.config.SQLitePath, sqlite.WithPageSize(a.config.PageSize))
		if err != nil {
			return nil, err
		}
		a.store, a.closer = s, s
	default:
		s, err := notion.New(notion.Config{
			Token:      a.config.NotionToken,
			DatabaseID: a.config.NotionDatabaseID,
			BaseURL:    a.config.NotionBaseURL,
			PageSize:   a.config.PageSize,
			ChunkLen:   a.config.ChunkLength,
		})
		if err != nil {
			return nil, err
		}
		a.store = s
	}

	a.logger.Debug().Str("store", a.config.Store).Msg("Record store ready")
	return a.store, nil
}

// Notifier returns every configured notification channel. Without any, the
// messages only reach the log.
func (a *App) Notifier() notify.Notifier {
	var channels notify.Multi

	if a.config.TelegramToken != "" && a.config.TelegramChatID != "" {
		channels = append(channels, notify.NewTelegram(a.config.TelegramToken, a.config.TelegramChatID,
			a.config.TelegramBaseURL, constants.NotifyTimeout))
	}
	if a.config.SMTPHost != "" {
		channels = append(channels, notify.NewEmail(notify.EmailConfig{
			Host:     a.config.SMTPHost,
			Port:     a.config.SMTPPort,
			Username: a.config.SMTPUsername,
			Password: a.config.SMTPPassword,
			From:     a.config.SMTPFrom,
			To:       a.config.SMTPTo,
		}))
	}

	if len(channels) == 0 {
		return notify.Log{}
	}
	return channels
}

func (a *App) policy() retry.Policy {
	return retry.Policy{MaxAttempts: a.config.MaxAttempts, Delay: a.config.RetryDelay}
}

// pause adapts the page delay to store.Walk.
func (a *App) pause() store.Sleeper {
	delay := a.config.PageDelay
	return func(ctx context.Context) error {
		return a.sleeper.Sleep(ctx, delay)
	}
}

// Engine returns an upsert engine over the record store.
func (a *App) Engine() (*upsert.Engine, error) {
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	return upsert.New(s, upsert.WithPolicy(a.policy()), upsert.WithSleeper(a.sleeper)), nil
}

func (a *App) fetcher() *fetch.Client {
	return fetch.New(
		fetch.WithPolicy(a.policy()),
		fetch.WithSleeper(a.sleeper),
		fetch.WithTimeout(a.config.FetchTimeout),
	)
}

func (a *App) resolver() *search.Resolver {
	return search.NewResolver(
		duckduckgo.New(a.config.SearchEndpoint, constants.SearchTimeout),
		search.WithKeywords(a.config.SearchKeywords),
		search.WithTrustedDomain(a.config.TrustedDomain),
		search.WithMaxResults(constants.SearchMaxResults),
		search.WithCacheTTL(constants.SearchCacheTTL),
	)
}

// Discoverer returns the directory discovery pass.
func (a *App) Discoverer() (*discover.Discoverer, error) {
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}
	return discover.New(a.fetcher(), engine,
		discover.WithBaseURL(a.config.DiscoveryBaseURL),
		discover.WithKeywords(a.config.DiscoveryKeywords...),
		discover.WithDelay(a.config.DiscoveryDelay),
		discover.WithSleeper(a.sleeper),
	), nil
}

// Snapshotter returns the backup writer for dir, or the configured backup
// directory when dir is empty.
func (a *App) Snapshotter(dir string, formats ...string) (*backup.Snapshotter, error) {
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = a.config.BackupDir
	}
	if len(formats) == 0 {
		formats = a.config.BackupFormats
	}

	parsed := make([]backup.Format, 0, len(formats))
	for _, f := range formats {
		pf, err := backup.ParseFormat(f)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, pf)
	}

	return backup.New(s, dir,
		backup.WithFormats(parsed...),
		backup.WithPageDelay(a.config.PageDelay),
		backup.WithSleeper(a.sleeper),
	), nil
}

// Reconciler wires the full reconciliation cycle.
func (a *App) Reconciler() (*reconcile.Reconciler, error) {
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}
	snap, err := a.Snapshotter("")
	if err != nil {
		return nil, err
	}

	opts := []reconcile.Option{
		reconcile.WithNotifier(a.Notifier()),
		reconcile.WithSnapshotter(snap),
		reconcile.WithPageDelay(a.config.PageDelay),
		reconcile.WithSleeper(a.sleeper),
	}
	if a.config.DiscoveryEnabled {
		d, err := a.Discoverer()
		if err != nil {
			return nil, err
		}
		opts = append(opts, reconcile.WithDiscoverer(d))
	}

	return reconcile.New(s, a.fetcher(), a.resolver(), engine, opts...), nil
}

// Scheduler returns the periodic runner.
func (a *App) Scheduler() *schedule.Scheduler {
	return schedule.New(
		schedule.WithPeriod(a.config.Period),
		schedule.WithNotifier(a.Notifier()),
		schedule.WithSleeper(a.sleeper),
	)
}

// Shutdown releases the record store.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer, a.store = nil, nil
	return err
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets a custom record store (useful for testing).
func WithStore(s store.Store) Option {
	return func(a *App) error {
		a.store = s
		return nil
	}
}

// WithOutput redirects command output.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithSleeper overrides every pause the agent takes.
func WithSleeper(s retry.Sleeper) Option {
	return func(a *App) error {
		a.sleeper = s
		return nil
	}
}
