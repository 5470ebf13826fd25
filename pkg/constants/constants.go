// Package constants provides shared constants used throughout the knowledge agent.
// This includes timeouts, retry budgets, pagination limits, polite delays and
// file permissions that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for record store and notifier requests
	DefaultHTTPTimeout = 30 * time.Second

	// FetchTimeout is the per-attempt timeout when fetching a remote source
	FetchTimeout = 15 * time.Second

	// NotifyTimeout is the timeout for a single notification delivery
	NotifyTimeout = 10 * time.Second

	// SearchTimeout is the timeout for a single search provider query
	SearchTimeout = 20 * time.Second

	// CyclePeriod is the nominal wall-clock period between reconciliation cycles
	CyclePeriod = 24 * time.Hour

	// ShutdownTimeout bounds graceful shutdown work after an interrupt
	ShutdownTimeout = 5 * time.Second
)

// Retry constants shared by the fetch client and the upsert engine
const (
	// MaxAttempts is the number of attempts made for a retryable operation
	MaxAttempts = 3

	// RetryDelay is the fixed delay between two attempts
	RetryDelay = 2 * time.Second
)

// Store constants
const (
	// DefaultPageSize is the number of records requested per listing page
	DefaultPageSize = 100

	// MaxPageSize is the largest page size the record store accepts
	MaxPageSize = 100

	// MaxChunkLength is the longest content chunk the record store accepts
	MaxChunkLength = 2000

	// NontrivialContentLength is the length above which content counts as present
	// when scoring duplicate candidates
	NontrivialContentLength = 10
)

// Polite delays respect third-party rate limits between sequential calls
const (
	// PageDelay is slept after each paginated listing call
	PageDelay = 500 * time.Millisecond

	// DiscoveryDelay is slept after each newly discovered item
	DiscoveryDelay = 1 * time.Second
)

// Search constants
const (
	// SearchMaxResults is the number of candidates requested when healing a link
	SearchMaxResults = 3

	// SearchKeywords are appended to a record title to disambiguate the query
	SearchKeywords = "Github Cursor Rules"

	// TrustedDomain is the canonical code-hosting domain accepted as a replacement source
	TrustedDomain = "github.com"

	// SearchCacheTTL is how long search results are reused within a process
	SearchCacheTTL = 6 * time.Hour

	// SearchCacheCleanupInterval is how often expired search results are purged
	SearchCacheCleanupInterval = 1 * time.Hour
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Logging constants
const (
	// LogRotationSizeMB is the maximum size of a log file in megabytes before rotation
	LogRotationSizeMB = 10

	// LogRotationAgeDays is the maximum age of log files in days before deletion
	LogRotationAgeDays = 30

	// LogRotationBackups is the maximum number of old log files to retain
	LogRotationBackups = 5
)
