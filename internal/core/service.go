package core

import (
	"context"
	"errors"
	"time"
)

// ----------------------------------------------------------------------------
// Collaborators
// ----------------------------------------------------------------------------

// CatalogQuery is a title search against the external media catalog.
type CatalogQuery struct {
	Title     string
	Year      *int
	MediaKind MediaKind // optional hint; empty searches every kind
}

// CatalogResult is an unscored catalog match. Confidence is computed here,
// never supplied by the catalog.
type CatalogResult struct {
	CatalogID   int64
	MediaKind   MediaKind
	Title       string
	Year        *int
	PosterRef   string
	BackdropRef string
	Overview    string
}

// CatalogSearcher finds catalog candidates for a title.
type CatalogSearcher interface {
	Search(ctx context.Context, q CatalogQuery) ([]CatalogResult, error)
}

// DuplicateQuery identifies a stored entry by catalog ID or by normalized
// title and year.
type DuplicateQuery struct {
	OwnerID   string
	CatalogID *int64
	Title     string
	Year      *int
}

// EntryFinder looks up an existing entry matching a duplicate query.
// It returns nil, nil when there is none.
type EntryFinder interface {
	FindDuplicate(ctx context.Context, q DuplicateQuery) (*Entry, error)
}

// StoreTx is the view of the store inside a single-item transaction.
type StoreTx interface {
	EntryFinder
	// GetEntry returns ErrEntryNotFound when the entry does not exist for the owner.
	GetEntry(ctx context.Context, ownerID, id string) (*Entry, error)
	CreateEntry(ctx context.Context, e *Entry) error
	UpdateEntry(ctx context.Context, e *Entry) error
}

// Store persists watchlist entries.
type Store interface {
	EntryFinder
	ListEntries(ctx context.Context, ownerID string) ([]Entry, error)
	// WithTx runs fn in its own transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error
	InsertAudit(ctx context.Context, entry AuditEntry) error
	// ListAudit returns matching audit entries, newest first.
	ListAudit(ctx context.Context, q AuditQuery) ([]AuditEntry, error)
	// PurgeAudit deletes audit entries created before cutoff.
	PurgeAudit(ctx context.Context, cutoff time.Time) (int64, error)
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

var (
	// ErrEntryNotFound is returned when a referenced stored entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrCatalogUnavailable wraps failures talking to the catalog.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrNoCatalogMatch marks rows skipped because the catalog had no candidates.
	ErrNoCatalogMatch = errors.New("no catalog match found")
)

// ----------------------------------------------------------------------------
// Service
// ----------------------------------------------------------------------------

// Options configures a Service.
type Options struct {
	// LookupConcurrency bounds parallel catalog lookups within one preview batch.
	LookupConcurrency int

	// AutoSelectConfidence preselects the top candidate when its confidence
	// reaches this value. Zero disables auto-selection.
	AutoSelectConfidence float64

	// MaxItems caps rows per preview and items per commit (zero is unlimited).
	MaxItems int

	// RatingScale is the default scale of incoming ratings.
	RatingScale float64

	// MaxConcurrentBatches and MaxWait configure batch admission control.
	MaxConcurrentBatches int
	MaxWait              time.Duration
}

// DefaultLookupConcurrency is used when Options.LookupConcurrency is unset.
const DefaultLookupConcurrency = 4

// Service is the entry point for preview, commit and export.
type Service struct {
	catalog CatalogSearcher
	store   Store
	limiter *ImportLimiter
	opts    Options
	now     func() time.Time
}

// NewService wires a Service to its catalog and store.
func NewService(catalog CatalogSearcher, store Store, opts Options) (*Service, error) {
	if catalog == nil {
		return nil, errors.New("catalog searcher is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if opts.LookupConcurrency <= 0 {
		opts.LookupConcurrency = DefaultLookupConcurrency
	}
	if opts.RatingScale <= 0 {
		opts.RatingScale = DefaultRatingScale
	}

	return &Service{
		catalog: catalog,
		store:   store,
		limiter: NewImportLimiter(opts.MaxConcurrentBatches, opts.MaxWait),
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// ImportLimiterStatus returns the current batch limiter state.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until every running batch finishes or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
