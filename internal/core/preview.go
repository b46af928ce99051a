package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/watchlist/internal/logging"
)

// ErrTooManyRows is returned when a preview exceeds the configured row cap.
var ErrTooManyRows = errors.New("too many rows in import")

// PreviewOptions tunes a preview run.
type PreviewOptions struct {
	// SkipUnmatched marks rows without catalog candidates as skipped.
	SkipUnmatched bool

	// RatingScale is the scale of incoming ratings. Zero uses the service default.
	RatingScale float64
}

// PreviewSummary contains the summary counts for a preview batch.
type PreviewSummary struct {
	TotalRows  int `json:"totalRows"`
	Matched    int `json:"matched"`
	Unmatched  int `json:"unmatched"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// PreviewResponse is the complete response from a batch preview.
type PreviewResponse struct {
	Summary          PreviewSummary `json:"summary"`
	Items            []PreviewItem  `json:"items"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`

	// BytesRead is the size of the import file, for file previews.
	BytesRead int64 `json:"bytesRead,omitempty"`
}

// Summarize counts the outcomes of a preview batch.
func Summarize(items []PreviewItem) PreviewSummary {
	sum := PreviewSummary{TotalRows: len(items)}
	for _, item := range items {
		if len(item.MatchCandidates) > 0 {
			sum.Matched++
		} else {
			sum.Unmatched++
		}
		if item.HasExistingEntry {
			sum.Duplicates++
		}
		if item.ShouldSkip {
			sum.Skipped++
		}
		if item.Error != "" {
			sum.Errors++
		}
	}
	return sum
}

// PreviewRow turns one raw row into a preview item.
//
// The row is validated, normalized, searched in the catalog, scored, ranked
// and checked against the owner's stored entries. Any failure along the way
// is recorded on the item (ShouldSkip plus Error); PreviewRow never fails.
func (s *Service) PreviewRow(ctx context.Context, ownerID string, row RawRow, opts PreviewOptions) PreviewItem {
	scale := opts.RatingScale
	if scale <= 0 {
		scale = s.opts.RatingScale
	}

	item := PreviewItem{
		OriginalTitle:      strings.TrimSpace(row.Title),
		OriginalYear:       row.Year,
		MatchCandidates:    []MatchCandidate{},
		SuggestedStatus:    StatusPlanToWatch,
		StreamingProviders: []string{},
	}

	if err := ValidateRawRow(&row, RowOptions{RatingScale: scale}); err != nil {
		item.ShouldSkip = true
		item.Error = err.Error()
		return item
	}

	item.OriginalTitle = row.Title
	item.SuggestedStatus = NormalizeStatus(row.Status)
	item.Rating = NormalizeRating(row.Rating, scale)
	item.Notes = strings.TrimSpace(row.Notes)
	if t, ok := NormalizeDate(row.DateAdded); ok {
		item.DateAdded = &t
	}
	item.StreamingProviders = ParseProviders(row.StreamingProviders)

	results, err := s.catalog.Search(ctx, CatalogQuery{
		Title:     row.Title,
		Year:      row.Year,
		MediaKind: row.MediaKind,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("catalog lookup failed",
			"title", row.Title,
			"line", row.LineNumber,
			"error", err,
		)
		return failRow(item, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err))
	}

	item.MatchCandidates = rankCandidates(results, row.Title, row.Year)

	if len(item.MatchCandidates) == 0 {
		if opts.SkipUnmatched {
			item.ShouldSkip = true
			item.Error = ErrNoCatalogMatch.Error()
		}
	} else if s.opts.AutoSelectConfidence > 0 &&
		item.MatchCandidates[0].Confidence >= s.opts.AutoSelectConfidence {
		top := 0
		item.SelectedMatchIndex = &top
	}

	existing, err := s.store.FindDuplicate(ctx, duplicateQueryFor(ownerID, item))
	if err != nil {
		logging.FromContext(ctx).Warn("duplicate lookup failed",
			"title", row.Title,
			"line", row.LineNumber,
			"error", err,
		)
		return failRow(item, fmt.Errorf("duplicate lookup: %w", err))
	}
	if existing != nil {
		item.HasExistingEntry = true
		item.ExistingEntryID = existing.ID
	}

	return item
}

func failRow(item PreviewItem, err error) PreviewItem {
	item.ShouldSkip = true
	item.Error = err.Error()
	return item
}

// rankCandidates scores every catalog result and sorts by confidence,
// highest first. Ties keep catalog order.
func rankCandidates(results []CatalogResult, title string, year *int) []MatchCandidate {
	candidates := make([]MatchCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, MatchCandidate{
			CatalogID:   r.CatalogID,
			MediaKind:   r.MediaKind,
			Title:       r.Title,
			Year:        r.Year,
			PosterRef:   r.PosterRef,
			BackdropRef: r.BackdropRef,
			Overview:    r.Overview,
			Confidence:  CalculateMatchConfidence(r.Title, r.Year, title, year, r.PosterRef != ""),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// duplicateQueryFor builds the store lookup for an item: the chosen
// candidate's catalog ID when there is one, plus the user's title and year.
func duplicateQueryFor(ownerID string, item PreviewItem) DuplicateQuery {
	q := DuplicateQuery{
		OwnerID: ownerID,
		Title:   item.OriginalTitle,
		Year:    item.OriginalYear,
	}
	if c := item.SelectedCandidate(); c != nil {
		id := c.CatalogID
		q.CatalogID = &id
	}
	return q
}

// PreviewRows previews a batch of rows concurrently, bounded by the
// configured lookup concurrency. Items come back in input order.
//
// The only errors are batch-level: too many rows, no free batch slot, or a
// cancelled context while waiting for one.
func (s *Service) PreviewRows(ctx context.Context, ownerID string, rows []RawRow, opts PreviewOptions) (*PreviewResponse, error) {
	if s.opts.MaxItems > 0 && len(rows) > s.opts.MaxItems {
		return nil, fmt.Errorf("%w: %d rows (max %d)", ErrTooManyRows, len(rows), s.opts.MaxItems)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	logger := logging.WithFields(ctx, "owner_id", ownerID, "rows", len(rows))
	logger.Info("preview started")

	items := make([]PreviewItem, len(rows))

	var g errgroup.Group
	g.SetLimit(s.opts.LookupConcurrency)
	for i := range rows {
		g.Go(func() error {
			items[i] = s.PreviewRow(ctx, ownerID, rows[i], opts)
			return nil
		})
	}
	_ = g.Wait()

	resp := &PreviewResponse{
		Summary:          Summarize(items),
		Items:            items,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	logger.Info("preview completed",
		"matched", resp.Summary.Matched,
		"duplicates", resp.Summary.Duplicates,
		"skipped", resp.Summary.Skipped,
		"duration_ms", resp.ProcessingTimeMs,
	)
	s.LogAudit(ctx, AuditLogParams{
		Action:  AuditPreview,
		OwnerID: ownerID,
		Details: map[string]any{
			"rows":       resp.Summary.TotalRows,
			"matched":    resp.Summary.Matched,
			"duplicates": resp.Summary.Duplicates,
			"skipped":    resp.Summary.Skipped,
		},
	})

	return resp, nil
}

// PreviewFile reads rows from a CSV or JSON file in the given source's
// layout and previews them. The source's rating scale applies unless opts
// sets one.
func (s *Service) PreviewFile(ctx context.Context, ownerID string, r io.Reader, source SourceDefinition, opts PreviewOptions) (*PreviewResponse, error) {
	counter := NewCountingReader(r)
	rows, err := ReadRows(counter, source)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("import file read",
		"owner_id", ownerID,
		"source", source.Key,
		"rows", len(rows),
		"bytes_read", counter.BytesRead(),
	)

	if opts.RatingScale <= 0 {
		opts.RatingScale = source.RatingScale
	}
	resp, err := s.PreviewRows(ctx, ownerID, rows, opts)
	if err != nil {
		return nil, err
	}
	resp.BytesRead = counter.BytesRead()
	return resp, nil
}
