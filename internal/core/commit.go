package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/watchlist/internal/logging"
)

// Outcome is the result of committing one item: Imported, Skipped or Failed.
type Outcome interface {
	isOutcome()
}

// Imported means the item was written to the store.
type Imported struct {
	Entry  Entry
	Action Action
}

// Skipped means the item was left out without touching the store.
type Skipped struct {
	Reason string
}

// Failed means the item could not be committed.
type Failed struct {
	Err error
}

func (Imported) isOutcome() {}
func (Skipped) isOutcome()  {}
func (Failed) isOutcome()   {}

// Skip reasons.
const (
	reasonMarkedSkip   = "marked as skipped in preview"
	reasonUnmatched    = "no catalog match"
	reasonDuplicateKey = "duplicate kept by resolution"
)

// record folds one outcome into the result counters.
func (r *ImportResult) record(idx int, title string, o Outcome) {
	switch o := o.(type) {
	case Imported:
		r.Imported++
		switch o.Action {
		case ActionMerged:
			r.Merged++
		case ActionOverwritten:
			r.Overwritten++
		}
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
		r.Errors = append(r.Errors, ImportError{
			ItemIndex: idx,
			Title:     title,
			Error:     o.Err.Error(),
		})
	}
}

// Commit applies a confirmed batch to the owner's watchlist.
//
// The request is validated first; a structurally invalid request is rejected
// as a whole with ValidationErrors. After that the batch always completes:
// items are processed in order, each in its own transaction, and a failing
// item is recorded in the result without affecting the others.
func (s *Service) Commit(ctx context.Context, ownerID string, req BulkImportRequest) (*ImportResult, error) {
	if ownerID == "" {
		return nil, ValidationErrors{{Field: "ownerId", Message: "required field is empty"}}
	}
	if err := ValidateBulkImportRequest(&req, s.opts.MaxItems); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	result := &ImportResult{
		BatchID: uuid.NewString(),
		Errors:  []ImportError{},
	}

	logger := logging.WithBatch(ctx, result.BatchID, ownerID)
	logger.Info("commit started", "items", len(req.Items))

	for i := range req.Items {
		outcome := s.commitItem(ctx, ownerID, i, req)
		if f, ok := outcome.(Failed); ok {
			logger.Warn("item failed",
				"item_index", i,
				"title", req.Items[i].OriginalTitle,
				"error", f.Err,
			)
		}
		result.record(i, req.Items[i].OriginalTitle, outcome)
	}

	result.DurationMs = time.Since(start).Milliseconds()

	logger.Info("commit completed",
		"imported", result.Imported,
		"merged", result.Merged,
		"overwritten", result.Overwritten,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", result.DurationMs,
	)

	s.LogAudit(ctx, AuditLogParams{
		Action:       AuditImportCommit,
		OwnerID:      ownerID,
		BatchID:      result.BatchID,
		RowsAffected: result.Imported,
		Details: map[string]any{
			"items":       len(req.Items),
			"skipped":     result.Skipped,
			"failed":      result.Failed,
			"merged":      result.Merged,
			"overwritten": result.Overwritten,
		},
	})

	return result, nil
}

// commitItem commits item idx of req in its own transaction. It never
// panics and never returns nil.
func (s *Service) commitItem(ctx context.Context, ownerID string, idx int, req BulkImportRequest) (out Outcome) {
	item := req.Items[idx]

	if item.ShouldSkip {
		return Skipped{Reason: reasonMarkedSkip}
	}
	if req.SkipUnmatched && len(item.MatchCandidates) == 0 {
		return Skipped{Reason: reasonUnmatched}
	}

	defer func() {
		if r := recover(); r != nil {
			out = Failed{Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Failed{Err: err}
	}

	now := s.now()
	err := s.store.WithTx(ctx, func(tx StoreTx) error {
		existing, err := s.existingFor(ctx, tx, ownerID, item)
		if err != nil {
			return err
		}

		if existing == nil {
			entry := NewEntryFromItem(item, ownerID, now)
			entry.ID = uuid.NewString()
			if err := tx.CreateEntry(ctx, &entry); err != nil {
				return fmt.Errorf("create entry: %w", err)
			}
			out = Imported{Entry: entry, Action: ActionCreated}
			return nil
		}

		resolved, action := Resolve(*existing, item, req.resolutionFor(idx), now)
		if action == ActionSkipped {
			out = Skipped{Reason: reasonDuplicateKey}
			return nil
		}
		if err := tx.UpdateEntry(ctx, &resolved); err != nil {
			return fmt.Errorf("update entry %s: %w", resolved.ID, err)
		}
		out = Imported{Entry: resolved, Action: action}
		return nil
	})
	if err != nil {
		return Failed{Err: err}
	}
	return out
}

// existingFor returns the stored entry an item duplicates, or nil. Items
// flagged at preview time are loaded by ID; the rest are looked up again so
// that entries created since the preview (including by an earlier commit of
// the same batch) are still treated as duplicates.
func (s *Service) existingFor(ctx context.Context, tx StoreTx, ownerID string, item PreviewItem) (*Entry, error) {
	if item.HasExistingEntry {
		e, err := tx.GetEntry(ctx, ownerID, item.ExistingEntryID)
		if err != nil {
			return nil, fmt.Errorf("existing entry %s: %w", item.ExistingEntryID, err)
		}
		return e, nil
	}

	e, err := tx.FindDuplicate(ctx, duplicateQueryFor(ownerID, item))
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}
	return e, nil
}
