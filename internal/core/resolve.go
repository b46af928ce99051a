package core

import (
	"slices"
	"time"
)

// Action records what the committer did with an item.
type Action string

const (
	ActionCreated     Action = "created"
	ActionMerged      Action = "merged"
	ActionOverwritten Action = "overwritten"
	ActionSkipped     Action = "skipped"
)

// fieldMerge reconciles one field of dst (a copy of the existing entry)
// with the incoming item under the given merge policy.
type fieldMerge func(dst *Entry, incoming PreviewItem, mf MergeFields)

// mergePolicy maps each mergeable field to its merge function. New
// mergeable fields are added here and to mergeOrder.
var mergePolicy = map[string]fieldMerge{
	"status": func(dst *Entry, in PreviewItem, mf MergeFields) {
		if mf.Status {
			dst.Status = in.SuggestedStatus
		}
	},
	"rating": func(dst *Entry, in PreviewItem, mf MergeFields) {
		if mf.Rating {
			dst.Rating = cloneInt(in.Rating)
		}
	},
	"notes": func(dst *Entry, in PreviewItem, mf MergeFields) {
		switch mf.Notes {
		case NotesAppend:
			dst.Notes = appendNotes(dst.Notes, in.Notes)
		case NotesReplace:
			dst.Notes = in.Notes
		}
	},
	"streamingProviders": func(dst *Entry, in PreviewItem, mf MergeFields) {
		switch mf.StreamingProviders {
		case ProvidersMerge:
			dst.StreamingProviders = unionProviders(dst.StreamingProviders, in.StreamingProviders)
		case ProvidersReplace:
			dst.StreamingProviders = slices.Clone(in.StreamingProviders)
		}
	},
}

// mergeOrder fixes the order merge functions run in.
var mergeOrder = []string{"status", "rating", "notes", "streamingProviders"}

// notesSeparator joins appended notes.
const notesSeparator = "\n\n"

// Resolve reconciles an incoming item with the stored entry it duplicates.
//
//   - skip returns existing unchanged
//   - overwrite takes every incoming field and keeps the entry's identity
//   - merge applies mergePolicy field by field; nil MergeFields keeps everything
func Resolve(existing Entry, incoming PreviewItem, res DuplicateResolution, now time.Time) (Entry, Action) {
	switch res.Strategy {
	case StrategyOverwrite:
		out := NewEntryFromItem(incoming, existing.OwnerID, now)
		out.ID = existing.ID
		if incoming.DateAdded == nil {
			out.DateAdded = existing.DateAdded
		}
		if incoming.SelectedCandidate() == nil {
			out.CatalogID = existing.CatalogID
			out.MediaKind = existing.MediaKind
			out.PosterRef = existing.PosterRef
			out.ReleaseDate = existing.ReleaseDate
		}
		out.CompletedAt = existing.CompletedAt
		trackCompletion(&out, now)
		out.UpdatedAt = now
		return out, ActionOverwritten

	case StrategyMerge:
		var mf MergeFields
		if res.MergeFields != nil {
			mf = *res.MergeFields
		}
		out := cloneEntry(existing)
		for _, field := range mergeOrder {
			mergePolicy[field](&out, incoming, mf)
		}
		trackCompletion(&out, now)
		out.UpdatedAt = now
		return out, ActionMerged

	default:
		return existing, ActionSkipped
	}
}

// NewEntryFromItem builds a new stored entry from a preview item. Catalog
// identity comes from the selected candidate (the first when none is
// selected); without candidates the user's title and year are kept.
// The caller assigns the ID.
func NewEntryFromItem(item PreviewItem, ownerID string, now time.Time) Entry {
	e := Entry{
		OwnerID:            ownerID,
		Title:              item.OriginalTitle,
		Year:               cloneInt(item.OriginalYear),
		Status:             item.SuggestedStatus,
		Rating:             cloneInt(item.Rating),
		Notes:              item.Notes,
		StreamingProviders: slices.Clone(item.StreamingProviders),
		DateAdded:          now,
		UpdatedAt:          now,
	}
	if e.StreamingProviders == nil {
		e.StreamingProviders = []string{}
	}
	if item.DateAdded != nil {
		e.DateAdded = item.DateAdded.UTC()
	}

	if c := item.SelectedCandidate(); c != nil {
		id := c.CatalogID
		e.CatalogID = &id
		e.MediaKind = c.MediaKind
		e.Title = c.Title
		e.Year = cloneInt(c.Year)
		e.PosterRef = c.PosterRef
	}

	trackCompletion(&e, now)
	return e
}

// trackCompletion stamps CompletedAt when an entry is completed and clears it
// otherwise.
func trackCompletion(e *Entry, now time.Time) {
	if e.Status != StatusCompleted {
		e.CompletedAt = nil
		return
	}
	if e.CompletedAt == nil {
		t := now
		e.CompletedAt = &t
	}
}

func appendNotes(existing, incoming string) string {
	switch {
	case existing == "":
		return incoming
	case incoming == "":
		return existing
	default:
		return existing + notesSeparator + incoming
	}
}

// unionProviders returns existing followed by incoming providers not
// already present.
func unionProviders(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func cloneEntry(e Entry) Entry {
	out := e
	out.CatalogID = cloneInt64(e.CatalogID)
	out.Year = cloneInt(e.Year)
	out.Rating = cloneInt(e.Rating)
	out.StreamingProviders = slices.Clone(e.StreamingProviders)
	if e.ReleaseDate != nil {
		t := *e.ReleaseDate
		out.ReleaseDate = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
