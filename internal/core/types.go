package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Status is one of the three canonical watch-progress states.
type Status string

const (
	StatusPlanToWatch Status = "plan_to_watch"
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
)

// Valid reports whether s is a canonical status.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanToWatch, StatusWatching, StatusCompleted:
		return true
	}
	return false
}

// MediaKind identifies whether a title is a film or a series.
type MediaKind string

const (
	MediaMovie MediaKind = "movie"
	MediaTV    MediaKind = "tv"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == MediaMovie || k == MediaTV
}

// Strategy decides what happens to an incoming row that duplicates a stored entry.
type Strategy string

const (
	StrategySkip      Strategy = "skip"
	StrategyOverwrite Strategy = "overwrite"
	StrategyMerge     Strategy = "merge"
)

// NotesPolicy controls how notes are reconciled under a merge.
type NotesPolicy string

const (
	NotesAppend  NotesPolicy = "append"
	NotesReplace NotesPolicy = "replace"
	NotesKeep    NotesPolicy = "keep"
)

// ProvidersPolicy controls how streaming providers are reconciled under a merge.
type ProvidersPolicy string

const (
	ProvidersMerge   ProvidersPolicy = "merge"
	ProvidersReplace ProvidersPolicy = "replace"
	ProvidersKeep    ProvidersPolicy = "keep"
)

// ----------------------------------------------------------------------------
// Inbound rows
// ----------------------------------------------------------------------------

// RawRow is a user-supplied watchlist record before normalization.
type RawRow struct {
	Title              string        `json:"title"`
	Year               *int          `json:"year,omitempty"`
	Status             string        `json:"status,omitempty"`
	Rating             *float64      `json:"rating,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	DateAdded          DateValue     `json:"dateAdded,omitempty"`
	StreamingProviders ProviderValue `json:"streamingProviders"`
	MediaKind          MediaKind     `json:"mediaKind,omitempty"`

	// LineNumber is the 1-indexed source line when the row came from a file.
	LineNumber int `json:"-"`

	// problems are cell-level decode failures found while reading a file.
	problems []ValidationError
}

// rawRowFields lists the JSON members of a RawRow with the problem reported
// when a member cannot be decoded.
var rawRowFields = []struct {
	name    string
	message string
	target  func(r *RawRow) any
}{
	{"title", "invalid text", func(r *RawRow) any { return &r.Title }},
	{"year", "invalid number", func(r *RawRow) any { return &r.Year }},
	{"status", "invalid text", func(r *RawRow) any { return &r.Status }},
	{"rating", "invalid number", func(r *RawRow) any { return &r.Rating }},
	{"notes", "invalid text", func(r *RawRow) any { return &r.Notes }},
	{"dateAdded", "invalid date", func(r *RawRow) any { return &r.DateAdded }},
	{"streamingProviders", "invalid provider list", func(r *RawRow) any { return &r.StreamingProviders }},
	{"mediaKind", "invalid text", func(r *RawRow) any { return &r.MediaKind }},
}

// maxProblemValue caps the raw JSON echoed back in a decode problem.
const maxProblemValue = 64

// UnmarshalJSON decodes a row without failing on bad members. A member of
// the wrong type is left unset and recorded as a problem, and so is a row
// that is not an object, so that one bad row is reported on its own instead
// of rejecting the whole batch.
func (r *RawRow) UnmarshalJSON(data []byte) error {
	type plain RawRow
	var row plain
	if err := json.Unmarshal(data, &row); err == nil {
		*r = RawRow(row)
		return nil
	}

	*r = RawRow{}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil || members == nil {
		r.problems = append(r.problems, ValidationError{
			Field:   "row",
			Value:   problemValue(data),
			Message: "malformed row: expected a JSON object",
		})
		return nil
	}

	// Member names match case-insensitively, as encoding/json does.
	folded := make(map[string]json.RawMessage, len(members))
	for k, v := range members {
		folded[strings.ToLower(k)] = v
	}

	for _, f := range rawRowFields {
		raw, ok := folded[strings.ToLower(f.name)]
		if !ok {
			continue
		}
		target := f.target(r)
		if err := json.Unmarshal(raw, target); err != nil {
			// A failed decode can leave a partial value (an allocated
			// pointer, say) behind.
			reflect.ValueOf(target).Elem().SetZero()
			r.problems = append(r.problems, ValidationError{
				Field:   f.name,
				Value:   problemValue(raw),
				Message: f.message,
			})
		}
	}
	return nil
}

func problemValue(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxProblemValue {
		s = s[:maxProblemValue] + "..."
	}
	return s
}

// DateValue holds a date-like value exactly as supplied. JSON strings and
// numbers (epoch values) are both accepted.
type DateValue string

// UnmarshalJSON accepts a string, a number or null.
func (d *DateValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*d = DateValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("dateAdded must be a string or number")
	}
	*d = DateValue(n.String())
	return nil
}

// ProviderValue holds streaming providers exactly as supplied: either a list
// of tokens or a single free-text string.
type ProviderValue struct {
	raw any
}

// ProvidersText wraps a free-text provider string.
func ProvidersText(s string) ProviderValue { return ProviderValue{raw: s} }

// ProvidersList wraps a native provider list.
func ProvidersList(names ...string) ProviderValue { return ProviderValue{raw: names} }

// Value returns the underlying string, []string or nil.
func (p ProviderValue) Value() any { return p.raw }

// UnmarshalJSON accepts a string, a list of strings or null.
func (p *ProviderValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.raw = nil
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		p.raw = s
	case '[':
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("streamingProviders must be a list of strings: %w", err)
		}
		p.raw = list
	default:
		return fmt.Errorf("streamingProviders must be a string or a list of strings")
	}
	return nil
}

// MarshalJSON writes the value in the shape it was supplied.
func (p ProviderValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.raw)
}

// ----------------------------------------------------------------------------
// Preview
// ----------------------------------------------------------------------------

// MatchCandidate is a scored catalog search result.
type MatchCandidate struct {
	CatalogID   int64     `json:"catalogId"`
	MediaKind   MediaKind `json:"mediaKind"`
	Title       string    `json:"title"`
	Year        *int      `json:"year,omitempty"`
	PosterRef   string    `json:"posterRef,omitempty"`
	BackdropRef string    `json:"backdropRef,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	Confidence  float64   `json:"confidence"`
}

// PreviewItem is the normalized, matched and annotated form of one import row.
type PreviewItem struct {
	OriginalTitle      string           `json:"originalTitle"`
	OriginalYear       *int             `json:"originalYear,omitempty"`
	MatchCandidates    []MatchCandidate `json:"matchCandidates"`
	SelectedMatchIndex *int             `json:"selectedMatchIndex,omitempty"`
	SuggestedStatus    Status           `json:"suggestedStatus"`
	Rating             *int             `json:"rating,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	DateAdded          *time.Time       `json:"dateAdded,omitempty"`
	StreamingProviders []string         `json:"streamingProviders"`
	HasExistingEntry   bool             `json:"hasExistingEntry"`
	ExistingEntryID    string           `json:"existingEntryId,omitempty"`
	ShouldSkip         bool             `json:"shouldSkip"`
	Error              string           `json:"error,omitempty"`
}

// SelectedCandidate returns the candidate chosen for commit: the one at
// SelectedMatchIndex, else the first. It returns nil when there are none.
func (p PreviewItem) SelectedCandidate() *MatchCandidate {
	if len(p.MatchCandidates) == 0 {
		return nil
	}
	idx := 0
	if p.SelectedMatchIndex != nil {
		idx = *p.SelectedMatchIndex
	}
	if idx < 0 || idx >= len(p.MatchCandidates) {
		return nil
	}
	return &p.MatchCandidates[idx]
}

// ----------------------------------------------------------------------------
// Commit
// ----------------------------------------------------------------------------

// MergeFields is the per-field policy applied under StrategyMerge.
// The zero value keeps every existing field.
type MergeFields struct {
	Status             bool            `json:"status"`
	Rating             bool            `json:"rating"`
	Notes              NotesPolicy     `json:"notes,omitempty"`
	StreamingProviders ProvidersPolicy `json:"streamingProviders,omitempty"`
}

// DuplicateResolution tells the committer how to reconcile the item at ItemIndex.
type DuplicateResolution struct {
	ItemIndex   int          `json:"itemIndex"`
	Strategy    Strategy     `json:"strategy"`
	MergeFields *MergeFields `json:"mergeFields,omitempty"`
}

// BulkImportRequest is a batch of confirmed preview items to commit.
type BulkImportRequest struct {
	Items                    []PreviewItem         `json:"items"`
	Resolutions              []DuplicateResolution `json:"resolutions"`
	SkipUnmatched            bool                  `json:"skipUnmatched"`
	DefaultDuplicateStrategy Strategy              `json:"defaultDuplicateStrategy"`
}

// resolutionFor returns the explicit resolution for idx or the batch default.
func (r BulkImportRequest) resolutionFor(idx int) DuplicateResolution {
	for _, res := range r.Resolutions {
		if res.ItemIndex == idx {
			return res
		}
	}
	return DuplicateResolution{ItemIndex: idx, Strategy: r.DefaultDuplicateStrategy}
}

// ImportError describes a single item that failed to commit.
type ImportError struct {
	ItemIndex int    `json:"itemIndex"`
	Title     string `json:"title"`
	Error     string `json:"error"`
}

// ImportResult summarizes a commit. Imported+Skipped+Failed always equals the
// number of items; Merged and Overwritten are sub-counts of Imported.
type ImportResult struct {
	BatchID     string        `json:"batchId"`
	Imported    int           `json:"imported"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Merged      int           `json:"merged"`
	Overwritten int           `json:"overwritten"`
	Errors      []ImportError `json:"errors"`
	DurationMs  int64         `json:"durationMs"`
}

// ----------------------------------------------------------------------------
// Stored entries and export
// ----------------------------------------------------------------------------

// Entry is a stored watchlist record.
type Entry struct {
	ID                 string
	OwnerID            string
	CatalogID          *int64
	MediaKind          MediaKind
	Title              string
	Year               *int
	ReleaseDate        *time.Time
	Status             Status
	Rating             *int
	Notes              string
	StreamingProviders []string
	PosterRef          string
	DateAdded          time.Time
	CompletedAt        *time.Time
	UpdatedAt          time.Time
}

// ExportFormatVersion is the current version of the export envelope.
const ExportFormatVersion = "1.0"

// ExportedEntry is the canonical re-importable form of a stored entry.
type ExportedEntry struct {
	Title              string     `json:"title"`
	Year               *int       `json:"year,omitempty"`
	MediaKind          MediaKind  `json:"mediaKind,omitempty"`
	Status             Status     `json:"status"`
	Rating             *int       `json:"rating,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	DateAdded          time.Time  `json:"dateAdded"`
	DateWatched        *time.Time `json:"dateWatched,omitempty"`
	StreamingProviders []string   `json:"streamingProviders"`
	CatalogID          *int64     `json:"catalogId,omitempty"`
	PosterRef          string     `json:"posterRef,omitempty"`
}

// ExportResponse is the versioned export envelope.
type ExportResponse struct {
	ExportedAt   time.Time       `json:"exportedAt"`
	OwnerID      string          `json:"ownerId"`
	Version      string          `json:"version"`
	TotalEntries int             `json:"totalEntries"`
	Entries      []ExportedEntry `json:"entries"`
}
