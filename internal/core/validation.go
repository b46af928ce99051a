package core

// validation.go is the structural boundary of the pipeline.
//
// Validators are the hard tier of error handling: they reject rows and
// requests that break a field constraint (required title, year and rating
// ranges, enum values, index references) and return every problem found with
// its field path. They also apply the documented defaults in place.
//
// Normalizers never fail; validators always report. Nothing past this layer
// should see a structurally invalid entity.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field limits.
const (
	MaxTitleLength = 500
	MaxNotesLength = 2000
	MinYear        = 1800
	MaxYear        = 2100
	MaxRating      = 10
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field"`           // Field path, e.g. items[2].rating
	Value   string `json:"value,omitempty"` // The invalid value
	Message string `json:"message"`         // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every validation failure of one entity or request.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 1 {
		return "validation failed: " + errs[0].Error()
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("validation failed (%d errors): %s", len(errs), strings.Join(parts, "; "))
}

// err returns nil for an empty list so callers can return it directly.
func (errs ValidationErrors) err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (errs *ValidationErrors) add(field, value, format string, args ...any) {
	*errs = append(*errs, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

func joinPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

// ----------------------------------------------------------------------------
// Field checks shared by every entity
// ----------------------------------------------------------------------------

func checkTitle(errs *ValidationErrors, field string, title *string) {
	*title = strings.TrimSpace(*title)
	if *title == "" {
		errs.add(field, "", "required field is empty")
		return
	}
	if n := utf8.RuneCountInString(*title); n > MaxTitleLength {
		errs.add(field, "", "must be at most %d characters (got %d)", MaxTitleLength, n)
	}
}

func checkYear(errs *ValidationErrors, field string, year *int) {
	if year == nil {
		return
	}
	if *year < MinYear || *year > MaxYear {
		errs.add(field, strconv.Itoa(*year), "year out of range (%d-%d)", MinYear, MaxYear)
	}
}

func checkRating(errs *ValidationErrors, field string, rating *int) {
	if rating == nil {
		return
	}
	if *rating < 0 || *rating > MaxRating {
		errs.add(field, strconv.Itoa(*rating), "rating out of range (0-%d)", MaxRating)
	}
}

func checkNotes(errs *ValidationErrors, field, notes string) {
	if n := utf8.RuneCountInString(notes); n > MaxNotesLength {
		errs.add(field, "", "must be at most %d characters (got %d)", MaxNotesLength, n)
	}
}

func checkMediaKind(errs *ValidationErrors, field string, kind MediaKind) {
	if kind != "" && !kind.Valid() {
		errs.add(field, string(kind), "invalid enum value (allowed: %s, %s)", MediaMovie, MediaTV)
	}
}

func checkStatus(errs *ValidationErrors, field string, status *Status) {
	if *status == "" {
		*status = StatusPlanToWatch
		return
	}
	if !status.Valid() {
		errs.add(field, string(*status), "invalid enum value (allowed: %s, %s, %s)",
			StatusPlanToWatch, StatusWatching, StatusCompleted)
	}
}

// ----------------------------------------------------------------------------
// RawRow
// ----------------------------------------------------------------------------

// RowOptions tunes raw row validation.
type RowOptions struct {
	// RatingScale is the scale the row's rating is expressed in (default 10).
	RatingScale float64
}

// ValidateRawRow checks a user-supplied row and applies its defaults: the
// title is trimmed and an empty status becomes plan_to_watch.
func ValidateRawRow(row *RawRow, opts RowOptions) error {
	var errs ValidationErrors
	errs = append(errs, row.problems...)

	checkTitle(&errs, "title", &row.Title)
	checkYear(&errs, "year", row.Year)
	checkNotes(&errs, "notes", row.Notes)
	checkMediaKind(&errs, "mediaKind", row.MediaKind)

	scale := opts.RatingScale
	if scale <= 0 {
		scale = DefaultRatingScale
	}
	if row.Rating != nil {
		r := *row.Rating
		switch {
		case math.IsNaN(r) || math.IsInf(r, 0):
			errs.add("rating", fmt.Sprint(r), "invalid number")
		case r < 0 || r > scale:
			errs.add("rating", strconv.FormatFloat(r, 'f', -1, 64), "rating out of range (0-%g)", scale)
		}
	}

	if strings.TrimSpace(row.Status) == "" {
		row.Status = string(StatusPlanToWatch)
	}

	return errs.err()
}

// ----------------------------------------------------------------------------
// PreviewItem
// ----------------------------------------------------------------------------

// ValidatePreviewItem checks a preview item and applies its defaults. Field
// paths are prefixed with path.
func ValidatePreviewItem(item *PreviewItem, path string) ValidationErrors {
	var errs ValidationErrors

	checkTitle(&errs, joinPath(path, "originalTitle"), &item.OriginalTitle)
	checkYear(&errs, joinPath(path, "originalYear"), item.OriginalYear)
	checkStatus(&errs, joinPath(path, "suggestedStatus"), &item.SuggestedStatus)
	checkRating(&errs, joinPath(path, "rating"), item.Rating)
	checkNotes(&errs, joinPath(path, "notes"), item.Notes)

	if item.StreamingProviders == nil {
		item.StreamingProviders = []string{}
	}
	if item.MatchCandidates == nil {
		item.MatchCandidates = []MatchCandidate{}
	}

	for i := range item.MatchCandidates {
		c := &item.MatchCandidates[i]
		cpath := fmt.Sprintf("%s[%d]", joinPath(path, "matchCandidates"), i)
		if c.CatalogID <= 0 {
			errs.add(joinPath(cpath, "catalogId"), strconv.FormatInt(c.CatalogID, 10), "must be a positive integer")
		}
		if !c.MediaKind.Valid() {
			errs.add(joinPath(cpath, "mediaKind"), string(c.MediaKind), "invalid enum value (allowed: %s, %s)", MediaMovie, MediaTV)
		}
		if strings.TrimSpace(c.Title) == "" {
			errs.add(joinPath(cpath, "title"), "", "required field is empty")
		}
		checkYear(&errs, joinPath(cpath, "year"), c.Year)
		if c.Confidence < 0 || c.Confidence > 1 || math.IsNaN(c.Confidence) {
			errs.add(joinPath(cpath, "confidence"), fmt.Sprint(c.Confidence), "confidence out of range (0-1)")
		}
	}

	if item.SelectedMatchIndex != nil {
		idx := *item.SelectedMatchIndex
		if idx < 0 || idx >= len(item.MatchCandidates) {
			errs.add(joinPath(path, "selectedMatchIndex"), strconv.Itoa(idx),
				"index out of range (have %d candidates)", len(item.MatchCandidates))
		}
	}

	if item.HasExistingEntry && strings.TrimSpace(item.ExistingEntryID) == "" {
		errs.add(joinPath(path, "existingEntryId"), "", "required field is empty when hasExistingEntry is true")
	}

	return errs
}

// ----------------------------------------------------------------------------
// BulkImportRequest
// ----------------------------------------------------------------------------

func validStrategy(s Strategy) bool {
	return s == StrategySkip || s == StrategyOverwrite || s == StrategyMerge
}

// ValidateBulkImportRequest checks a commit request before any item is
// processed. maxItems caps the batch size (zero means unlimited).
//
// Defaults applied: resolutions become empty, the default duplicate strategy
// becomes skip, merge fields are filled with keep and dropped for strategies
// other than merge.
func ValidateBulkImportRequest(req *BulkImportRequest, maxItems int) error {
	var errs ValidationErrors

	switch {
	case len(req.Items) == 0:
		errs.add("items", "", "required field is empty: at least one item is required")
	case maxItems > 0 && len(req.Items) > maxItems:
		errs.add("items", strconv.Itoa(len(req.Items)), "too many items (max %d)", maxItems)
	}

	for i := range req.Items {
		// Skipped items are never written and may carry the very fields
		// that got them skipped.
		if req.Items[i].ShouldSkip {
			continue
		}
		errs = append(errs, ValidatePreviewItem(&req.Items[i], fmt.Sprintf("items[%d]", i))...)
	}

	if req.DefaultDuplicateStrategy == "" {
		req.DefaultDuplicateStrategy = StrategySkip
	} else if !validStrategy(req.DefaultDuplicateStrategy) {
		errs.add("defaultDuplicateStrategy", string(req.DefaultDuplicateStrategy),
			"invalid enum value (allowed: skip, overwrite, merge)")
	}

	if req.Resolutions == nil {
		req.Resolutions = []DuplicateResolution{}
	}

	seen := make(map[int]int, len(req.Resolutions))
	for i := range req.Resolutions {
		res := &req.Resolutions[i]
		rpath := fmt.Sprintf("resolutions[%d]", i)

		if res.ItemIndex < 0 || res.ItemIndex >= len(req.Items) {
			errs.add(joinPath(rpath, "itemIndex"), strconv.Itoa(res.ItemIndex),
				"index out of range (have %d items)", len(req.Items))
		} else if prev, dup := seen[res.ItemIndex]; dup {
			errs.add(joinPath(rpath, "itemIndex"), strconv.Itoa(res.ItemIndex),
				"duplicate resolution (already given by resolutions[%d])", prev)
		} else {
			seen[res.ItemIndex] = i
		}

		if !validStrategy(res.Strategy) {
			errs.add(joinPath(rpath, "strategy"), string(res.Strategy),
				"invalid enum value (allowed: skip, overwrite, merge)")
			continue
		}

		if res.Strategy != StrategyMerge {
			res.MergeFields = nil
			continue
		}
		if res.MergeFields == nil {
			res.MergeFields = &MergeFields{}
		}
		validateMergeFields(&errs, joinPath(rpath, "mergeFields"), res.MergeFields)
	}

	return errs.err()
}

func validateMergeFields(errs *ValidationErrors, path string, mf *MergeFields) {
	switch mf.Notes {
	case "":
		mf.Notes = NotesKeep
	case NotesAppend, NotesReplace, NotesKeep:
	default:
		errs.add(joinPath(path, "notes"), string(mf.Notes), "invalid enum value (allowed: append, replace, keep)")
	}

	switch mf.StreamingProviders {
	case "":
		mf.StreamingProviders = ProvidersKeep
	case ProvidersMerge, ProvidersReplace, ProvidersKeep:
	default:
		errs.add(joinPath(path, "streamingProviders"), string(mf.StreamingProviders),
			"invalid enum value (allowed: merge, replace, keep)")
	}
}

// ----------------------------------------------------------------------------
// Export
// ----------------------------------------------------------------------------

// ValidateExportedEntry checks one exported record.
func ValidateExportedEntry(e *ExportedEntry, path string) ValidationErrors {
	var errs ValidationErrors

	checkTitle(&errs, joinPath(path, "title"), &e.Title)
	checkYear(&errs, joinPath(path, "year"), e.Year)
	checkMediaKind(&errs, joinPath(path, "mediaKind"), e.MediaKind)
	checkStatus(&errs, joinPath(path, "status"), &e.Status)
	checkRating(&errs, joinPath(path, "rating"), e.Rating)
	checkNotes(&errs, joinPath(path, "notes"), e.Notes)

	if e.DateAdded.IsZero() {
		errs.add(joinPath(path, "dateAdded"), "", "required field is empty")
	}
	if e.CatalogID != nil && *e.CatalogID <= 0 {
		errs.add(joinPath(path, "catalogId"), strconv.FormatInt(*e.CatalogID, 10), "must be a positive integer")
	}
	if e.StreamingProviders == nil {
		e.StreamingProviders = []string{}
	}

	return errs
}

// ValidateExportResponse checks an export envelope, defaulting the version
// and enforcing totalEntries == len(entries).
func ValidateExportResponse(resp *ExportResponse) error {
	var errs ValidationErrors

	if resp.Version == "" {
		resp.Version = ExportFormatVersion
	}
	if strings.TrimSpace(resp.OwnerID) == "" {
		errs.add("ownerId", "", "required field is empty")
	}
	if resp.Entries == nil {
		resp.Entries = []ExportedEntry{}
	}
	if resp.TotalEntries != len(resp.Entries) {
		errs.add("totalEntries", strconv.Itoa(resp.TotalEntries),
			"must equal the number of entries (%d)", len(resp.Entries))
	}
	for i := range resp.Entries {
		errs = append(errs, ValidateExportedEntry(&resp.Entries[i], fmt.Sprintf("entries[%d]", i))...)
	}

	return errs.err()
}
