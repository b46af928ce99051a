package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/watchlist/internal/logging"
)

// ExportColumns is the CSV header written by WriteExportCSV. The generic
// source reads every one of these names back.
var ExportColumns = []string{
	"title",
	"year",
	"mediaKind",
	"status",
	"rating",
	"notes",
	"dateAdded",
	"dateWatched",
	"streamingProviders",
	"catalogId",
	"posterRef",
}

// ExportEntry maps a stored entry to its exported form.
func ExportEntry(e Entry) ExportedEntry {
	out := ExportedEntry{
		Title:              e.Title,
		Year:               cloneInt(e.Year),
		MediaKind:          e.MediaKind,
		Status:             e.Status,
		Rating:             cloneInt(e.Rating),
		Notes:              e.Notes,
		DateAdded:          e.DateAdded.UTC(),
		StreamingProviders: providerSet(e.StreamingProviders),
		CatalogID:          cloneInt64(e.CatalogID),
		PosterRef:          e.PosterRef,
	}

	if e.ReleaseDate != nil {
		y := e.ReleaseDate.Year()
		out.Year = &y
	}
	if e.Status == StatusCompleted && e.CompletedAt != nil {
		t := e.CompletedAt.UTC()
		out.DateWatched = &t
	}

	return out
}

// BuildExport wraps entries in a versioned export envelope.
func BuildExport(ownerID string, entries []Entry, now time.Time) ExportResponse {
	exported := make([]ExportedEntry, 0, len(entries))
	for _, e := range entries {
		exported = append(exported, ExportEntry(e))
	}
	return ExportResponse{
		ExportedAt:   now.UTC(),
		OwnerID:      ownerID,
		Version:      ExportFormatVersion,
		TotalEntries: len(exported),
		Entries:      exported,
	}
}

// Export returns every stored entry for ownerID in export form.
func (s *Service) Export(ctx context.Context, ownerID string) (*ExportResponse, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ValidationErrors{{Field: "ownerId", Message: "required field is empty"}}
	}

	entries, err := s.store.ListEntries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	resp := BuildExport(ownerID, entries, s.now())

	logging.FromContext(ctx).Info("watchlist exported",
		"owner_id", ownerID,
		"entries", resp.TotalEntries,
	)
	s.LogAudit(ctx, AuditLogParams{
		Action:       AuditExport,
		OwnerID:      ownerID,
		RowsAffected: resp.TotalEntries,
	})

	return &resp, nil
}

// RawRow converts an exported entry back into an import row. Ratings are
// already on the 0-10 scale.
func (e ExportedEntry) RawRow() RawRow {
	row := RawRow{
		Title:              e.Title,
		Year:               cloneInt(e.Year),
		Status:             string(e.Status),
		Notes:              e.Notes,
		StreamingProviders: ProvidersList(slices.Clone(e.StreamingProviders)...),
		MediaKind:          e.MediaKind,
	}
	if e.Rating != nil {
		v := float64(*e.Rating)
		row.Rating = &v
	}
	if !e.DateAdded.IsZero() {
		row.DateAdded = DateValue(e.DateAdded.UTC().Format(time.RFC3339))
	}
	return row
}

// WriteExportCSV writes the entries of resp as CSV with an ExportColumns header.
func WriteExportCSV(w io.Writer, resp *ExportResponse) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for _, e := range resp.Entries {
		if err := cw.Write(exportRecord(e)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func exportRecord(e ExportedEntry) []string {
	rec := make([]string, len(ExportColumns))
	rec[0] = e.Title
	if e.Year != nil {
		rec[1] = strconv.Itoa(*e.Year)
	}
	rec[2] = string(e.MediaKind)
	rec[3] = string(e.Status)
	if e.Rating != nil {
		rec[4] = strconv.Itoa(*e.Rating)
	}
	rec[5] = e.Notes
	rec[6] = e.DateAdded.UTC().Format(time.RFC3339)
	if e.DateWatched != nil {
		rec[7] = e.DateWatched.UTC().Format(time.RFC3339)
	}
	rec[8] = strings.Join(e.StreamingProviders, ",")
	if e.CatalogID != nil {
		rec[9] = strconv.FormatInt(*e.CatalogID, 10)
	}
	rec[10] = e.PosterRef
	return rec
}
