package core

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleEntry() Entry {
	added := time.Date(2023, 8, 14, 19, 30, 0, 0, time.UTC)
	watched := time.Date(2023, 9, 2, 21, 0, 0, 0, time.UTC)
	return Entry{
		ID:                 "e1",
		OwnerID:            "owner-1",
		CatalogID:          int64Ptr(949),
		MediaKind:          MediaMovie,
		Title:              "Heat",
		Year:               intPtr(1995),
		Status:             StatusCompleted,
		Rating:             intPtr(8),
		Notes:              "Pacino vs De Niro",
		StreamingProviders: []string{"netflix", "hulu"},
		PosterRef:          "/heat.jpg",
		DateAdded:          added,
		CompletedAt:        &watched,
	}
}

// exportSource mirrors the generic source: every export column reads back.
func exportSource() SourceDefinition {
	cols := make(map[Field][]string)
	for _, f := range []Field{FieldTitle, FieldYear, FieldStatus, FieldRating, FieldNotes,
		FieldDateAdded, FieldDateWatched, FieldProviders, FieldMediaKind} {
		cols[f] = []string{string(f)}
	}
	return SourceDefinition{Key: "export", Columns: cols, RatingScale: 10, DefaultStatus: StatusPlanToWatch}
}

func heatCatalog() *fakeCatalog {
	cat := newFakeCatalog()
	cat.add("Heat", CatalogResult{CatalogID: 949, MediaKind: MediaMovie, Title: "Heat", Year: intPtr(1995), PosterRef: "/heat.jpg"})
	return cat
}

// ----------------------------------------------------------------------------
// ExportEntry
// ----------------------------------------------------------------------------

func TestExportEntry(t *testing.T) {
	e := sampleEntry()
	got := ExportEntry(e)

	if got.Title != "Heat" || *got.Year != 1995 || got.Status != StatusCompleted || *got.Rating != 8 {
		t.Errorf("core fields = %+v", got)
	}
	if got.DateWatched == nil || !got.DateWatched.Equal(*e.CompletedAt) {
		t.Errorf("dateWatched = %v, want %v", got.DateWatched, e.CompletedAt)
	}
	if !reflect.DeepEqual(got.StreamingProviders, []string{"netflix", "hulu"}) {
		t.Errorf("providers = %v", got.StreamingProviders)
	}

	*got.Rating = 1
	if *e.Rating != 8 {
		t.Error("exported rating aliases the entry")
	}
}

func TestExportEntry_YearFromReleaseDate(t *testing.T) {
	e := sampleEntry()
	release := time.Date(1996, 2, 9, 0, 0, 0, 0, time.UTC)
	e.ReleaseDate = &release

	if got := ExportEntry(e); *got.Year != 1996 {
		t.Errorf("year = %d, want 1996 from release date", *got.Year)
	}
}

func TestExportEntry_NoDateWatchedUnlessCompleted(t *testing.T) {
	e := sampleEntry()
	e.Status = StatusWatching

	if got := ExportEntry(e); got.DateWatched != nil {
		t.Errorf("dateWatched = %v, want nil for watching", got.DateWatched)
	}
}

func TestBuildExport_IsValid(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	resp := BuildExport("owner-1", []Entry{sampleEntry(), {Title: "Alien", Status: StatusPlanToWatch, DateAdded: now}}, now)

	if resp.Version != ExportFormatVersion || resp.TotalEntries != 2 || !resp.ExportedAt.Equal(now) {
		t.Errorf("envelope = %+v", resp)
	}
	if err := ValidateExportResponse(&resp); err != nil {
		t.Errorf("ValidateExportResponse: %v", err)
	}
	if resp.Entries[1].StreamingProviders == nil {
		t.Error("providers should never be nil")
	}

	empty := BuildExport("owner-1", nil, now)
	if empty.Entries == nil || empty.TotalEntries != 0 {
		t.Errorf("empty export = %+v", empty)
	}
}

// ----------------------------------------------------------------------------
// Service.Export
// ----------------------------------------------------------------------------

func TestServiceExport(t *testing.T) {
	other := sampleEntry()
	other.ID, other.OwnerID = "e2", "someone-else"
	store := newFakeStore(sampleEntry(), other)
	svc := newTestService(t, newFakeCatalog(), store, Options{})

	resp, err := svc.Export(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if resp.TotalEntries != 1 || resp.OwnerID != "owner-1" {
		t.Errorf("resp = %+v", resp)
	}
	if len(store.audits) != 1 || store.audits[0].Action != AuditExport {
		t.Errorf("audits = %+v", store.audits)
	}

	var verrs ValidationErrors
	if _, err := svc.Export(context.Background(), " "); !errors.As(err, &verrs) {
		t.Errorf("blank owner: err = %v", err)
	}
}

// ----------------------------------------------------------------------------
// Round trip
// ----------------------------------------------------------------------------

func TestExportRoundTripThroughPreview(t *testing.T) {
	svc := newTestService(t, heatCatalog(), newFakeStore(), Options{})
	exported := ExportEntry(sampleEntry())

	item := svc.PreviewRow(context.Background(), "owner-2", exported.RawRow(), PreviewOptions{})

	if item.Error != "" {
		t.Fatalf("unexpected error: %s", item.Error)
	}
	if item.OriginalTitle != exported.Title || *item.OriginalYear != *exported.Year {
		t.Errorf("title/year = %q/%v", item.OriginalTitle, item.OriginalYear)
	}
	if item.SuggestedStatus != exported.Status {
		t.Errorf("status = %q, want %q", item.SuggestedStatus, exported.Status)
	}
	if item.Rating == nil || *item.Rating != *exported.Rating {
		t.Errorf("rating = %v, want %d", item.Rating, *exported.Rating)
	}
	if !reflect.DeepEqual(item.StreamingProviders, exported.StreamingProviders) {
		t.Errorf("providers = %v, want %v", item.StreamingProviders, exported.StreamingProviders)
	}
	if item.DateAdded == nil || !item.DateAdded.Equal(exported.DateAdded) {
		t.Errorf("dateAdded = %v, want %v", item.DateAdded, exported.DateAdded)
	}
	if len(item.MatchCandidates) == 0 || item.MatchCandidates[0].CatalogID != 949 {
		t.Errorf("candidates = %+v", item.MatchCandidates)
	}
}

func TestWriteExportCSV_ReadsBack(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	plain := Entry{Title: "Alien, Director's Cut", Status: StatusPlanToWatch, DateAdded: now, StreamingProviders: []string{}}
	resp := BuildExport("owner-1", []Entry{sampleEntry(), plain}, now)

	var buf bytes.Buffer
	if err := WriteExportCSV(&buf, &resp); err != nil {
		t.Fatalf("WriteExportCSV: %v", err)
	}

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	if header != strings.Join(ExportColumns, ",") {
		t.Errorf("header = %q", header)
	}

	rows, err := ReadRows(&buf, exportSource())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	heat := rows[0]
	if heat.Title != "Heat" || *heat.Year != 1995 || heat.Status != "completed" || *heat.Rating != 8 {
		t.Errorf("heat row = %+v", heat)
	}
	if got := ParseProviders(heat.StreamingProviders); !reflect.DeepEqual(got, []string{"netflix", "hulu"}) {
		t.Errorf("providers = %v", got)
	}
	if heat.MediaKind != MediaMovie {
		t.Errorf("mediaKind = %q", heat.MediaKind)
	}
	if d, ok := NormalizeDate(heat.DateAdded); !ok || !d.Equal(sampleEntry().DateAdded) {
		t.Errorf("dateAdded = %q", heat.DateAdded)
	}

	if rows[1].Title != "Alien, Director's Cut" || rows[1].Year != nil || rows[1].Rating != nil {
		t.Errorf("plain row = %+v", rows[1])
	}
}
