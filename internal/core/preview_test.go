package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestPreviewRow_BreakingBadScenario(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("Breaking Bad", CatalogResult{CatalogID: 1396, MediaKind: MediaTV, Title: "Breaking Bad", Year: intPtr(2008), PosterRef: "/bb.jpg"})
	svc := newTestService(t, cat, newFakeStore(), Options{})

	item := svc.PreviewRow(context.Background(), "owner-1", RawRow{
		Title:              "Breaking Bad",
		Year:               intPtr(2008),
		Status:             "in progress",
		Rating:             floatPtr(10),
		StreamingProviders: ProvidersText("Netflix"),
	}, PreviewOptions{})

	if item.ShouldSkip || item.Error != "" {
		t.Fatalf("unexpected skip: %+v", item)
	}
	if item.SuggestedStatus != StatusWatching {
		t.Errorf("status = %q, want %q", item.SuggestedStatus, StatusWatching)
	}
	if item.Rating == nil || *item.Rating != 10 {
		t.Errorf("rating = %v, want 10", fmtIntPtr(item.Rating))
	}
	if !reflect.DeepEqual(item.StreamingProviders, []string{"netflix"}) {
		t.Errorf("providers = %v, want [netflix]", item.StreamingProviders)
	}
	if len(item.MatchCandidates) != 1 || item.MatchCandidates[0].Confidence != 1.0 {
		t.Errorf("candidates = %+v, want one with confidence 1", item.MatchCandidates)
	}
	if item.HasExistingEntry {
		t.Error("no existing entry expected")
	}
}

func TestPreviewRow_InvalidRowIsSkipped(t *testing.T) {
	cat := newFakeCatalog()
	svc := newTestService(t, cat, newFakeStore(), Options{})

	item := svc.PreviewRow(context.Background(), "owner-1", RawRow{Title: "  ", Rating: floatPtr(42)}, PreviewOptions{})

	if !item.ShouldSkip {
		t.Fatal("expected ShouldSkip")
	}
	if !strings.Contains(item.Error, "title") || !strings.Contains(item.Error, "rating") {
		t.Errorf("error = %q, want title and rating problems", item.Error)
	}
	if cat.calls != 0 {
		t.Errorf("catalog called %d times for an invalid row", cat.calls)
	}
	if item.MatchCandidates == nil || item.StreamingProviders == nil {
		t.Error("lists should be empty, not nil")
	}
}

func TestPreviewRow_RatingScale(t *testing.T) {
	svc := newTestService(t, newFakeCatalog(), newFakeStore(), Options{})

	item := svc.PreviewRow(context.Background(), "o", RawRow{Title: "Heat", Rating: floatPtr(3.5)}, PreviewOptions{RatingScale: 5})
	if item.Rating == nil || *item.Rating != 7 {
		t.Errorf("rating = %v, want 7", fmtIntPtr(item.Rating))
	}

	// 4.5 is out of range on a 0-4 scale.
	item = svc.PreviewRow(context.Background(), "o", RawRow{Title: "Heat", Rating: floatPtr(4.5)}, PreviewOptions{RatingScale: 4})
	if !item.ShouldSkip {
		t.Error("expected out-of-scale rating to be rejected")
	}
}

func TestPreviewRow_RanksCandidatesStably(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("Dune",
		CatalogResult{CatalogID: 1, MediaKind: MediaMovie, Title: "Dune", Year: intPtr(1984)},
		CatalogResult{CatalogID: 2, MediaKind: MediaMovie, Title: "Dune", Year: intPtr(2021), PosterRef: "/d.jpg"},
		CatalogResult{CatalogID: 3, MediaKind: MediaTV, Title: "Dune", Year: intPtr(1984)},
		CatalogResult{CatalogID: 4, MediaKind: MediaMovie, Title: "Dune: Part Two", Year: intPtr(2024)},
	)
	svc := newTestService(t, cat, newFakeStore(), Options{})

	item := svc.PreviewRow(context.Background(), "o", RawRow{Title: "Dune", Year: intPtr(2021)}, PreviewOptions{})

	var ids []int64
	for _, c := range item.MatchCandidates {
		ids = append(ids, c.CatalogID)
	}
	// 2 is exact; 1 and 3 tie and keep catalog order; 4 trails.
	if want := []int64{2, 1, 3, 4}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
	for i := 1; i < len(item.MatchCandidates); i++ {
		if item.MatchCandidates[i].Confidence > item.MatchCandidates[i-1].Confidence {
			t.Errorf("candidates not sorted by confidence: %+v", item.MatchCandidates)
		}
	}
}

func TestPreviewRow_Unmatched(t *testing.T) {
	svc := newTestService(t, newFakeCatalog(), newFakeStore(), Options{})

	item := svc.PreviewRow(context.Background(), "o", RawRow{Title: "Obscure Short"}, PreviewOptions{})
	if item.ShouldSkip || len(item.MatchCandidates) != 0 {
		t.Errorf("unmatched row without skipUnmatched: %+v", item)
	}

	item = svc.PreviewRow(context.Background(), "o", RawRow{Title: "Obscure Short"}, PreviewOptions{SkipUnmatched: true})
	if !item.ShouldSkip || item.Error == "" {
		t.Errorf("unmatched row with skipUnmatched should be skipped with an error: %+v", item)
	}
}

func TestPreviewRow_CatalogFailureIsPerRow(t *testing.T) {
	cat := newFakeCatalog()
	cat.fail[NormalizeTitle("Heat")] = errors.New("dial tcp: connection refused")
	svc := newTestService(t, cat, newFakeStore(), Options{})

	item := svc.PreviewRow(context.Background(), "o", RawRow{Title: "Heat"}, PreviewOptions{})
	if !item.ShouldSkip {
		t.Fatal("expected ShouldSkip on catalog failure")
	}
	if !strings.Contains(item.Error, ErrCatalogUnavailable.Error()) {
		t.Errorf("error = %q, want catalog unavailable", item.Error)
	}
}

func TestPreviewRow_StoreFailureIsPerRow(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("connection reset by peer")
	svc := newTestService(t, newFakeCatalog(), store, Options{})

	item := svc.PreviewRow(context.Background(), "o", RawRow{Title: "Heat"}, PreviewOptions{})
	if !item.ShouldSkip || !strings.Contains(item.Error, "connection reset") {
		t.Errorf("expected per-row store error, got %+v", item)
	}
}

func TestPreviewRow_DetectsExistingEntry(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("Inception", CatalogResult{CatalogID: 27205, MediaKind: MediaMovie, Title: "Inception", Year: intPtr(2010)})

	store := newFakeStore(
		Entry{ID: "by-catalog", OwnerID: "o", CatalogID: int64Ptr(27205), Title: "Inception (2010)", MediaKind: MediaMovie},
		Entry{ID: "by-title", OwnerID: "o", Title: "Some Home Video", Year: intPtr(1999)},
		Entry{ID: "other-owner", OwnerID: "x", Title: "Heat", Year: intPtr(1995)},
	)
	svc := newTestService(t, cat, store, Options{})

	tests := []struct {
		name   string
		row    RawRow
		wantID string
	}{
		{"matched by catalog id of top candidate", RawRow{Title: "Inception", Year: intPtr(2010)}, "by-catalog"},
		{"matched by normalized title and year", RawRow{Title: "some home  VIDEO", Year: intPtr(1999)}, "by-title"},
		{"year mismatch is not a duplicate", RawRow{Title: "Some Home Video", Year: intPtr(2005)}, ""},
		{"other owner is not a duplicate", RawRow{Title: "Heat", Year: intPtr(1995)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := svc.PreviewRow(context.Background(), "o", tt.row, PreviewOptions{})
			if item.ExistingEntryID != tt.wantID || item.HasExistingEntry != (tt.wantID != "") {
				t.Errorf("existing = (%v, %q), want %q", item.HasExistingEntry, item.ExistingEntryID, tt.wantID)
			}
		})
	}
}

func TestPreviewRow_AutoSelect(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("Heat", CatalogResult{CatalogID: 949, MediaKind: MediaMovie, Title: "Heat", Year: intPtr(1995)})
	cat.add("Heat 2", CatalogResult{CatalogID: 1, MediaKind: MediaMovie, Title: "Heat Wave", Year: intPtr(2022)})

	svc := newTestService(t, cat, newFakeStore(), Options{AutoSelectConfidence: 0.8})

	item := svc.PreviewRow(context.Background(), "o", RawRow{Title: "Heat", Year: intPtr(1995)}, PreviewOptions{})
	if item.SelectedMatchIndex == nil || *item.SelectedMatchIndex != 0 {
		t.Errorf("expected strong match to be preselected, got %v", item.SelectedMatchIndex)
	}

	item = svc.PreviewRow(context.Background(), "o", RawRow{Title: "Heat 2", Year: intPtr(2023)}, PreviewOptions{})
	if item.SelectedMatchIndex != nil {
		t.Errorf("weak match should not be preselected, got %d", *item.SelectedMatchIndex)
	}
}

func TestPreviewRows_PreservesOrderAndSummarizes(t *testing.T) {
	cat := newFakeCatalog()
	var rows []RawRow
	for i := 0; i < 40; i++ {
		title := fmt.Sprintf("Film %d", i)
		if i%5 != 0 {
			cat.add(title, CatalogResult{CatalogID: int64(i + 1), MediaKind: MediaMovie, Title: title})
		}
		rows = append(rows, RawRow{Title: title})
	}
	rows = append(rows, RawRow{Title: ""})

	svc := newTestService(t, cat, newFakeStore(), Options{LookupConcurrency: 8})

	resp, err := svc.PreviewRows(context.Background(), "o", rows, PreviewOptions{})
	if err != nil {
		t.Fatalf("PreviewRows: %v", err)
	}
	if len(resp.Items) != len(rows) {
		t.Fatalf("got %d items, want %d", len(resp.Items), len(rows))
	}
	for i := 0; i < 40; i++ {
		if want := fmt.Sprintf("Film %d", i); resp.Items[i].OriginalTitle != want {
			t.Fatalf("item %d title = %q, want %q", i, resp.Items[i].OriginalTitle, want)
		}
	}

	want := PreviewSummary{TotalRows: 41, Matched: 32, Unmatched: 9, Skipped: 1, Errors: 1}
	if resp.Summary != want {
		t.Errorf("summary = %+v, want %+v", resp.Summary, want)
	}
}

func TestPreviewRows_TooManyRows(t *testing.T) {
	svc := newTestService(t, newFakeCatalog(), newFakeStore(), Options{MaxItems: 2})

	_, err := svc.PreviewRows(context.Background(), "o", make([]RawRow, 3), PreviewOptions{})
	if !errors.Is(err, ErrTooManyRows) {
		t.Errorf("err = %v, want ErrTooManyRows", err)
	}
}

func TestPreviewRows_RecordsAudit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, newFakeCatalog(), store, Options{})

	if _, err := svc.PreviewRows(context.Background(), "o", []RawRow{{Title: "Heat"}}, PreviewOptions{}); err != nil {
		t.Fatalf("PreviewRows: %v", err)
	}
	if len(store.audits) != 1 || store.audits[0].Action != AuditPreview {
		t.Errorf("audits = %+v, want one preview entry", store.audits)
	}
}

func TestPreviewFile_ReportsBytesRead(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("Heat", CatalogResult{CatalogID: 949, MediaKind: MediaMovie, Title: "Heat", Year: intPtr(1995)})
	svc := newTestService(t, cat, newFakeStore(), Options{})

	input := "title,year\nHeat,1995\nAlien,1979\n"
	resp, err := svc.PreviewFile(context.Background(), "owner-1", strings.NewReader(input), genericSource(), PreviewOptions{})
	if err != nil {
		t.Fatalf("PreviewFile: %v", err)
	}
	if resp.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", resp.BytesRead, len(input))
	}
	if resp.Summary.TotalRows != 2 || resp.Summary.Matched != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
}
