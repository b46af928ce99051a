package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// stubCatalog answers every title search with a single exact match.
type stubCatalog map[string]core.CatalogResult

func (c stubCatalog) Search(ctx context.Context, q core.CatalogQuery) ([]core.CatalogResult, error) {
	if r, ok := c[core.NormalizeTitle(q.Title)]; ok {
		return []core.CatalogResult{r}, nil
	}
	return nil, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{
		"heat":         {CatalogID: 949, MediaKind: core.MediaMovie, Title: "Heat", Year: intPtr(1995), PosterRef: "/heat.jpg"},
		"breaking bad": {CatalogID: 1396, MediaKind: core.MediaTV, Title: "Breaking Bad", Year: intPtr(2008)},
	}
}

func TestPipeline_PreviewCommitExportReimport(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	svc, err := core.NewService(testCatalog(), mem, core.Options{AutoSelectConfidence: 0.8})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	rating := 9.0
	rows := []core.RawRow{
		{Title: "Breaking Bad", Year: intPtr(2008), Status: "Watched", Rating: &rating, StreamingProviders: core.ProvidersText("Netflix, Hulu")},
		{Title: "Heat", Year: intPtr(1995)},
		{Title: "Some Home Video"},
	}

	preview, err := svc.PreviewRows(ctx, "alice", rows, core.PreviewOptions{})
	if err != nil {
		t.Fatalf("PreviewRows: %v", err)
	}
	if preview.Summary.Matched != 2 || preview.Summary.Duplicates != 0 {
		t.Fatalf("summary = %+v", preview.Summary)
	}

	res, err := svc.Commit(ctx, "alice", core.BulkImportRequest{Items: preview.Items})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Imported != 3 || mem.Len() != 3 {
		t.Fatalf("commit = %+v, stored %d", res, mem.Len())
	}

	export, err := svc.Export(ctx, "alice")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var buf bytes.Buffer
	if err := core.WriteExportCSV(&buf, export); err != nil {
		t.Fatalf("WriteExportCSV: %v", err)
	}

	generic := core.SourceDefinition{
		Key:           "export",
		Columns:       map[core.Field][]string{},
		RatingScale:   10,
		DefaultStatus: core.StatusPlanToWatch,
	}
	for _, col := range core.ExportColumns {
		generic.Columns[core.Field(col)] = []string{col}
	}

	again, err := svc.PreviewFile(ctx, "alice", &buf, generic, core.PreviewOptions{})
	if err != nil {
		t.Fatalf("PreviewFile: %v", err)
	}
	if again.Summary.Duplicates != 3 {
		t.Errorf("re-import duplicates = %d, want 3", again.Summary.Duplicates)
	}

	second, err := svc.Commit(ctx, "alice", core.BulkImportRequest{Items: again.Items})
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	if second.Imported != 0 || second.Skipped != 3 || mem.Len() != 3 {
		t.Errorf("second commit = %+v, stored %d", second, mem.Len())
	}

	audits, err := svc.AuditLog(ctx, core.AuditQuery{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(audits) != 5 {
		t.Errorf("got %d audit entries, want 5", len(audits))
	}
}
