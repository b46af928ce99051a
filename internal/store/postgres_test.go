package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// newTestPostgres connects to WATCHLIST_TEST_DATABASE_URL or skips.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("WATCHLIST_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("WATCHLIST_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	pg := NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return pg
}

func TestPostgres_EntryLifecycle(t *testing.T) {
	pg := newTestPostgres(t)
	ctx := context.Background()
	owner := "test-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	entry := core.Entry{
		ID:                 uuid.NewString(),
		OwnerID:            owner,
		CatalogID:          int64Ptr(949),
		MediaKind:          core.MediaMovie,
		Title:              "Heat",
		Year:               intPtr(1995),
		Status:             core.StatusPlanToWatch,
		StreamingProviders: []string{"netflix"},
		DateAdded:          now,
		UpdatedAt:          now,
	}

	err := pg.WithTx(ctx, func(tx core.StoreTx) error {
		return tx.CreateEntry(ctx, &entry)
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	byCatalog, err := pg.FindDuplicate(ctx, core.DuplicateQuery{OwnerID: owner, CatalogID: int64Ptr(949)})
	if err != nil || byCatalog == nil || byCatalog.ID != entry.ID {
		t.Fatalf("FindDuplicate by catalog = %+v, %v", byCatalog, err)
	}
	byTitle, err := pg.FindDuplicate(ctx, core.DuplicateQuery{OwnerID: owner, Title: "HEAT", Year: intPtr(1995)})
	if err != nil || byTitle == nil {
		t.Fatalf("FindDuplicate by title = %+v, %v", byTitle, err)
	}
	none, err := pg.FindDuplicate(ctx, core.DuplicateQuery{OwnerID: owner, Title: "Heat", Year: intPtr(1986)})
	if err != nil || none != nil {
		t.Fatalf("FindDuplicate year mismatch = %+v, %v", none, err)
	}

	err = pg.WithTx(ctx, func(tx core.StoreTx) error {
		e, err := tx.GetEntry(ctx, owner, entry.ID)
		if err != nil {
			return err
		}
		e.Status = core.StatusCompleted
		e.Rating = intPtr(9)
		e.CompletedAt = &now
		return tx.UpdateEntry(ctx, e)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := pg.ListEntries(ctx, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListEntries = %+v, %v", list, err)
	}
	got := list[0]
	if got.Status != core.StatusCompleted || *got.Rating != 9 || got.CompletedAt == nil || got.StreamingProviders[0] != "netflix" {
		t.Errorf("stored entry = %+v", got)
	}

	err = pg.WithTx(ctx, func(tx core.StoreTx) error {
		_, err := tx.GetEntry(ctx, owner, uuid.NewString())
		return err
	})
	if !errors.Is(err, core.ErrEntryNotFound) {
		t.Errorf("GetEntry missing: err = %v", err)
	}
}

func TestPostgres_RollbackOnError(t *testing.T) {
	pg := newTestPostgres(t)
	ctx := context.Background()
	owner := "test-" + uuid.NewString()
	boom := errors.New("boom")

	err := pg.WithTx(ctx, func(tx core.StoreTx) error {
		e := core.Entry{ID: uuid.NewString(), OwnerID: owner, Title: "Ran", Status: core.StatusPlanToWatch, DateAdded: time.Now()}
		if err := tx.CreateEntry(ctx, &e); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	list, _ := pg.ListEntries(ctx, owner)
	if len(list) != 0 {
		t.Errorf("rolled back entry is visible: %+v", list)
	}
}

func TestPostgres_Audit(t *testing.T) {
	pg := newTestPostgres(t)
	ctx := context.Background()
	owner := "test-" + uuid.NewString()
	old := time.Now().UTC().AddDate(-1, 0, 0)

	entries := []core.AuditEntry{
		{ID: uuid.NewString(), Action: core.AuditExport, Severity: core.SeverityMedium, OwnerID: owner, IPAddress: "203.0.113.9:4431", CreatedAt: old},
		{ID: uuid.NewString(), Action: core.AuditImportCommit, Severity: core.SeverityHigh, OwnerID: owner, BatchID: uuid.NewString(),
			RowsAffected: 3, Details: map[string]any{"failed": 0}, CreatedAt: time.Now().UTC()},
	}
	for _, a := range entries {
		if err := pg.InsertAudit(ctx, a); err != nil {
			t.Fatalf("InsertAudit: %v", err)
		}
	}

	got, err := pg.ListAudit(ctx, core.AuditQuery{OwnerID: owner, Limit: 10})
	if err != nil || len(got) != 2 {
		t.Fatalf("ListAudit = %+v, %v", got, err)
	}
	if got[0].Action != core.AuditImportCommit || got[1].IPAddress != "203.0.113.9" {
		t.Errorf("audit rows = %+v", got)
	}

	if _, err := pg.PurgeAudit(ctx, time.Now().UTC().AddDate(0, -1, 0)); err != nil {
		t.Fatalf("PurgeAudit: %v", err)
	}
	left, _ := pg.ListAudit(ctx, core.AuditQuery{OwnerID: owner, Limit: 10})
	if len(left) != 1 {
		t.Errorf("%d entries after purge, want 1", len(left))
	}
}
