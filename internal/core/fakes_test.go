package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeCatalog returns canned results keyed by normalized title.
type fakeCatalog struct {
	mu      sync.Mutex
	results map[string][]CatalogResult
	fail    map[string]error
	calls   int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		results: make(map[string][]CatalogResult),
		fail:    make(map[string]error),
	}
}

func (c *fakeCatalog) add(title string, results ...CatalogResult) {
	c.results[NormalizeTitle(title)] = results
}

func (c *fakeCatalog) Search(ctx context.Context, q CatalogQuery) ([]CatalogResult, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	key := NormalizeTitle(q.Title)
	if err := c.fail[key]; err != nil {
		return nil, err
	}
	return c.results[key], nil
}

// fakeStore is an in-memory Store whose transactions roll back on error.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	order   []string
	audits  []AuditEntry

	// failWrite makes CreateEntry and UpdateEntry fail for these titles.
	failWrite map[string]error
	// panicOn makes CreateEntry panic for these titles.
	panicOn map[string]bool
	// findErr makes FindDuplicate fail.
	findErr error
}

func newFakeStore(entries ...Entry) *fakeStore {
	s := &fakeStore{
		entries:   make(map[string]Entry),
		failWrite: make(map[string]error),
		panicOn:   make(map[string]bool),
	}
	for _, e := range entries {
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	return s
}

func (s *fakeStore) get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *fakeStore) FindDuplicate(ctx context.Context, q DuplicateQuery) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(q)
}

func (s *fakeStore) findLocked(q DuplicateQuery) (*Entry, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	title := NormalizeTitle(q.Title)
	for _, id := range s.order {
		e, ok := s.entries[id]
		if !ok || e.OwnerID != q.OwnerID {
			continue
		}
		if q.CatalogID != nil && e.CatalogID != nil && *e.CatalogID == *q.CatalogID {
			return &e, nil
		}
		if NormalizeTitle(e.Title) == title && (q.Year == nil || e.Year == nil || *e.Year == *q.Year) {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListEntries(ctx context.Context, ownerID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, id := range s.order {
		if e, ok := s.entries[id]; ok && e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertAudit(ctx context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, entry)
	return nil
}

func (s *fakeStore) ListAudit(ctx context.Context, q AuditQuery) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEntry
	for i := len(s.audits) - 1; i >= 0 && (q.Limit <= 0 || len(out) < q.Limit); i-- {
		a := s.audits[i]
		if a.OwnerID != q.OwnerID || (q.Action != "" && a.Action != q.Action) || a.CreatedAt.Before(q.Since) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) PurgeAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.audits[:0]
	var purged int64
	for _, a := range s.audits {
		if a.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, a)
	}
	s.audits = kept
	return purged, nil
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	order := append([]string(nil), s.order...)

	rollback := func() {
		s.entries = snapshot
		s.order = order
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err := fn(fakeTx{s}); err != nil {
		rollback()
		return err
	}
	return nil
}

// fakeTx runs with the store lock held.
type fakeTx struct {
	s *fakeStore
}

func (tx fakeTx) FindDuplicate(ctx context.Context, q DuplicateQuery) (*Entry, error) {
	return tx.s.findLocked(q)
}

func (tx fakeTx) GetEntry(ctx context.Context, ownerID, id string) (*Entry, error) {
	e, ok := tx.s.entries[id]
	if !ok || e.OwnerID != ownerID {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}

func (tx fakeTx) CreateEntry(ctx context.Context, e *Entry) error {
	if tx.s.panicOn[e.Title] {
		panic("boom")
	}
	if err := tx.s.failWrite[e.Title]; err != nil {
		return err
	}
	if _, exists := tx.s.entries[e.ID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	tx.s.entries[e.ID] = *e
	tx.s.order = append(tx.s.order, e.ID)
	return nil
}

func (tx fakeTx) UpdateEntry(ctx context.Context, e *Entry) error {
	if err := tx.s.failWrite[e.Title]; err != nil {
		return err
	}
	if _, ok := tx.s.entries[e.ID]; !ok {
		return ErrEntryNotFound
	}
	tx.s.entries[e.ID] = *e
	return nil
}

func newTestService(t *testing.T, cat CatalogSearcher, store Store, opts Options) *Service {
	svc, err := NewService(cat, store, opts)
	t.Helper()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}
