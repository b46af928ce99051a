package store

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/watchlist/internal/core"
)

var _ core.Store = (*Memory)(nil)

// Memory is an in-process core.Store. Transactions are serialized and roll
// back on error or panic.
type Memory struct {
	mu      sync.Mutex
	entries map[string]core.Entry
	order   []string
	audits  []core.AuditEntry
}

// NewMemory returns a store seeded with entries.
func NewMemory(entries ...core.Entry) *Memory {
	m := &Memory{entries: make(map[string]core.Entry)}
	for _, e := range entries {
		m.entries[e.ID] = copyEntry(e)
		m.order = append(m.order, e.ID)
	}
	return m
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// FindDuplicate implements core.EntryFinder.
func (m *Memory) FindDuplicate(ctx context.Context, q core.DuplicateQuery) (*core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.FindDuplicate(ctx, q)
}

// ListEntries returns every entry for ownerID, oldest first.
func (m *Memory) ListEntries(ctx context.Context, ownerID string) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Entry, 0)
	for _, id := range m.order {
		if e, ok := m.entries[id]; ok && e.OwnerID == ownerID {
			out = append(out, copyEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateAdded.Before(out[j].DateAdded)
	})
	return out, nil
}

// WithTx runs fn with exclusive access, restoring the previous state when
// fn fails or panics.
func (m *Memory) WithTx(ctx context.Context, fn func(tx core.StoreTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]core.Entry, len(m.entries))
	for k, v := range m.entries {
		snapshot[k] = v
	}
	order := slices.Clone(m.order)

	committed := false
	defer func() {
		if !committed {
			m.entries = snapshot
			m.order = order
		}
	}()

	if err := fn(memTx{m}); err != nil {
		return err
	}
	committed = true
	return nil
}

// InsertAudit appends an audit entry.
func (m *Memory) InsertAudit(ctx context.Context, a core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, a)
	return nil
}

// ListAudit returns matching audit entries, newest first.
func (m *Memory) ListAudit(ctx context.Context, q core.AuditQuery) ([]core.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.AuditEntry, 0)
	for i := len(m.audits) - 1; i >= 0; i-- {
		a := m.audits[i]
		if q.OwnerID != "" && a.OwnerID != q.OwnerID {
			continue
		}
		if q.Action != "" && a.Action != q.Action {
			continue
		}
		if !q.Since.IsZero() && a.CreatedAt.Before(q.Since) {
			continue
		}
		out = append(out, a)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// PurgeAudit deletes audit entries created before cutoff.
func (m *Memory) PurgeAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.audits)
	m.audits = slices.DeleteFunc(m.audits, func(a core.AuditEntry) bool {
		return a.CreatedAt.Before(cutoff)
	})
	return int64(before - len(m.audits)), nil
}

// memTx runs with the store lock held.
type memTx struct {
	m *Memory
}

func (tx memTx) FindDuplicate(ctx context.Context, q core.DuplicateQuery) (*core.Entry, error) {
	var titleMatch *core.Entry
	key := core.NormalizeTitle(q.Title)

	for _, id := range tx.m.order {
		e, ok := tx.m.entries[id]
		if !ok || e.OwnerID != q.OwnerID {
			continue
		}
		if q.CatalogID != nil && e.CatalogID != nil && *e.CatalogID == *q.CatalogID {
			found := copyEntry(e)
			return &found, nil
		}
		if titleMatch == nil && key != "" && core.NormalizeTitle(e.Title) == key &&
			(q.Year == nil || e.Year == nil || *q.Year == *e.Year) {
			found := copyEntry(e)
			titleMatch = &found
		}
	}
	return titleMatch, nil
}

func (tx memTx) GetEntry(ctx context.Context, ownerID, id string) (*core.Entry, error) {
	e, ok := tx.m.entries[id]
	if !ok || e.OwnerID != ownerID {
		return nil, core.ErrEntryNotFound
	}
	found := copyEntry(e)
	return &found, nil
}

func (tx memTx) CreateEntry(ctx context.Context, e *core.Entry) error {
	if _, exists := tx.m.entries[e.ID]; exists {
		return errDuplicateKey
	}
	if e.CatalogID != nil {
		for _, other := range tx.m.entries {
			if other.OwnerID == e.OwnerID && other.CatalogID != nil && *other.CatalogID == *e.CatalogID {
				return errDuplicateKey
			}
		}
	}
	tx.m.entries[e.ID] = copyEntry(*e)
	tx.m.order = append(tx.m.order, e.ID)
	return nil
}

func (tx memTx) UpdateEntry(ctx context.Context, e *core.Entry) error {
	old, ok := tx.m.entries[e.ID]
	if !ok || old.OwnerID != e.OwnerID {
		return core.ErrEntryNotFound
	}
	tx.m.entries[e.ID] = copyEntry(*e)
	return nil
}

// errDuplicateKey mirrors the unique violation Postgres reports.
var errDuplicateKey = errors.New(`duplicate key value violates unique constraint "watchlist_entries_owner_catalog"`)

func copyEntry(e core.Entry) core.Entry {
	out := e
	out.StreamingProviders = slices.Clone(e.StreamingProviders)
	if out.StreamingProviders == nil {
		out.StreamingProviders = []string{}
	}
	if e.CatalogID != nil {
		v := *e.CatalogID
		out.CatalogID = &v
	}
	if e.Year != nil {
		v := *e.Year
		out.Year = &v
	}
	if e.Rating != nil {
		v := *e.Rating
		out.Rating = &v
	}
	if e.ReleaseDate != nil {
		v := *e.ReleaseDate
		out.ReleaseDate = &v
	}
	if e.CompletedAt != nil {
		v := *e.CompletedAt
		out.CompletedAt = &v
	}
	return out
}
