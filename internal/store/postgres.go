// Package store persists watchlist entries and the audit log.
//
// Postgres is the production store, built on a pgx connection pool. Every
// commit item runs in its own transaction through WithTx; the same query
// code serves both the pool and a transaction via the DBTX interface.
//
// Memory is an in-process store with the same duplicate semantics, used by
// the CLI for dry runs and by tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ core.Store   = (*Postgres)(nil)
	_ core.StoreTx = queries{}
)

// Postgres implements core.Store on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	q    queries
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: queries{db: pool}}
}

// Pool returns the underlying pool for health checks.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// FindDuplicate implements core.EntryFinder.
func (p *Postgres) FindDuplicate(ctx context.Context, q core.DuplicateQuery) (*core.Entry, error) {
	return p.q.FindDuplicate(ctx, q)
}

// ListEntries returns every entry for ownerID, oldest first.
func (p *Postgres) ListEntries(ctx context.Context, ownerID string) ([]core.Entry, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+entryColumns+`
		FROM watchlist_entries
		WHERE owner_id = $1
		ORDER BY date_added, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// WithTx runs fn in a transaction that commits only when fn returns nil.
// A panic in fn rolls the transaction back before propagating.
func (p *Postgres) WithTx(ctx context.Context, fn func(tx core.StoreTx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Entries
// ----------------------------------------------------------------------------

const entryColumns = `id, owner_id, catalog_id, media_kind, title, year, release_date,
	status, rating, notes, streaming_providers, poster_ref, date_added,
	completed_at, updated_at`

// queries holds the entry statements shared by the pool and transactions.
type queries struct {
	db DBTX
}

// FindDuplicate matches on catalog ID first, then on normalized title with a
// compatible year. A missing year on either side matches any year.
func (q queries) FindDuplicate(ctx context.Context, dq core.DuplicateQuery) (*core.Entry, error) {
	row := q.db.QueryRow(ctx, `SELECT `+entryColumns+`
		FROM watchlist_entries
		WHERE owner_id = $1
		  AND (
		    ($2::bigint IS NOT NULL AND catalog_id = $2)
		    OR (title_key = $3 AND ($4::int IS NULL OR year IS NULL OR year = $4))
		  )
		ORDER BY (catalog_id IS NOT DISTINCT FROM $2::bigint) DESC, date_added
		LIMIT 1`,
		dq.OwnerID,
		ToPgInt8(dq.CatalogID),
		core.NormalizeTitle(dq.Title),
		ToPgInt4(dq.Year),
	)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry loads one entry, returning core.ErrEntryNotFound when absent.
func (q queries) GetEntry(ctx context.Context, ownerID, id string) (*core.Entry, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return nil, core.ErrEntryNotFound
	}

	row := q.db.QueryRow(ctx, `SELECT `+entryColumns+`
		FROM watchlist_entries
		WHERE owner_id = $1 AND id = $2
		FOR UPDATE`, ownerID, pgID)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrEntryNotFound
	}
	return e, err
}

// CreateEntry inserts e.
func (q queries) CreateEntry(ctx context.Context, e *core.Entry) error {
	_, err := q.db.Exec(ctx, `INSERT INTO watchlist_entries (
			id, owner_id, catalog_id, media_kind, title, title_key, year, release_date,
			status, rating, notes, streaming_providers, poster_ref, date_added,
			completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		entryArgs(e)...,
	)
	return err
}

// UpdateEntry replaces every mutable column of e.
func (q queries) UpdateEntry(ctx context.Context, e *core.Entry) error {
	tag, err := q.db.Exec(ctx, `UPDATE watchlist_entries SET
			catalog_id = $3, media_kind = $4, title = $5, title_key = $6, year = $7,
			release_date = $8, status = $9, rating = $10, notes = $11,
			streaming_providers = $12, poster_ref = $13, date_added = $14,
			completed_at = $15, updated_at = $16
		WHERE id = $1 AND owner_id = $2`,
		entryArgs(e)...,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrEntryNotFound
	}
	return nil
}

func entryArgs(e *core.Entry) []any {
	providers := e.StreamingProviders
	if providers == nil {
		providers = []string{}
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = e.DateAdded
	}
	return []any{
		ToPgUUID(e.ID),
		e.OwnerID,
		ToPgInt8(e.CatalogID),
		ToPgText(string(e.MediaKind)),
		e.Title,
		core.NormalizeTitle(e.Title),
		ToPgInt4(e.Year),
		ToPgDate(e.ReleaseDate),
		string(e.Status),
		ToPgInt2(e.Rating),
		e.Notes,
		providers,
		e.PosterRef,
		e.DateAdded.UTC(),
		ToPgTimestamptz(e.CompletedAt),
		updated.UTC(),
	}
}

func scanEntry(row pgx.Row) (*core.Entry, error) {
	var (
		id          pgtype.UUID
		catalogID   pgtype.Int8
		mediaKind   pgtype.Text
		year        pgtype.Int4
		releaseDate pgtype.Date
		status      string
		rating      pgtype.Int2
		completedAt pgtype.Timestamptz
		e           core.Entry
	)

	err := row.Scan(
		&id, &e.OwnerID, &catalogID, &mediaKind, &e.Title, &year, &releaseDate,
		&status, &rating, &e.Notes, &e.StreamingProviders, &e.PosterRef, &e.DateAdded,
		&completedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.ID = PgUUIDToString(id)
	e.CatalogID = fromPgInt8(catalogID)
	e.MediaKind = core.MediaKind(fromPgText(mediaKind))
	e.Year = fromPgInt4(year)
	e.ReleaseDate = fromPgDate(releaseDate)
	e.Status = core.Status(status)
	e.Rating = fromPgInt2(rating)
	e.CompletedAt = fromPgTimestamptz(completedAt)
	e.DateAdded = e.DateAdded.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if e.StreamingProviders == nil {
		e.StreamingProviders = []string{}
	}
	return &e, nil
}

// ----------------------------------------------------------------------------
// Audit
// ----------------------------------------------------------------------------

// InsertAudit writes one audit entry.
func (p *Postgres) InsertAudit(ctx context.Context, a core.AuditEntry) error {
	var ip *netip.Addr
	if a.IPAddress != "" {
		host := a.IPAddress
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if addr, err := netip.ParseAddr(host); err == nil {
			ip = &addr
		}
	}

	_, err := p.pool.Exec(ctx, `INSERT INTO audit_log (
			id, action, severity, owner_id, batch_id, ip_address, user_agent,
			rows_affected, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ToPgUUID(a.ID),
		string(a.Action),
		string(a.Severity),
		a.OwnerID,
		ToPgUUID(a.BatchID),
		ip,
		a.UserAgent,
		a.RowsAffected,
		a.Details,
		a.CreatedAt.UTC(),
	)
	return err
}

// ListAudit returns matching audit entries, newest first.
func (p *Postgres) ListAudit(ctx context.Context, q core.AuditQuery) ([]core.AuditEntry, error) {
	wb := NewWhereBuilder()
	wb.Add("owner_id", q.OwnerID)
	wb.Add("action", string(q.Action))
	wb.AddSince("created_at", q.Since)
	whereClause, args := wb.Build()

	query := `SELECT id, action, severity, owner_id, batch_id,
		COALESCE(host(ip_address), ''), user_agent, rows_affected, details, created_at
		FROM audit_log` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", wb.NextArgIndex())
	args = append(args, q.Limit)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.AuditEntry, 0)
	for rows.Next() {
		var (
			a       core.AuditEntry
			id      pgtype.UUID
			batchID pgtype.UUID
			action  string
			sev     string
		)
		if err := rows.Scan(&id, &action, &sev, &a.OwnerID, &batchID,
			&a.IPAddress, &a.UserAgent, &a.RowsAffected, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ID = PgUUIDToString(id)
		a.BatchID = PgUUIDToString(batchID)
		a.Action = core.AuditAction(action)
		a.Severity = core.AuditSeverity(sev)
		a.CreatedAt = a.CreatedAt.UTC()
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// PurgeAudit deletes audit entries created before cutoff.
func (p *Postgres) PurgeAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
