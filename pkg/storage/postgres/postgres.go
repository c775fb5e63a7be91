package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/censys/rssi-agg/pkg/export"
	"github.com/censys/rssi-agg/pkg/scanning"
	"github.com/censys/rssi-agg/pkg/storage"
)

const (
	sectionTop    = "top"
	sectionBottom = "bottom"
)

var summaryColumns = []string{"position", "section", "address", "mac", "signal", "quality", "interface", "captured_at"}

type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps an existing pool. Call EnsureSchema before using it.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the rssi_summary table if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
CREATE TABLE IF NOT EXISTS rssi_summary (
  position INTEGER PRIMARY KEY,
  section TEXT NOT NULL,
  address BIGINT NOT NULL,
  mac TEXT NOT NULL,
  signal INTEGER NOT NULL,
  quality INTEGER NOT NULL,
  interface TEXT NOT NULL,
  captured_at TIMESTAMPTZ NOT NULL
);`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ERROR creating rssi_summary table: %w", err)
	}
	return nil
}

// SaveSummary replaces the stored summary with summary in one transaction.
// Rows keep the export order: top entries first, then bottom entries.
func (r *Repository) SaveSummary(ctx context.Context, summary storage.Summary) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", export.ErrSinkUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM rssi_summary`); err != nil {
		return fmt.Errorf("clear summary: %w", err)
	}

	capturedAt := summary.CapturedAt.UTC()
	rows := make([][]any, 0, len(summary.Top)+len(summary.Bottom))
	for _, rec := range summary.Top {
		rows = append(rows, summaryRow(len(rows), sectionTop, rec, summary.Interface, capturedAt))
	}
	for _, rec := range summary.Bottom {
		rows = append(rows, summaryRow(len(rows), sectionBottom, rec, summary.Interface, capturedAt))
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"rssi_summary"}, summaryColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy summary rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit summary: %w", err)
	}
	return nil
}

// LoadSummary reads back the stored summary.
func (r *Repository) LoadSummary(ctx context.Context) (storage.Summary, error) {
	const query = `
SELECT section, address, signal, quality, interface, captured_at
FROM rssi_summary
ORDER BY position`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return storage.Summary{}, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var summary storage.Summary
	for rows.Next() {
		var (
			section string
			address int64
			rec     scanning.ScanRecord
		)
		if err := rows.Scan(&section, &address, &rec.Signal, &rec.Quality, &summary.Interface, &summary.CapturedAt); err != nil {
			return storage.Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		rec.Address = uint64(address)
		if section == sectionTop {
			summary.Top = append(summary.Top, rec)
		} else {
			summary.Bottom = append(summary.Bottom, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return storage.Summary{}, fmt.Errorf("read summary rows: %w", err)
	}
	return summary, nil
}

// Close releases the underlying pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// NewDB opens a pgx pool with tuned defaults.
func NewDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	// One summary write per scan; a small pool is plenty.
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping db: %v", export.ErrSinkUnavailable, err)
	}
	return pool, nil
}

func summaryRow(pos int, section string, rec scanning.ScanRecord, iface string, at time.Time) []any {
	return []any{
		int32(pos),
		section,
		int64(rec.Address),
		scanning.FormatAddress(rec.Address),
		int32(rec.Signal),
		int32(rec.Quality),
		iface,
		at,
	}
}
