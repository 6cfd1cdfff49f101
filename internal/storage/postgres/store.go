package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rateScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS rate_quotes (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	pool TEXT NOT NULL,
	asset TEXT NOT NULL,
	utilization NUMERIC(78,0) NOT NULL,
	rate_per_second NUMERIC(78,0) NOT NULL,
	full_utilization_rate NUMERIC(78,0) NOT NULL,
	last_full_utilization_rate NUMERIC(78,0) NOT NULL,
	reference_rate NUMERIC(78,0),
	last_updated BIGINT NOT NULL,
	time_delta BIGINT NOT NULL,
	borrow_apr DOUBLE PRECISION NOT NULL,
	supply_apy DOUBLE PRECISION NOT NULL,
	borrow_apr_text TEXT NOT NULL DEFAULT '',
	supply_apy_text TEXT NOT NULL DEFAULT '',
	quoted_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS rate_quotes_asset_quoted_at
	ON rate_quotes (pool, asset, quoted_at DESC);
`

// Store provides Postgres persistence for rate quotes.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool for dsn.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the rate_quotes table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutQuoteBatch inserts quotes in a single round trip.
func (s *Store) PutQuoteBatch(ctx context.Context, quotes []model.QuoteRecord) error {
	if len(quotes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(`
			INSERT INTO rate_quotes (
				name, pool, asset, utilization, rate_per_second, full_utilization_rate,
				last_full_utilization_rate, reference_rate, last_updated, time_delta,
				borrow_apr, supply_apy, borrow_apr_text, supply_apy_text, quoted_at
			) VALUES (
				$1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric,
				$7::text::numeric, $8::text::numeric, $9, $10, $11, $12, $13, $14, $15
			)
		`,
			q.Name,
			q.Pool,
			q.Asset,
			q.Utilization,
			q.RatePerSecond,
			q.FullUtilizationRate,
			q.LastFullUtilizationRate,
			q.ReferenceRate,
			int64(q.LastUpdated),
			int64(q.TimeDelta),
			q.BorrowAPR,
			q.SupplyAPY,
			q.BorrowAPRText,
			q.SupplyAPYText,
			q.QuotedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range quotes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
	}
	return nil
}

// LatestQuote returns the most recent quote for an asset.
func (s *Store) LatestQuote(ctx context.Context, ref model.AssetRef) (model.QuoteRecord, bool, error) {
	if ref.Pool == "" || ref.Asset == "" {
		return model.QuoteRecord{}, false, fmt.Errorf("pool and asset required")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT name, pool, asset, utilization::text, rate_per_second::text,
			full_utilization_rate::text, last_full_utilization_rate::text, reference_rate::text,
			last_updated, time_delta, borrow_apr, supply_apy, borrow_apr_text, supply_apy_text, quoted_at
		FROM rate_quotes
		WHERE pool = $1 AND asset = $2
		ORDER BY quoted_at DESC, id DESC
		LIMIT 1
	`, ref.Pool, ref.Asset)

	var (
		rec         model.QuoteRecord
		lastUpdated int64
		timeDelta   int64
		quotedAt    time.Time
	)
	err := row.Scan(
		&rec.Name,
		&rec.Pool,
		&rec.Asset,
		&rec.Utilization,
		&rec.RatePerSecond,
		&rec.FullUtilizationRate,
		&rec.LastFullUtilizationRate,
		&rec.ReferenceRate,
		&lastUpdated,
		&timeDelta,
		&rec.BorrowAPR,
		&rec.SupplyAPY,
		&rec.BorrowAPRText,
		&rec.SupplyAPYText,
		&quotedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.QuoteRecord{}, false, nil
		}
		return model.QuoteRecord{}, false, err
	}
	rec.LastUpdated = uint64(lastUpdated)
	rec.TimeDelta = uint64(timeDelta)
	rec.QuotedAt = quotedAt.UTC()
	return rec, true, nil
}
