package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
)

const uniqueViolation = "23505"

type Postgres struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects using dsn, or the PG_DSN environment variable when dsn
// is empty.
func Open(dsn string, timeout time.Duration) (*Postgres, error) {
	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
	}
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty (set postgres.dsn or PG_DSN)")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)

	return &Postgres{db: db, timeout: timeout}, nil
}

// NewPostgres wraps an existing connection; used by tests.
func NewPostgres(db *sqlx.DB, timeout time.Duration) *Postgres {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Postgres{db: db, timeout: timeout}
}

func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.db.PingContext(ctx)
}

// EnsureSchema bootstraps the table. The UNIQUE constraint is the real
// idempotency boundary; Exists is only a cheap pre-filter.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS processed_trades (
  id              bigserial PRIMARY KEY,
  wallet          text        NOT NULL,
  kind            text        NOT NULL,
  sequence_number text        NOT NULL,
  ticker          text        NOT NULL,
  usdc_amount     text        NOT NULL,
  asset_amount    text        NOT NULL,
  price           text        NOT NULL,
  ledger_version  text        NOT NULL,
  occurred_at     timestamptz,
  processed_at    timestamptz NOT NULL DEFAULT now(),
  UNIQUE (wallet, kind, sequence_number)
);
CREATE INDEX IF NOT EXISTS idx_processed_trades_wallet ON processed_trades(wallet);
`
	_, err := p.db.ExecContext(ctx, ddl)
	return err
}

func (p *Postgres) Exists(ctx context.Context, key model.DedupKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const q = `SELECT EXISTS (
  SELECT 1 FROM processed_trades WHERE wallet = $1 AND kind = $2 AND sequence_number = $3
)`
	var exists bool
	if err := p.db.GetContext(ctx, &exists, q, key.Wallet, string(key.Kind), key.SequenceNumber); err != nil {
		return false, fmt.Errorf("existence check for %s: %w", key, err)
	}
	return exists, nil
}

func (p *Postgres) Insert(ctx context.Context, rec model.ProcessedRecord) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const q = `INSERT INTO processed_trades
  (wallet, kind, sequence_number, ticker, usdc_amount, asset_amount, price, ledger_version, occurred_at, processed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := p.db.ExecContext(ctx, q,
		rec.Wallet, string(rec.Kind), rec.SequenceNumber, rec.Ticker,
		rec.UsdcAmount, rec.AssetAmount, rec.Price, rec.LedgerVersion,
		rec.OccurredAt, rec.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("insert record %s: %w", rec.Key(), err)
	}
	return nil
}
