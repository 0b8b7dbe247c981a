package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "pgx"), time.Second), mock
}

func sampleRecord() model.ProcessedRecord {
	return model.ProcessedRecord{
		Wallet:         "0xabc",
		Kind:           model.KindBuy,
		SequenceNumber: "12",
		Ticker:         "TSLA",
		UsdcAmount:     "1500000",
		AssetAmount:    "500000000000000000",
		Price:          "3000000000000000000",
		LedgerVersion:  "900",
		OccurredAt:     time.Unix(1724500000, 0).UTC(),
		ProcessedAt:    time.Unix(1724500100, 0).UTC(),
	}
}

func TestExists(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0xabc", "BUY", "12").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := p.Exists(context.Background(), sampleRecord().Key())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists_ErrorSurfaces(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(assert.AnError)

	_, err := p.Exists(context.Background(), sampleRecord().Key())
	assert.Error(t, err)
}

func TestInsert_StoresUnscaledAmounts(t *testing.T) {
	p, mock := newMockStore(t)
	rec := sampleRecord()

	mock.ExpectExec("INSERT INTO processed_trades").
		WithArgs(rec.Wallet, "BUY", rec.SequenceNumber, rec.Ticker,
			"1500000", "500000000000000000", "3000000000000000000",
			rec.LedgerVersion, rec.OccurredAt, rec.ProcessedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, p.Insert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_UniqueViolationIsAlreadyProcessed(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO processed_trades").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := p.Insert(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestInsert_OtherErrorsPassThrough(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO processed_trades").
		WillReturnError(&pgconn.PgError{Code: "53300"})

	err := p.Insert(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyProcessed)
}
