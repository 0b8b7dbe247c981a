package model

import "time"

// ProcessedRecord is the persisted mirror of a TradeEvent. One row per
// DedupKey, written after the existence check passes; never updated or
// deleted by this service. Amounts stay in unscaled integer form so the
// row round-trips exactly.
type ProcessedRecord struct {
	ID             int64     `db:"id" json:"id"`
	Wallet         string    `db:"wallet" json:"wallet"`
	Kind           TradeKind `db:"kind" json:"kind"`
	SequenceNumber string    `db:"sequence_number" json:"sequence_number"`
	Ticker         string    `db:"ticker" json:"ticker"`
	UsdcAmount     string    `db:"usdc_amount" json:"usdc_amount"`
	AssetAmount    string    `db:"asset_amount" json:"asset_amount"`
	Price          string    `db:"price" json:"price"`
	LedgerVersion  string    `db:"ledger_version" json:"ledger_version"`
	OccurredAt     time.Time `db:"occurred_at" json:"occurred_at"`
	ProcessedAt    time.Time `db:"processed_at" json:"processed_at"`
}

func RecordOf(e TradeEvent, now time.Time) ProcessedRecord {
	return ProcessedRecord{
		Wallet:         e.Wallet,
		Kind:           e.Kind,
		SequenceNumber: e.SequenceNumber,
		Ticker:         e.Ticker,
		UsdcAmount:     e.UsdcAmount,
		AssetAmount:    e.AssetAmount,
		Price:          e.Price,
		LedgerVersion:  e.LedgerVersion,
		OccurredAt:     e.OccurredAt,
		ProcessedAt:    now,
	}
}

func (r ProcessedRecord) Key() DedupKey {
	return DedupKey{Wallet: r.Wallet, Kind: r.Kind, SequenceNumber: r.SequenceNumber}
}
