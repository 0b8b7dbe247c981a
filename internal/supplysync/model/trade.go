package model

import "time"

type TradeKind string

const (
	KindBuy  TradeKind = "BUY"
	KindSell TradeKind = "SELL"
)

// TradeEvent is one buy/sell order creation as emitted by the ledger
// contract, after normalization. Amount fields keep the original
// unscaled integer form (string, unbounded width); scaling to a
// human-readable decimal happens only at log time.
type TradeEvent struct {
	SequenceNumber string    `json:"sequence_number"`
	Kind           TradeKind `json:"kind"`
	Wallet         string    `json:"wallet"`
	RawTicker      string    `json:"raw_ticker"`
	Ticker         string    `json:"ticker"`
	UsdcAmount     string    `json:"usdc_amount"`
	AssetAmount    string    `json:"asset_amount"`
	Price          string    `json:"price"`
	LedgerVersion  string    `json:"ledger_version"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e TradeEvent) Key() DedupKey {
	return DedupKey{Wallet: e.Wallet, Kind: e.Kind, SequenceNumber: e.SequenceNumber}
}

// DedupKey identifies a logical event. Sequence numbers are monotonic
// per account on the ledger, so (wallet, kind, seq) is unique even when
// the same trailing window is fetched twice.
type DedupKey struct {
	Wallet         string
	Kind           TradeKind
	SequenceNumber string
}

func (k DedupKey) String() string {
	return k.Wallet + ":" + string(k.Kind) + ":" + k.SequenceNumber
}
