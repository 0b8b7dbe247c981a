package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
)

const eventsPayload = `[
  {"version":"900","sequence_number":"12","type":"0x1::trade::BuyEvent",
   "data":{"user":"0xabc","ticker":"0x54534c4100000000","usdc_amount":"1500000","asset_amount":"500000000000000000","price":"3000000000000000000","timestamp":"1724500000"}},
  {"version":"850","sequence_number":"9","type":"0x1::trade::BuyEvent",
   "data":{"user":"0xabc","ticker":"0x55534443","usdc_amount":"2000000","asset_amount":"2000000","price":"1000000000000000000","timestamp":"1724400000"}}
]`

func TestFetchTrades_NormalizesAndPinsOrder(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(eventsPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "0xcontract")
	events, err := c.FetchTrades(context.Background(), model.KindBuy, 5)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "/v1/accounts/0xcontract/events/buy_events?limit=5", gotPath)

	// node returned most-recent-first; client re-pins chronological order
	assert.Equal(t, "9", events[0].SequenceNumber)
	assert.Equal(t, "12", events[1].SequenceNumber)

	first := events[0]
	assert.Equal(t, model.KindBuy, first.Kind)
	assert.Equal(t, "0xabc", first.Wallet)
	assert.Equal(t, "USDC", first.Ticker)
	assert.Equal(t, "0x55534443", first.RawTicker)
	assert.Equal(t, "2000000", first.UsdcAmount)
	assert.Equal(t, "850", first.LedgerVersion)
	assert.False(t, first.OccurredAt.IsZero())

	// trailing-null ticker padding stripped
	assert.Equal(t, "TSLA", events[1].Ticker)
}

func TestFetchTrades_SellHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/events/sell_events")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "0xcontract")
	events, err := c.FetchTrades(context.Background(), model.KindSell, 3)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchTrades_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "0xcontract")
	_, err := c.FetchTrades(context.Background(), model.KindBuy, 5)
	assert.Error(t, err)
}

func TestSeqLess(t *testing.T) {
	assert.True(t, seqLess("9", "12"))
	assert.True(t, seqLess("99", "100"))
	assert.False(t, seqLess("100", "99"))
	assert.True(t, seqLess("0009", "12"))
	assert.False(t, seqLess("12", "12"))
	// wider than uint64
	assert.True(t, seqLess("18446744073709551616", "18446744073709551617"))
}
