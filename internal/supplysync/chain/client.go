package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
	"github.com/liquidfi/supplysync/internal/supplysync/normalize"
)

// Client reads trade-creation events for the watched contract from the
// ledger node's REST API.
type Client struct {
	base     string
	contract string
	hc       *http.Client

	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
}

func NewClient(base, contract string) *Client {
	base = strings.TrimRight(base, "/")
	return &Client{
		base:     base,
		contract: contract,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "ledger-events",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).
					Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		}),
	}
}

// rawEvent mirrors the node's event envelope. All numeric fields arrive
// string-encoded because sequence numbers and amounts exceed 64 bits.
type rawEvent struct {
	Version        string   `json:"version"`
	SequenceNumber string   `json:"sequence_number"`
	Type           string   `json:"type"`
	Data           rawTrade `json:"data"`
}

type rawTrade struct {
	User        string `json:"user"`
	Ticker      string `json:"ticker"`
	UsdcAmount  string `json:"usdc_amount"`
	AssetAmount string `json:"asset_amount"`
	Price       string `json:"price"`
	Timestamp   string `json:"timestamp"` // unix seconds
}

// FetchTrades returns the trailing window of trade events of one kind,
// in ascending sequence-number order. The node already serves the handle
// chronologically, but the order is re-pinned here so a node that serves
// most-recent-first can't flip dispatch order.
func (c *Client) FetchTrades(ctx context.Context, kind model.TradeKind, limit int) ([]model.TradeEvent, error) {
	handle := "buy_events"
	if kind == model.KindSell {
		handle = "sell_events"
	}
	path := fmt.Sprintf("/v1/accounts/%s/events/%s?limit=%d", c.contract, handle, limit)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	v, err := c.cb.Execute(func() (any, error) {
		var raws []rawEvent
		if err := c.getJSON(ctx, path, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s events: %w", kind, err)
	}
	raws := v.([]rawEvent)

	events := make([]model.TradeEvent, 0, len(raws))
	for _, r := range raws {
		events = append(events, r.toEvent(kind))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return seqLess(events[i].SequenceNumber, events[j].SequenceNumber)
	})
	return events, nil
}

func (r rawEvent) toEvent(kind model.TradeKind) model.TradeEvent {
	ev := model.TradeEvent{
		SequenceNumber: r.SequenceNumber,
		Kind:           kind,
		Wallet:         r.Data.User,
		RawTicker:      r.Data.Ticker,
		Ticker:         normalize.DecodeTicker(r.Data.Ticker),
		UsdcAmount:     r.Data.UsdcAmount,
		AssetAmount:    r.Data.AssetAmount,
		Price:          r.Data.Price,
		LedgerVersion:  r.Version,
	}
	if sec, err := strconv.ParseInt(r.Data.Timestamp, 10, 64); err == nil {
		ev.OccurredAt = time.Unix(sec, 0).UTC()
	}
	return ev
}

// seqLess compares string-encoded unsigned integers of unbounded width.
func seqLess(a, b string) bool {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("node %s status=%d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
