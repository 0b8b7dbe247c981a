package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/liquidfi/supplysync/internal/supplysync/dedup"
	"github.com/liquidfi/supplysync/internal/supplysync/model"
	"github.com/liquidfi/supplysync/internal/supplysync/store"
	"github.com/liquidfi/supplysync/internal/supplysync/token"
)

// EventSource returns the trailing window of trade events of one kind,
// in ascending sequence-number order.
type EventSource interface {
	FetchTrades(ctx context.Context, kind model.TradeKind, limit int) ([]model.TradeEvent, error)
}

// VerificationGate reads and sets per-wallet KYC clearance.
type VerificationGate interface {
	IsVerified(ctx context.Context, wallet string) (bool, error)
	SetVerified(ctx context.Context, wallet string, verified bool) (model.MutationOutcome, error)
}

// SupplyMutator submits supply mutations. Amounts are unscaled integer
// strings.
type SupplyMutator interface {
	Mint(ctx context.Context, wallet string, class token.Class, amount string) (model.MutationOutcome, error)
	Burn(ctx context.Context, wallet string, class token.Class, amount string) (model.MutationOutcome, error)
}

// OutcomePublisher receives every dispatch outcome, including abandoned
// ones. Best-effort: publish errors never fail a cycle.
type OutcomePublisher interface {
	Publish(ctx context.Context, o model.DispatchOutcome) error
}

type Params struct {
	Source  EventSource
	Gate    VerificationGate
	Mutator SupplyMutator
	Records store.RecordStore

	Hot       dedup.Cache      // optional
	Publisher OutcomePublisher // optional

	PageSize int
}

// Engine runs one reconciliation cycle at a time: fetch both kinds,
// filter out already-processed events, persist the rest, then dispatch
// the verification-gated supply mutation for each persisted event.
type Engine struct {
	source  EventSource
	gate    VerificationGate
	mutator SupplyMutator
	records store.RecordStore
	hot     dedup.Cache
	pub     OutcomePublisher

	pageSize int
	now      func() time.Time
}

func New(p Params) (*Engine, error) {
	if p.Source == nil || p.Gate == nil || p.Mutator == nil || p.Records == nil {
		return nil, errors.New("engine: source, gate, mutator and records are required")
	}
	if p.PageSize <= 0 {
		p.PageSize = 5
	}
	if p.Hot == nil {
		p.Hot = dedup.None{}
	}
	return &Engine{
		source:   p.Source,
		gate:     p.Gate,
		mutator:  p.Mutator,
		records:  p.Records,
		hot:      p.Hot,
		pub:      p.Publisher,
		pageSize: p.PageSize,
		now:      time.Now,
	}, nil
}

// CycleResult carries per-cycle tallies back to the caller; there is no
// mutable state shared across cycles.
type CycleResult struct {
	CycleID string

	Fetched          int
	Duplicates       int
	DedupCheckErrors int

	Persisted        int
	PersistErrors    int
	AlreadyProcessed int

	Minted             int
	Burned             int
	AutoVerified       int
	AutoVerifyFailures int
	Unsupported        int
	MutationFailures   int

	Duration time.Duration
}

// RunCycle executes one fetch→filter→persist→dispatch pass. A fetch
// error aborts the whole cycle (the next tick retries from scratch);
// everything after fetch is tallied per event and never aborts siblings.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	res := CycleResult{CycleID: uuid.NewString()}
	start := e.now()

	buys, err := e.source.FetchTrades(ctx, model.KindBuy, e.pageSize)
	if err != nil {
		return res, fmt.Errorf("fetch buys: %w", err)
	}
	sells, err := e.source.FetchTrades(ctx, model.KindSell, e.pageSize)
	if err != nil {
		return res, fmt.Errorf("fetch sells: %w", err)
	}
	res.Fetched = len(buys) + len(sells)

	newBuys := e.filterNew(ctx, buys, &res)
	newSells := e.filterNew(ctx, sells, &res)

	dispatchable := make([]model.TradeEvent, 0, len(newBuys)+len(newSells))
	dispatchable = append(dispatchable, e.persist(ctx, newBuys, &res)...)
	dispatchable = append(dispatchable, e.persist(ctx, newSells, &res)...)

	for _, ev := range dispatchable {
		e.dispatch(ctx, ev, &res)
	}

	res.Duration = e.now().Sub(start)
	log.Info().
		Str("cycle_id", res.CycleID).
		Int("fetched", res.Fetched).
		Int("duplicates", res.Duplicates).
		Int("persisted", res.Persisted).
		Int("minted", res.Minted).
		Int("burned", res.Burned).
		Int("unsupported", res.Unsupported).
		Int("auto_verify_failures", res.AutoVerifyFailures).
		Int("mutation_failures", res.MutationFailures).
		Dur("took", res.Duration).
		Msg("cycle complete")
	return res, nil
}

// filterNew keeps events not yet recorded, order preserved. A failed
// existence check counts the error and keeps the event: a duplicate
// processing attempt is cheaper than silently dropping a trade, and the
// insert uniqueness constraint still catches the duplicate.
func (e *Engine) filterNew(ctx context.Context, events []model.TradeEvent, res *CycleResult) []model.TradeEvent {
	fresh := make([]model.TradeEvent, 0, len(events))
	for _, ev := range events {
		key := ev.Key()
		if e.hot.Seen(key.String()) {
			res.Duplicates++
			continue
		}
		exists, err := e.records.Exists(ctx, key)
		if err != nil {
			res.DedupCheckErrors++
			log.Warn().Err(err).Stringer("key", key).Msg("existence check failed, treating event as new")
			fresh = append(fresh, ev)
			continue
		}
		if exists {
			res.Duplicates++
			e.hot.Add(key.String())
			continue
		}
		fresh = append(fresh, ev)
	}
	return fresh
}

// persist inserts one record per event, independently; the returned
// subset is what dispatch may act on. An event whose insert failed was
// never recorded, so the next cycle's filter retries it naturally —
// dispatching it now could double-mint on that retry. A uniqueness
// violation means another writer won the race: already processed, not
// dispatchable.
func (e *Engine) persist(ctx context.Context, events []model.TradeEvent, res *CycleResult) []model.TradeEvent {
	persisted := make([]model.TradeEvent, 0, len(events))
	for _, ev := range events {
		key := ev.Key()
		err := e.records.Insert(ctx, model.RecordOf(ev, e.now()))
		switch {
		case err == nil:
			res.Persisted++
			e.hot.Add(key.String())
			persisted = append(persisted, ev)
		case errors.Is(err, store.ErrAlreadyProcessed):
			res.AlreadyProcessed++
			e.hot.Add(key.String())
		default:
			res.PersistErrors++
			log.Error().Err(err).Stringer("key", key).Msg("persist failed, event retries next cycle")
		}
	}
	return persisted
}
