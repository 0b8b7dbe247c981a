package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
	"github.com/liquidfi/supplysync/internal/supplysync/normalize"
	"github.com/liquidfi/supplysync/internal/supplysync/token"
)

// dispatch runs the per-event state machine: check verification (a
// check error fails closed — an unauthorized mint is costlier than a
// missed one), auto-verify at most once, map the ticker against the
// closed set, then submit the mint or burn. Events run sequentially in
// fetch order so a second event for the same wallet sees the effect of
// the first one's auto-verify.
func (e *Engine) dispatch(ctx context.Context, ev model.TradeEvent, res *CycleResult) {
	key := ev.Key()

	verified, err := e.gate.IsVerified(ctx, ev.Wallet)
	if err != nil {
		log.Warn().Err(err).Str("wallet", ev.Wallet).Msg("verification check failed, treating wallet as unverified")
		verified = false
	}
	if !verified {
		out, err := e.gate.SetVerified(ctx, ev.Wallet, true)
		if err != nil || !out.Success {
			res.AutoVerifyFailures++
			msg := out.ErrorMessage
			if err != nil {
				msg = err.Error()
			}
			if msg == "" {
				msg = "auto-verify failed"
			}
			log.Error().Stringer("key", key).Str("wallet", ev.Wallet).Str("reason", msg).
				Msg("auto-verify failed, mutation abandoned")
			e.publish(ctx, ev, res.CycleID, model.DispatchAbandoned,
				model.MutationOutcome{TxHash: out.TxHash, ErrorMessage: msg})
			return
		}
		res.AutoVerified++
		log.Info().Str("wallet", ev.Wallet).Str("tx", out.TxHash).Msg("wallet auto-verified")
	}

	class, ok := token.Resolve(ev.Ticker)
	if !ok {
		res.Unsupported++
		log.Warn().Stringer("key", key).Str("ticker", ev.Ticker).Msg("unsupported ticker, no mutation")
		e.publish(ctx, ev, res.CycleID, model.DispatchUnsupported,
			model.MutationOutcome{ErrorMessage: "unsupported ticker: " + ev.Ticker})
		return
	}

	var out model.MutationOutcome
	status := model.DispatchMinted
	if ev.Kind == model.KindBuy {
		out, err = e.mutator.Mint(ctx, ev.Wallet, class, ev.AssetAmount)
	} else {
		status = model.DispatchBurned
		out, err = e.mutator.Burn(ctx, ev.Wallet, class, ev.AssetAmount)
	}
	if err != nil {
		out = model.MutationOutcome{ErrorMessage: err.Error()}
	}
	if !out.Success {
		res.MutationFailures++
		log.Error().Stringer("key", key).Str("symbol", class.Symbol()).
			Str("reason", out.ErrorMessage).Msg("supply mutation failed")
		e.publish(ctx, ev, res.CycleID, model.DispatchFailed, out)
		return
	}

	if ev.Kind == model.KindBuy {
		res.Minted++
	} else {
		res.Burned++
	}
	log.Info().Stringer("key", key).
		Str("symbol", class.Symbol()).
		Str("amount", normalize.ScaleAmount(ev.AssetAmount, normalize.AssetDecimals)).
		Str("usdc", normalize.ScaleAmount(ev.UsdcAmount, normalize.QuoteDecimals)).
		Str("tx", out.TxHash).
		Msg(string(status))

	e.publish(ctx, ev, res.CycleID, status, out)
}

func (e *Engine) publish(ctx context.Context, ev model.TradeEvent, cycleID string, status model.DispatchStatus, out model.MutationOutcome) {
	if e.pub == nil {
		return
	}
	msg := model.DispatchOutcome{
		CycleID: cycleID,
		Event:   ev,
		Status:  status,
		Outcome: out,
		At:      e.now(),
	}
	if err := e.pub.Publish(ctx, msg); err != nil {
		log.Warn().Err(err).Stringer("key", ev.Key()).Msg("outcome publish failed")
	}
}
