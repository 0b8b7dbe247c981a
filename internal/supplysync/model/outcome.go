package model

import "time"

// MutationOutcome is the terminal result of one supply mutation (or of
// the auto-verify call that gates it). Never retried within a cycle,
// and a persisted event is never re-dispatched in a later cycle.
type MutationOutcome struct {
	TxHash       string `json:"tx_hash,omitempty"`
	Success      bool   `json:"success"`
	GasUsed      string `json:"gas_used,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type DispatchStatus string

const (
	DispatchMinted      DispatchStatus = "minted"
	DispatchBurned      DispatchStatus = "burned"
	DispatchUnsupported DispatchStatus = "unsupported_ticker"
	DispatchAbandoned   DispatchStatus = "verify_abandoned"
	DispatchFailed      DispatchStatus = "mutation_failed"
)

// DispatchOutcome pairs an event with what dispatch did to it. Published
// to the outcome topic so abandoned events stay operator-visible.
type DispatchOutcome struct {
	CycleID string          `json:"cycle_id"`
	Event   TradeEvent      `json:"event"`
	Status  DispatchStatus  `json:"status"`
	Outcome MutationOutcome `json:"outcome"`
	At      time.Time       `json:"at"`
}
