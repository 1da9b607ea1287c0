package models

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ConfirmationState distinguishes a transaction that is genuinely waiting
// for confirmations from one whose lookup failed. A timed-out or errored
// explorer call yields StateUnknown, never StatePending.
type ConfirmationState string

const (
	StateConfirmed ConfirmationState = "confirmed"
	StatePending   ConfirmationState = "pending"
	StateUnknown   ConfirmationState = "unknown"
)

// ConfirmationResult is the outcome of a confirmation check. Amount, fee
// and addresses are best-effort: a pending transaction carries whatever
// partial data the explorer returned.
type ConfirmationResult struct {
	State         ConfirmationState `json:"state"`
	Confirmed     bool              `json:"confirmed"`
	Confirmations int64             `json:"confirmations"`
	// Required is the minimum confirmation policy the check was run against.
	Required    int             `json:"required"`
	BlockHeight uint64          `json:"block_height,omitempty"`
	BlockTime   int64           `json:"block_time,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	Fee         decimal.Decimal `json:"fee,omitempty"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	// Raw is the upstream explorer payload, kept for auditing.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// BlockchainService checks transaction finality against per-chain explorer
// or RPC endpoints. IsTransactionConfirmed never returns an error for a
// not-yet-confirmed transaction; minConfirmations <= 0 selects the chain's
// default policy. Lookup failures come back as a StateUnknown result.
type BlockchainService interface {
	IsTransactionConfirmed(ctx context.Context, chain Chain, txHash string, minConfirmations int) (*ConfirmationResult, error)
}
