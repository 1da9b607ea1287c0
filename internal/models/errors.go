package models

import "errors"

// Typed business failures. Handlers map these to 4xx responses; anything
// else surfaces as a 500 with the wrapped cause logged.
var (
	ErrNotFound           = errors.New("record not found")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrWalletInactive     = errors.New("wallet is deactivated")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrRateUnavailable    = errors.New("no exchange rate available for chain")
	ErrPaymentNotFound    = errors.New("no pending payment found")
	ErrQuoteExpired       = errors.New("payment quote has expired")
	ErrTxAlreadyProcessed = errors.New("transaction already processed")
)
