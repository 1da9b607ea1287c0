package models

import "context"

// VerificationResult is what payment verification reports back to callers.
type VerificationResult struct {
	Verified      bool              `json:"verified"`
	Status        TransactionStatus `json:"status"`
	State         ConfirmationState `json:"state"`
	Confirmations int64             `json:"confirmations"`
	Message       string            `json:"message"`
}

// WebhookNotification is the payload delivered by an external payment
// monitor. Amounts are decimal strings on the wire.
type WebhookNotification struct {
	TransactionHash string `json:"transactionHash" binding:"required"`
	Chain           string `json:"chain" binding:"required"`
	WalletAddress   string `json:"walletAddress" binding:"required"`
	Amount          string `json:"amount"`
	Confirmations   int64  `json:"confirmations"`
	BlockHeight     uint64 `json:"blockHeight,omitempty"`
	BlockTime       int64  `json:"blockTime,omitempty"`
}

// APIServer is the outward-facing HTTP surface.
type APIServer interface {
	Start()
	Shutdown() error
}

// PaymentGateway is the application core consumed by the HTTP layer.
type PaymentGateway interface {
	// Start launches the background sweeps and blocks until ctx is done.
	Start(ctx context.Context)

	// EnsureUserWallets provisions one wallet per supported chain for the
	// user, continuing past per-chain failures.
	EnsureUserWallets(ctx context.Context, userID uint) ([]*Wallet, error)
	GetUserWallets(ctx context.Context, userID uint) ([]*Wallet, error)
	GetWallet(ctx context.Context, userID, walletID uint) (*Wallet, error)
	GetWalletByChain(ctx context.Context, userID uint, chain Chain) (*Wallet, error)
	DeactivateWallet(ctx context.Context, userID, walletID uint) error

	CreatePaymentRequest(ctx context.Context, userID uint, planID string, chain Chain) (*Payment, error)
	VerifyPayment(ctx context.Context, userID uint, txHash string, chain Chain, walletID uint) (*VerificationResult, error)
	HandlePaymentWebhook(ctx context.Context, notif *WebhookNotification) (*VerificationResult, error)
	GetPendingPayments(ctx context.Context, userID uint) ([]*Payment, error)

	GetUserTransactions(ctx context.Context, userID uint) ([]*Transaction, error)
	GetTransaction(ctx context.Context, userID, txID uint) (*Transaction, error)

	UpdateExchangeRates(ctx context.Context) error
}
