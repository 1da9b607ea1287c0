package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the persistence boundary. Single-row getters return
// ErrNotFound (possibly wrapped) when no row matches.
type Repository interface {
	// Wallets
	AddWallet(ctx context.Context, wallet *Wallet) error
	GetWalletByID(ctx context.Context, id uint) (*Wallet, error)
	GetWalletByUserAndChain(ctx context.Context, userID uint, chain Chain) (*Wallet, error)
	GetWalletByAddress(ctx context.Context, address string) (*Wallet, error)
	GetWalletsByUser(ctx context.Context, userID uint) ([]*Wallet, error)
	SetWalletActive(ctx context.Context, id uint, active bool) error
	UpdateWalletBalance(ctx context.Context, id uint, balance decimal.Decimal) error

	// Transactions
	AddTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByHash(ctx context.Context, txHash string) (*Transaction, error)
	GetTransactionByID(ctx context.Context, id uint) (*Transaction, error)
	GetTransactionsByUser(ctx context.Context, userID uint) ([]*Transaction, error)
	GetPendingTransactions(ctx context.Context) ([]*Transaction, error)
	UpdateTransactionConfirmations(ctx context.Context, id uint, confirmations int64, status TransactionStatus) error
	LinkTransactionPayment(ctx context.Context, txID, paymentID uint) error

	// Payments
	AddPayment(ctx context.Context, payment *Payment) error
	GetPaymentByReference(ctx context.Context, referenceID string) (*Payment, error)
	GetLatestPendingPayment(ctx context.Context, userID uint, chain Chain) (*Payment, error)
	GetPendingPaymentsByUser(ctx context.Context, userID uint) ([]*Payment, error)
	CompletePayment(ctx context.Context, paymentID uint, txHash string, completedAt time.Time) error
	MarkPaymentFailed(ctx context.Context, paymentID uint) error
	ExpirePaymentsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Plans and subscriptions
	GetPlan(ctx context.Context, planID string) (*Plan, error)
	GetActiveSubscription(ctx context.Context, userID uint, planID string) (*Subscription, error)
	CreateSubscription(ctx context.Context, sub *Subscription) error
	ExtendSubscription(ctx context.Context, id uint, newEnd time.Time) error

	// Exchange rates
	UpsertExchangeRates(ctx context.Context, rates []*ExchangeRate) error
	GetExchangeRate(ctx context.Context, chain Chain) (*ExchangeRate, error)

	// App locks, used to coordinate background sweeps between instances
	TryAcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error
}
