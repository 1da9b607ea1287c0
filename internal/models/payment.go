package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTTL is how long a quoted payment request stays payable.
const PaymentTTL = 24 * time.Hour

// QuoteBuffer is the multiplier applied to the USD->crypto conversion to
// absorb price drift between quote and payment (5%).
var QuoteBuffer = decimal.RequireFromString("1.05")

// PaymentStatus is the lifecycle state of a subscription purchase attempt.
// A payment transitions pending->completed at most once; an unpaid payment
// transitions pending->expired after PaymentTTL.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is one subscription purchase attempt quoted in crypto.
type Payment struct {
	ID uint `json:"id" gorm:"primaryKey"`
	// ReferenceID is a random identifier handed to the client with the quote.
	ReferenceID string `json:"reference_id" gorm:"column:reference_id;size:64;uniqueIndex;not null"`
	UserID      uint   `json:"user_id" gorm:"column:user_id;index;not null"`
	PlanID      string `json:"plan_id" gorm:"column:plan_id;size:64;index;not null"`
	Chain       Chain  `json:"chain" gorm:"column:chain;size:16;index;not null"`
	WalletID    uint   `json:"wallet_id" gorm:"column:wallet_id;not null"`
	// WalletAddress is the deposit address the quote was issued for.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;size:128;not null"`
	// AmountUSD is the plan price; AmountCrypto is the quoted amount at the
	// cached rate including the drift buffer. Decimal columns, never floats.
	AmountUSD    decimal.Decimal `json:"amount_usd" gorm:"column:amount_usd;type:numeric(18,2);not null"`
	AmountCrypto decimal.Decimal `json:"amount_crypto" gorm:"column:amount_crypto;type:numeric(36,18);not null"`
	Status       PaymentStatus   `json:"status" gorm:"column:status;size:16;index;not null"`
	// TxHash is set when the payment completes.
	TxHash      string     `json:"tx_hash,omitempty" gorm:"column:tx_hash;size:128"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"column:expires_at;index;not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Expired reports whether the payment's quote window has lapsed at t.
func (p *Payment) Expired(t time.Time) bool {
	return t.After(p.ExpiresAt)
}

// Plan is a purchasable subscription plan.
type Plan struct {
	// ID is the plan code clients reference, e.g. "pro-monthly".
	ID       string          `json:"id" gorm:"primaryKey;size:64"`
	Name     string          `json:"name" gorm:"column:name;size:128;not null"`
	PriceUSD decimal.Decimal `json:"price_usd" gorm:"column:price_usd;type:numeric(18,2);not null"`
	// BillingIntervalDays is the subscription period granted per payment.
	BillingIntervalDays int       `json:"billing_interval_days" gorm:"column:billing_interval_days;not null;default:30"`
	Active              bool      `json:"active" gorm:"column:active;default:true"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SubscriptionStatus is the state of a user's subscription to a plan.
type SubscriptionStatus string

const (
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusExpired   SubscriptionStatus = "expired"
	SubStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription holds one active record per (user, plan). A repeat payment
// pushes EndsAt forward by the plan's billing interval.
type Subscription struct {
	ID        uint               `json:"id" gorm:"primaryKey"`
	UserID    uint               `json:"user_id" gorm:"column:user_id;uniqueIndex:idx_sub_user_plan;not null"`
	PlanID    string             `json:"plan_id" gorm:"column:plan_id;size:64;uniqueIndex:idx_sub_user_plan;not null"`
	Status    SubscriptionStatus `json:"status" gorm:"column:status;size:16;index;not null"`
	StartsAt  time.Time          `json:"starts_at" gorm:"column:starts_at;not null"`
	EndsAt    time.Time          `json:"ends_at" gorm:"column:ends_at;index;not null"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ExchangeRate is the latest USD price for one chain's native asset.
// Rows are upserted per chain on refresh; no history is retained.
type ExchangeRate struct {
	Chain    Chain           `json:"chain" gorm:"primaryKey;size:16"`
	USDPrice decimal.Decimal `json:"usd_price" gorm:"column:usd_price;type:numeric(18,8);not null"`
	// FetchedAt is when the rate was obtained from the upstream source.
	FetchedAt time.Time `json:"fetched_at" gorm:"column:fetched_at;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuoteCrypto converts a USD price into the crypto amount to request,
// applying the drift buffer: usd / rate * 1.05, 8 decimal places.
func QuoteCrypto(priceUSD, usdRate decimal.Decimal) decimal.Decimal {
	return priceUSD.Div(usdRate).Mul(QuoteBuffer).Round(8)
}
