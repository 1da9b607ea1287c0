package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet represents a user's deposit wallet on one chain. There is at most
// one wallet per (user, chain); wallets are never deleted, only deactivated.
type Wallet struct {
	ID uint `json:"id" gorm:"primaryKey"`
	// UserID is the owning user. Together with Chain it forms the lazy
	// provisioning key: regenerating a wallet for the same pair is idempotent.
	UserID uint  `json:"user_id" gorm:"column:user_id;uniqueIndex:idx_wallet_user_chain;not null"`
	Chain  Chain `json:"chain" gorm:"column:chain;size:16;uniqueIndex:idx_wallet_user_chain;not null"`
	// Address is the public deposit address, unique across the system.
	Address   string `json:"address" gorm:"column:address;size:128;uniqueIndex;not null"`
	PublicKey string `json:"public_key" gorm:"column:public_key;size:256"`
	// EncryptedPrivateKey and EncryptedMnemonic are sealed before they ever
	// reach the repository. Plaintext key material is never stored.
	EncryptedPrivateKey string `json:"-" gorm:"column:encrypted_private_key;not null"`
	EncryptedMnemonic   string `json:"-" gorm:"column:encrypted_mnemonic;not null"`
	// Active indicates whether the wallet accepts new payment requests.
	Active bool `json:"active" gorm:"column:active;default:true"`
	// Balance is a cached on-chain balance, refreshed opportunistically.
	Balance   decimal.Decimal `json:"balance" gorm:"column:balance;type:numeric(36,18);default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TransactionStatus is the lifecycle state of an observed on-chain transaction.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusConfirmed TransactionStatus = "confirmed"
	TxStatusFailed    TransactionStatus = "failed"
)

// Transaction is one observed on-chain transaction. The hash is globally
// unique; a row is immutable once confirmed except for the confirmation
// count refresh while still pending.
type Transaction struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	TxHash string `json:"tx_hash" gorm:"column:tx_hash;size:128;uniqueIndex;not null"`
	UserID uint   `json:"user_id" gorm:"column:user_id;index"`
	// WalletID is the receiving wallet the transaction was verified against.
	WalletID uint  `json:"wallet_id" gorm:"column:wallet_id;index"`
	Chain    Chain `json:"chain" gorm:"column:chain;size:16;index;not null"`
	// PaymentID links the transaction to at most one payment.
	PaymentID     *uint             `json:"payment_id,omitempty" gorm:"column:payment_id;uniqueIndex"`
	Amount        decimal.Decimal   `json:"amount" gorm:"column:amount;type:numeric(36,18);default:0"`
	Fee           decimal.Decimal   `json:"fee" gorm:"column:fee;type:numeric(36,18);default:0"`
	Confirmations int64             `json:"confirmations" gorm:"column:confirmations;default:0"`
	BlockHeight   uint64            `json:"block_height,omitempty" gorm:"column:block_height"`
	BlockTime     int64             `json:"block_time,omitempty" gorm:"column:block_time"`
	FromAddress   string            `json:"from_address,omitempty" gorm:"column:from_address;size:128"`
	ToAddress     string            `json:"to_address,omitempty" gorm:"column:to_address;size:128"`
	Status        TransactionStatus `json:"status" gorm:"column:status;size:16;index;not null"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
