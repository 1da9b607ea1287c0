package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NotificationService delivers operator notifications. Implementations are
// fire-and-forget: delivery failures are logged, never propagated.
type NotificationService interface {
	SendPaymentNotification(notification *PaymentNotification)
}

// PaymentNotification describes a completed crypto payment.
type PaymentNotification struct {
	UserID      uint            `json:"user_id"`
	PlanID      string          `json:"plan_id"`
	Chain       Chain           `json:"chain"`
	TxHash      string          `json:"tx_hash"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID string          `json:"reference_id"`
}

func (n *PaymentNotification) String() string {
	return fmt.Sprintf("Payment completed: user %d, plan %s, %s %s, tx %s (ref %s)",
		n.UserID, n.PlanID, n.Amount.String(), n.Chain.Symbol(), n.TxHash, n.ReferenceID)
}
