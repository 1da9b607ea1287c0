// Package notificator delivers operator notifications about completed
// payments. Delivery is best-effort: failures are logged, never returned.
package notificator

import (
	"runtime/debug"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif}
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (n *Notificator) SendPaymentNotification(notification *models.PaymentNotification) {
	if n.TelegramNotificator == nil {
		n.logger.Debug("No notification channel configured, dropping: ", notification.String())
		return
	}
	n.safeCall(func() { n.TelegramNotificator.SendNotification(notification.String()) }, "telegramNotification")
}
