package http_api

import "github.com/ghostliai/cryptopay/internal/auth"

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	api := s.router.Group("/api/v1")

	user := api.Group("", s.identityMiddleware())
	{
		wallets := user.Group("", s.requirePermission(auth.PermWalletManage))
		{
			wallets.POST("/wallets/setup", s.setupWallets)
			wallets.GET("/wallets", s.getWallets)
			wallets.GET("/wallets/:id", s.getWallet)
			wallets.GET("/wallets/type/:chain", s.getWalletByChain)
			wallets.POST("/wallets/:id/deactivate", s.deactivateWallet)
		}

		payments := user.Group("", s.requirePermission(auth.PermPaymentUse))
		{
			payments.POST("/payment/request", s.createPaymentRequest)
			payments.POST("/payment/verify", s.verifyPayment)
			payments.GET("/payment/pending", s.getPendingPayments)
			payments.GET("/transactions", s.getTransactions)
			payments.GET("/transactions/:id", s.getTransaction)
		}

		user.POST("/exchange-rates/update", s.requirePermission(auth.PermRatesUpdate), s.updateExchangeRates)
	}

	api.POST("/webhook/payment-notification", s.webhookAuthMiddleware(), s.handlePaymentWebhook)
}
