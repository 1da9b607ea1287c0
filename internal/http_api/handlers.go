package http_api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/validation"
)

// PaymentRequestBody represents the JSON body for opening a payment request
type PaymentRequestBody struct {
	PlanID string `json:"planId" binding:"required"`
	Chain  string `json:"chain" binding:"required"`
}

// VerifyPaymentBody represents the JSON body for verifying a payment
type VerifyPaymentBody struct {
	TxHash   string `json:"transactionHash" binding:"required"`
	Chain    string `json:"chain" binding:"required"`
	WalletID uint   `json:"walletId" binding:"required"`
}

// PaymentResponse is the quote handed back for a payment request
type PaymentResponse struct {
	ReferenceID   string          `json:"referenceId"`
	PlanID        string          `json:"planId"`
	Chain         models.Chain    `json:"chain"`
	WalletAddress string          `json:"walletAddress"`
	AmountUSD     decimal.Decimal `json:"amountUsd"`
	AmountCrypto  decimal.Decimal `json:"amountCrypto"`
	Status        string          `json:"status"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

func paymentResponse(p *models.Payment) PaymentResponse {
	return PaymentResponse{
		ReferenceID:   p.ReferenceID,
		PlanID:        p.PlanID,
		Chain:         p.Chain,
		WalletAddress: p.WalletAddress,
		AmountUSD:     p.AmountUSD,
		AmountCrypto:  p.AmountCrypto,
		Status:        string(p.Status),
		ExpiresAt:     p.ExpiresAt,
	}
}

// respondError maps application errors to HTTP statuses with the shared
// error envelope.
func (s *HTTPServer) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, models.ErrWalletNotFound),
		errors.Is(err, models.ErrPaymentNotFound),
		errors.Is(err, models.ErrPlanNotFound),
		errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, models.ErrWalletInactive),
		errors.Is(err, models.ErrQuoteExpired),
		errors.Is(err, models.ErrTxAlreadyProcessed):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrRateUnavailable):
		status = http.StatusServiceUnavailable
		message = err.Error()
	default:
		s.logger.Error("Request failed", "error", err)
	}

	c.JSON(status, gin.H{"success": false, "error": message})
}

func (s *HTTPServer) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

// setupWallets is a handler for the /wallets/setup endpoint.
// It provisions one deposit wallet per supported chain for the caller.
func (s *HTTPServer) setupWallets(c *gin.Context) {
	wallets, err := s.gateway.EnsureUserWallets(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("Wallets provisioned", "user", userID(c), "count", len(wallets))
	c.JSON(http.StatusOK, gin.H{"success": true, "wallets": wallets})
}

// getWallets returns all wallets of the caller.
func (s *HTTPServer) getWallets(c *gin.Context) {
	wallets, err := s.gateway.GetUserWallets(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallets": wallets})
}

// getWallet returns one wallet by ID, scoped to the caller.
func (s *HTTPServer) getWallet(c *gin.Context) {
	walletID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		s.badRequest(c, "invalid wallet id")
		return
	}

	wallet, err := s.gateway.GetWallet(c.Request.Context(), userID(c), uint(walletID))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": wallet})
}

// getWalletByChain returns the caller's wallet for one chain.
func (s *HTTPServer) getWalletByChain(c *gin.Context) {
	chain, err := models.ParseChain(c.Param("chain"))
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	wallet, err := s.gateway.GetWalletByChain(c.Request.Context(), userID(c), chain)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": wallet})
}

// deactivateWallet stops a wallet from being usable for new payment requests.
func (s *HTTPServer) deactivateWallet(c *gin.Context) {
	walletID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		s.badRequest(c, "invalid wallet id")
		return
	}

	if err := s.gateway.DeactivateWallet(c.Request.Context(), userID(c), uint(walletID)); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("Wallet deactivated", "user", userID(c), "wallet", walletID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "wallet deactivated"})
}

// createPaymentRequest quotes a plan in crypto and opens a pending payment.
func (s *HTTPServer) createPaymentRequest(c *gin.Context) {
	var req PaymentRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	chain, err := models.ParseChain(req.Chain)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	payment, err := s.gateway.CreatePaymentRequest(c.Request.Context(), userID(c), req.PlanID, chain)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "payment": paymentResponse(payment)})
}

// verifyPayment checks a client-submitted transaction hash against the chain.
func (s *HTTPServer) verifyPayment(c *gin.Context) {
	var req VerifyPaymentBody
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	chain, err := models.ParseChain(req.Chain)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	if err := validation.ValidateTxHash(chain, req.TxHash); err != nil {
		s.badRequest(c, "invalid transaction hash: "+err.Error())
		return
	}

	result, err := s.gateway.VerifyPayment(c.Request.Context(), userID(c), req.TxHash, chain, req.WalletID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// getPendingPayments lists the caller's open payment requests.
func (s *HTTPServer) getPendingPayments(c *gin.Context) {
	payments, err := s.gateway.GetPendingPayments(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payments": out})
}

// getTransactions lists the caller's observed transactions.
func (s *HTTPServer) getTransactions(c *gin.Context) {
	txs, err := s.gateway.GetUserTransactions(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs})
}

// getTransaction returns one transaction by ID, scoped to the caller.
func (s *HTTPServer) getTransaction(c *gin.Context) {
	txID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		s.badRequest(c, "invalid transaction id")
		return
	}

	tx, err := s.gateway.GetTransaction(c.Request.Context(), userID(c), uint(txID))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": tx})
}

// updateExchangeRates refreshes the cached USD rates from the upstream source.
func (s *HTTPServer) updateExchangeRates(c *gin.Context) {
	if err := s.gateway.UpdateExchangeRates(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "exchange rates updated"})
}

// handlePaymentWebhook processes a payment monitor callback.
func (s *HTTPServer) handlePaymentWebhook(c *gin.Context) {
	var notif models.WebhookNotification
	if err := c.ShouldBindJSON(&notif); err != nil {
		s.badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	chain, err := models.ParseChain(notif.Chain)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	if err := validation.ValidateTxHash(chain, notif.TransactionHash); err != nil {
		s.badRequest(c, "invalid transaction hash: "+err.Error())
		return
	}

	result, err := s.gateway.HandlePaymentWebhook(c.Request.Context(), &notif)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}
