package http_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

// stubGateway returns canned values and records the arguments it saw.
type stubGateway struct {
	wallets      []*models.Wallet
	wallet       *models.Wallet
	payment      *models.Payment
	verification *models.VerificationResult
	err          error

	lastUserID uint
	lastTxHash string
}

func (s *stubGateway) Start(ctx context.Context) {}

func (s *stubGateway) EnsureUserWallets(_ context.Context, userID uint) ([]*models.Wallet, error) {
	s.lastUserID = userID
	return s.wallets, s.err
}

func (s *stubGateway) GetUserWallets(_ context.Context, userID uint) ([]*models.Wallet, error) {
	s.lastUserID = userID
	return s.wallets, s.err
}

func (s *stubGateway) GetWallet(_ context.Context, userID, walletID uint) (*models.Wallet, error) {
	s.lastUserID = userID
	if s.wallet == nil {
		return nil, models.ErrWalletNotFound
	}
	return s.wallet, s.err
}

func (s *stubGateway) GetWalletByChain(_ context.Context, userID uint, chain models.Chain) (*models.Wallet, error) {
	s.lastUserID = userID
	if s.wallet == nil {
		return nil, models.ErrWalletNotFound
	}
	return s.wallet, s.err
}

func (s *stubGateway) DeactivateWallet(_ context.Context, userID, walletID uint) error {
	s.lastUserID = userID
	return s.err
}

func (s *stubGateway) CreatePaymentRequest(_ context.Context, userID uint, planID string, chain models.Chain) (*models.Payment, error) {
	s.lastUserID = userID
	return s.payment, s.err
}

func (s *stubGateway) VerifyPayment(_ context.Context, userID uint, txHash string, chain models.Chain, walletID uint) (*models.VerificationResult, error) {
	s.lastUserID = userID
	s.lastTxHash = txHash
	return s.verification, s.err
}

func (s *stubGateway) HandlePaymentWebhook(_ context.Context, notif *models.WebhookNotification) (*models.VerificationResult, error) {
	s.lastTxHash = notif.TransactionHash
	return s.verification, s.err
}

func (s *stubGateway) GetPendingPayments(_ context.Context, userID uint) ([]*models.Payment, error) {
	s.lastUserID = userID
	return nil, s.err
}

func (s *stubGateway) GetUserTransactions(_ context.Context, userID uint) ([]*models.Transaction, error) {
	s.lastUserID = userID
	return nil, s.err
}

func (s *stubGateway) GetTransaction(_ context.Context, userID, txID uint) (*models.Transaction, error) {
	s.lastUserID = userID
	return nil, s.err
}

func (s *stubGateway) UpdateExchangeRates(_ context.Context) error {
	return s.err
}

func newTestServer(gw models.PaymentGateway) *HTTPServer {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(corsMiddleware())
	srv := &HTTPServer{
		router:        router,
		gateway:       gw,
		webhookSecret: "hook-secret",
		logger:        logger.NewNop(),
	}
	srv.routes()
	return srv
}

func doRequest(srv *HTTPServer, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func userHeaders(id, role string) map[string]string {
	h := map[string]string{headerUserID: id}
	if role != "" {
		h[headerUserRole] = role
	}
	return h
}

func TestIdentityRequired(t *testing.T) {
	srv := newTestServer(&stubGateway{})

	w := doRequest(srv, http.MethodGet, "/api/v1/wallets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/wallets", "", userHeaders("not-a-number", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/wallets", "", userHeaders("0", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityPropagated(t *testing.T) {
	gw := &stubGateway{}
	srv := newTestServer(gw)

	w := doRequest(srv, http.MethodGet, "/api/v1/wallets", "", userHeaders("42", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(42), gw.lastUserID)
}

func TestRatesUpdateRequiresAdmin(t *testing.T) {
	gw := &stubGateway{}
	srv := newTestServer(gw)

	w := doRequest(srv, http.MethodPost, "/api/v1/exchange-rates/update", "", userHeaders("1", ""))
	assert.Equal(t, http.StatusForbidden, w.Code, "plain users cannot refresh rates")

	w = doRequest(srv, http.MethodPost, "/api/v1/exchange-rates/update", "", userHeaders("1", "admin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePaymentRequestHandler(t *testing.T) {
	gw := &stubGateway{payment: &models.Payment{ID: 1, ReferenceID: "ref-1", Status: models.PaymentStatusPending}}
	srv := newTestServer(gw)

	w := doRequest(srv, http.MethodPost, "/api/v1/payment/request",
		`{"planId": "pro-monthly", "chain": "bitcoin"}`, userHeaders("1", ""))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool            `json:"success"`
		Payment PaymentResponse `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ref-1", resp.Payment.ReferenceID)

	// Unsupported chain is rejected before the gateway is consulted.
	w = doRequest(srv, http.MethodPost, "/api/v1/payment/request",
		`{"planId": "pro-monthly", "chain": "dogecoin"}`, userHeaders("1", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodPost, "/api/v1/payment/request",
		`{"chain": "bitcoin"}`, userHeaders("1", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing planId")
}

func TestCreatePaymentRequestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plan not found", models.ErrPlanNotFound, http.StatusNotFound},
		{"rate unavailable", models.ErrRateUnavailable, http.StatusServiceUnavailable},
		{"wallet inactive", models.ErrWalletInactive, http.StatusBadRequest},
		{"internal", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubGateway{err: tt.err})
			w := doRequest(srv, http.MethodPost, "/api/v1/payment/request",
				`{"planId": "pro-monthly", "chain": "bitcoin"}`, userHeaders("1", ""))
			assert.Equal(t, tt.want, w.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, false, resp["success"])
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestVerifyPaymentHandler(t *testing.T) {
	gw := &stubGateway{verification: &models.VerificationResult{
		Verified: true,
		State:    models.StateConfirmed,
		Status:   models.TxStatusConfirmed,
	}}
	srv := newTestServer(gw)

	hash := "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	w := doRequest(srv, http.MethodPost, "/api/v1/payment/verify",
		`{"transactionHash": "`+hash+`", "chain": "bitcoin", "walletId": 3}`, userHeaders("1", ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, hash, gw.lastTxHash)

	// Malformed hash never reaches the gateway.
	gw.lastTxHash = ""
	w = doRequest(srv, http.MethodPost, "/api/v1/payment/verify",
		`{"transactionHash": "nope", "chain": "bitcoin", "walletId": 3}`, userHeaders("1", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, gw.lastTxHash)
}

func TestWebhookAuth(t *testing.T) {
	gw := &stubGateway{verification: &models.VerificationResult{Verified: true}}
	srv := newTestServer(gw)

	body := `{"transactionHash": "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
		"chain": "bitcoin", "walletAddress": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}`

	w := doRequest(srv, http.MethodPost, "/api/v1/webhook/payment-notification", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "missing secret")

	w = doRequest(srv, http.MethodPost, "/api/v1/webhook/payment-notification", body,
		map[string]string{headerWebhook: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodPost, "/api/v1/webhook/payment-notification", body,
		map[string]string{headerWebhook: "hook-secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookDisabledWithoutSecret(t *testing.T) {
	srv := newTestServer(&stubGateway{})
	srv.webhookSecret = ""

	w := doRequest(srv, http.MethodPost, "/api/v1/webhook/payment-notification",
		`{"transactionHash": "x", "chain": "bitcoin", "walletAddress": "y"}`,
		map[string]string{headerWebhook: ""})
	assert.Equal(t, http.StatusUnauthorized, w.Code,
		"an unset secret disables the endpoint rather than opening it")
}

func TestGetWalletByChainHandler(t *testing.T) {
	gw := &stubGateway{wallet: &models.Wallet{ID: 5, Chain: models.ChainSolana, Address: "sol-addr"}}
	srv := newTestServer(gw)

	w := doRequest(srv, http.MethodGet, "/api/v1/wallets/type/solana", "", userHeaders("1", ""))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/wallets/type/dogecoin", "", userHeaders("1", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWalletNotFound(t *testing.T) {
	srv := newTestServer(&stubGateway{})

	w := doRequest(srv, http.MethodGet, "/api/v1/wallets/7", "", userHeaders("1", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/wallets/not-a-number", "", userHeaders("1", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
