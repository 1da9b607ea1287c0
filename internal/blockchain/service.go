// Package blockchain answers one question per chain: is this transaction
// final yet. Each chain has its own explorer/RPC client; the service
// dispatches, applies the chain's confirmation policy and degrades lookup
// failures to an explicit unknown state instead of guessing "pending".
package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

// DefaultLookupTimeout bounds a single explorer/RPC round trip. A timeout
// is reported as StateUnknown, never as "not yet confirmed".
const DefaultLookupTimeout = 15 * time.Second

// txStatus is the chain-agnostic view of a looked-up transaction.
type txStatus struct {
	confirmations int64
	blockHeight   uint64
	blockTime     int64
	amount        decimal.Decimal
	fee           decimal.Decimal
	from          string
	to            string
	raw           json.RawMessage
}

// chainClient looks up one transaction on one chain. A nil error with zero
// confirmations means the transaction is known but unconfirmed.
type chainClient interface {
	transactionStatus(ctx context.Context, txHash string) (*txStatus, error)
}

// Endpoints carries the upstream URLs for every supported chain.
type Endpoints struct {
	BitcoinAPIURL  string
	EthereumRPCURL string
	SolanaRPCURL   string
	TronAPIURL     string
}

type Service struct {
	logger  *logger.Logger
	clients map[models.Chain]chainClient
	timeout time.Duration
}

// NewService builds a confirmation service with one client per chain.
func NewService(endpoints Endpoints, log *logger.Logger) *Service {
	return &Service{
		logger: log,
		clients: map[models.Chain]chainClient{
			models.ChainBitcoin: newBitcoinClient(endpoints.BitcoinAPIURL),
			models.ChainERC20:   newEthereumClient(endpoints.EthereumRPCURL),
			models.ChainSolana:  newSolanaClient(endpoints.SolanaRPCURL),
			models.ChainTRC20:   newTronClient(endpoints.TronAPIURL),
		},
		timeout: DefaultLookupTimeout,
	}
}

// newServiceWithClients is the test seam.
func newServiceWithClients(clients map[models.Chain]chainClient, log *logger.Logger) *Service {
	return &Service{logger: log, clients: clients, timeout: DefaultLookupTimeout}
}

// IsTransactionConfirmed checks the transaction against the chain's
// minimum-confirmation policy. minConfirmations <= 0 selects the default.
// The only error case is an unsupported chain; upstream failures come back
// as a StateUnknown result with the cause logged.
func (s *Service) IsTransactionConfirmed(ctx context.Context, chain models.Chain, txHash string, minConfirmations int) (*models.ConfirmationResult, error) {
	client, ok := s.clients[chain]
	if !ok {
		return nil, fmt.Errorf("unsupported chain: %q", chain)
	}

	required := minConfirmations
	if required <= 0 {
		required = chain.MinConfirmations()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, err := client.transactionStatus(lookupCtx, txHash)
	if err != nil {
		s.logger.Error("Transaction lookup failed ", "chain ", chain, " tx ", txHash, " error ", err)
		return &models.ConfirmationResult{
			State:    models.StateUnknown,
			Required: required,
		}, nil
	}

	result := &models.ConfirmationResult{
		State:         models.StatePending,
		Confirmations: status.confirmations,
		Required:      required,
		BlockHeight:   status.blockHeight,
		BlockTime:     status.blockTime,
		Amount:        status.amount,
		Fee:           status.fee,
		From:          status.from,
		To:            status.to,
		Raw:           status.raw,
	}
	if status.confirmations >= int64(required) {
		result.State = models.StateConfirmed
		result.Confirmed = true
	}
	return result, nil
}
