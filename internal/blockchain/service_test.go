package blockchain

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

// fakeClient returns a canned status or error for every lookup.
type fakeClient struct {
	status *txStatus
	err    error
}

func (f *fakeClient) transactionStatus(ctx context.Context, txHash string) (*txStatus, error) {
	return f.status, f.err
}

func serviceWith(chain models.Chain, client chainClient) *Service {
	return newServiceWithClients(map[models.Chain]chainClient{chain: client}, logger.NewNop())
}

func TestIsTransactionConfirmedPolicies(t *testing.T) {
	tests := []struct {
		chain    models.Chain
		required int64
	}{
		{models.ChainBitcoin, 3},
		{models.ChainSolana, 32},
		{models.ChainERC20, 12},
		{models.ChainTRC20, 19},
	}

	for _, tt := range tests {
		t.Run(string(tt.chain), func(t *testing.T) {
			// One short of the policy: still pending.
			svc := serviceWith(tt.chain, &fakeClient{status: &txStatus{confirmations: tt.required - 1}})
			result, err := svc.IsTransactionConfirmed(context.Background(), tt.chain, "hash", 0)
			require.NoError(t, err)
			assert.Equal(t, models.StatePending, result.State)
			assert.False(t, result.Confirmed)
			assert.Equal(t, int(tt.required), result.Required)

			// Exactly at the policy: confirmed.
			svc = serviceWith(tt.chain, &fakeClient{status: &txStatus{confirmations: tt.required}})
			result, err = svc.IsTransactionConfirmed(context.Background(), tt.chain, "hash", 0)
			require.NoError(t, err)
			assert.Equal(t, models.StateConfirmed, result.State)
			assert.True(t, result.Confirmed)
		})
	}
}

func TestIsTransactionConfirmedOverride(t *testing.T) {
	svc := serviceWith(models.ChainBitcoin, &fakeClient{status: &txStatus{confirmations: 1}})

	result, err := svc.IsTransactionConfirmed(context.Background(), models.ChainBitcoin, "hash", 1)
	require.NoError(t, err)
	assert.True(t, result.Confirmed, "explicit threshold overrides the chain default")
	assert.Equal(t, 1, result.Required)
}

func TestIsTransactionConfirmedLookupFailure(t *testing.T) {
	svc := serviceWith(models.ChainSolana, &fakeClient{err: fmt.Errorf("rpc node unreachable")})

	result, err := svc.IsTransactionConfirmed(context.Background(), models.ChainSolana, "hash", 0)
	require.NoError(t, err, "lookup failures must not surface as errors")
	assert.Equal(t, models.StateUnknown, result.State)
	assert.False(t, result.Confirmed)
	assert.Equal(t, 32, result.Required)
}

func TestIsTransactionConfirmedUnsupportedChain(t *testing.T) {
	svc := newServiceWithClients(map[models.Chain]chainClient{}, logger.NewNop())

	_, err := svc.IsTransactionConfirmed(context.Background(), models.Chain("dogecoin"), "hash", 0)
	assert.Error(t, err)
}

func TestIsTransactionConfirmedCarriesDetails(t *testing.T) {
	status := &txStatus{
		confirmations: 40,
		blockHeight:   812345,
		blockTime:     1700000000,
		amount:        decimal.RequireFromString("0.5"),
		fee:           decimal.RequireFromString("0.0001"),
		from:          "sender",
		to:            "receiver",
	}
	svc := serviceWith(models.ChainSolana, &fakeClient{status: status})

	result, err := svc.IsTransactionConfirmed(context.Background(), models.ChainSolana, "hash", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(40), result.Confirmations)
	assert.Equal(t, uint64(812345), result.BlockHeight)
	assert.Equal(t, int64(1700000000), result.BlockTime)
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "sender", result.From)
	assert.Equal(t, "receiver", result.To)
}
