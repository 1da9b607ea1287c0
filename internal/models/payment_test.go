package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteCrypto(t *testing.T) {
	tests := []struct {
		name     string
		priceUSD string
		usdRate  string
		want     string
	}{
		{
			name:     "monthly plan at 60k btc",
			priceUSD: "19.99",
			usdRate:  "60000",
			want:     "0.00034983",
		},
		{
			name:     "exact division still buffered",
			priceUSD: "100",
			usdRate:  "100",
			want:     "1.05",
		},
		{
			name:     "sub-cent asset",
			priceUSD: "9.99",
			usdRate:  "0.12",
			want:     "87.4125",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.priceUSD)
			rate := decimal.RequireFromString(tt.usdRate)
			got := QuoteCrypto(price, rate)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestPaymentExpired(t *testing.T) {
	now := time.Now()
	p := &Payment{ExpiresAt: now.Add(PaymentTTL)}

	assert.False(t, p.Expired(now))
	assert.False(t, p.Expired(now.Add(PaymentTTL)))
	assert.True(t, p.Expired(now.Add(PaymentTTL+time.Second)))
}

func TestChainPolicies(t *testing.T) {
	want := map[Chain]int{
		ChainBitcoin: 3,
		ChainSolana:  32,
		ChainERC20:   12,
		ChainTRC20:   19,
	}
	for chain, confs := range want {
		assert.Equal(t, confs, chain.MinConfirmations(), "chain %s", chain)
	}
	assert.Len(t, SupportedChains(), len(want))
}

func TestParseChain(t *testing.T) {
	chain, err := ParseChain("bitcoin")
	require.NoError(t, err)
	assert.Equal(t, ChainBitcoin, chain)

	_, err = ParseChain("dogecoin")
	assert.Error(t, err)

	_, err = ParseChain("")
	assert.Error(t, err)
}
