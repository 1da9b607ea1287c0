package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

func TestFetchUSDRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{
			"bitcoin": {"usd": 60000.12},
			"ethereum": {"usd": 2500.5},
			"solana": {"usd": 145.33},
			"tron": {"usd": 0.121}
		}`))
	}))
	defer srv.Close()

	source := NewCoinGeckoSource(srv.URL, logger.NewNop())
	rates, err := source.FetchUSDRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 4)

	assert.True(t, rates[models.ChainBitcoin].Equal(decimal.RequireFromString("60000.12")))
	assert.True(t, rates[models.ChainERC20].Equal(decimal.RequireFromString("2500.5")))
	assert.True(t, rates[models.ChainSolana].Equal(decimal.RequireFromString("145.33")))
	assert.True(t, rates[models.ChainTRC20].Equal(decimal.RequireFromString("0.121")))
}

func TestFetchUSDRatesPartialAndUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"bitcoin": {"usd": 60000},
			"ethereum": {"usd": 0},
			"tron": {}
		}`))
	}))
	defer srv.Close()

	source := NewCoinGeckoSource(srv.URL, logger.NewNop())
	rates, err := source.FetchUSDRates(context.Background())
	require.NoError(t, err)

	assert.Len(t, rates, 1, "zero, missing and unquoted rates are dropped")
	assert.True(t, rates[models.ChainBitcoin].Equal(decimal.NewFromInt(60000)))
}

func TestFetchUSDRatesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	source := NewCoinGeckoSource(srv.URL, logger.NewNop())
	_, err := source.FetchUSDRates(context.Background())
	assert.Error(t, err)
}
